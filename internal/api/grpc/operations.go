package grpc

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"beachrental-backend/internal/api/grpc/interceptor"
	"beachrental-backend/internal/domain"
	"beachrental-backend/internal/logger"
	"beachrental-backend/internal/service"
	"beachrental-backend/internal/utils"
)

const (
	OperationsServiceName = "beachrental.v1.Operations"
	GetAvailabilityMethod = "/beachrental.v1.Operations/GetAvailability"
	ExpireUnpaidMethod    = "/beachrental.v1.Operations/ExpireUnpaidReservations"
)

// OperationsServer is the desk-operations API. Requests and responses are
// well-known protobuf types so clients need no generated stubs.
type OperationsServer interface {
	// GetAvailability takes {"date": "YYYY-MM-DD", "resource_id"?: string}.
	GetAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// ExpireUnpaidReservations runs the expiry sweep now and returns the expired ids.
	ExpireUnpaidReservations(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

type OperationsHandler struct {
	availability service.AvailabilityService
	sweeper      service.ExpirationSweeper
	clock        utils.Clock
}

func NewOperationsHandler(availability service.AvailabilityService, sweeper service.ExpirationSweeper, clock utils.Clock) *OperationsHandler {
	return &OperationsHandler{availability: availability, sweeper: sweeper, clock: clock}
}

func (h *OperationsHandler) GetAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	date := fields["date"].GetStringValue()
	if date == "" {
		return nil, status.Error(codes.InvalidArgument, "date is required")
	}

	if id := fields["resource_id"].GetStringValue(); id != "" {
		one, err := h.availability.ForResource(ctx, date, id)
		if err != nil {
			return nil, err
		}
		return toStruct(map[string]any{"date": date, "resource": one})
	}

	all, err := h.availability.ForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	return toStruct(map[string]any{"date": date, "resources": all})
}

func (h *OperationsHandler) ExpireUnpaidReservations(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	actor, err := interceptor.ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := actor.Require(domain.CapManageReservations); err != nil {
		return nil, err
	}

	now := h.clock.Now()
	ids, err := h.sweeper.ExpireUnpaidReservations(ctx, now)
	logger.Info("Expiry sweep triggered over gRPC", "actor", actor.ID, "expired", len(ids))
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return toStruct(map[string]any{"expired": ids, "count": len(ids), "ran_at": now.UTC().Format(time.RFC3339)})
}

// toStruct goes through JSON so the domain types' json tags shape the response.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}

func RegisterOperationsServer(s grpc.ServiceRegistrar, srv OperationsServer) {
	s.RegisterService(&operationsServiceDesc, srv)
}

func operationsGetAvailabilityHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, next grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if next == nil {
		return srv.(OperationsServer).GetAvailability(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetAvailabilityMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OperationsServer).GetAvailability(ctx, req.(*structpb.Struct))
	}
	return next(ctx, in, info, handler)
}

func operationsExpireUnpaidHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, next grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if next == nil {
		return srv.(OperationsServer).ExpireUnpaidReservations(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ExpireUnpaidMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OperationsServer).ExpireUnpaidReservations(ctx, req.(*emptypb.Empty))
	}
	return next(ctx, in, info, handler)
}

var operationsServiceDesc = grpc.ServiceDesc{
	ServiceName: OperationsServiceName,
	HandlerType: (*OperationsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetAvailability", Handler: operationsGetAvailabilityHandler},
		{MethodName: "ExpireUnpaidReservations", Handler: operationsExpireUnpaidHandler},
	},
	Streams: []grpc.StreamDesc{},
}
