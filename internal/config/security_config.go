package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
)

// EndpointSecurityConfig maps "METHOD path-template" for HTTP routes and full
// gRPC method names to their required security level.
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Health - Public
	"GET /healthz":                 SecurityPublic,
	"/grpc.health.v1.Health/Check": SecurityPublic,
	"/grpc.health.v1.Health/Watch": SecurityPublic,
	"/grpc.health.v1.Health/List":  SecurityPublic,

	// Catalog and availability - Public
	"GET /api/v1/resources":                        SecurityPublic,
	"GET /api/v1/availability/{date}":              SecurityPublic,
	"GET /api/v1/availability/{date}/{resourceId}": SecurityPublic,

	// Desk operations over gRPC
	"/beachrental.v1.Operations/GetAvailability":          SecurityPublic,
	"/beachrental.v1.Operations/ExpireUnpaidReservations": SecurityAccess,

	// Reservations - Access Protected
	"GET /api/v1/reservations":                   SecurityAccess,
	"GET /api/v1/reservations/date/{date}":       SecurityAccess,
	"GET /api/v1/reservations/{id}":              SecurityAccess,
	"POST /api/v1/reservations":                  SecurityAccess,
	"PUT /api/v1/reservations/{id}":              SecurityAccess,
	"PUT /api/v1/reservations/{id}/cancel":       SecurityAccess,
	"PUT /api/v1/reservations/{id}/payment":      SecurityAccess,
	"PUT /api/v1/reservations/{id}/storm-refund": SecurityAccess,
}

// GetSecurityLevel returns the security level for a given endpoint key
func GetSecurityLevel(endpoint string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[endpoint]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAccess
}
