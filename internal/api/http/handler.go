package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"beachrental-backend/internal/domain"
	"beachrental-backend/internal/repository"
	"beachrental-backend/internal/security"
	"beachrental-backend/internal/service"
)

// Handler serves the booking REST API.
type Handler struct {
	resources    repository.ResourceRepository
	availability service.AvailabilityService
	reservations service.ReservationService
}

func NewHandler(resources repository.ResourceRepository, availability service.AvailabilityService, reservations service.ReservationService) *Handler {
	return &Handler{
		resources:    resources,
		availability: availability,
		reservations: reservations,
	}
}

// NewRouter wires the API routes behind logging and authentication.
func NewRouter(h *Handler, tm security.TokenManager) *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware, AuthMiddleware(tm))

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/resources", h.ListResources).Methods(http.MethodGet)
	api.HandleFunc("/availability/{date}", h.AvailabilityForDate).Methods(http.MethodGet)
	api.HandleFunc("/availability/{date}/{resourceId}", h.AvailabilityForResource).Methods(http.MethodGet)

	api.HandleFunc("/reservations", h.ListReservations).Methods(http.MethodGet)
	api.HandleFunc("/reservations", h.CreateReservation).Methods(http.MethodPost)
	api.HandleFunc("/reservations/date/{date}", h.ListReservationsByDate).Methods(http.MethodGet)
	api.HandleFunc("/reservations/{id}", h.GetReservation).Methods(http.MethodGet)
	api.HandleFunc("/reservations/{id}", h.UpdateReservation).Methods(http.MethodPut)
	api.HandleFunc("/reservations/{id}/cancel", h.CancelReservation).Methods(http.MethodPut)
	api.HandleFunc("/reservations/{id}/payment", h.PayReservation).Methods(http.MethodPut)
	api.HandleFunc("/reservations/{id}/storm-refund", h.StormRefund).Methods(http.MethodPut)

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ResourceFilter{
		Category: domain.Category(q.Get("category")),
		Size:     domain.Size(q.Get("size")),
		Status:   domain.ResourceStatus(q.Get("status")),
	}
	if filter.Category != "" {
		if _, err := domain.ParseCategory(string(filter.Category)); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if filter.Status != "" {
		if _, err := domain.ParseResourceStatus(string(filter.Status)); err != nil {
			writeError(w, r, err)
			return
		}
	}

	list, err := h.resources.FindMatching(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Resource{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) AvailabilityForDate(w http.ResponseWriter, r *http.Request) {
	out, err := h.availability.ForDate(r.Context(), mux.Vars(r)["date"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) AvailabilityForResource(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	out, err := h.availability.ForResource(r.Context(), vars["date"], vars["resourceId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.reservations.ListByDateRange(r.Context(), security.ActorFromContext(r.Context()), q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (h *Handler) ListReservationsByDate(w http.ResponseWriter, r *http.Request) {
	list, err := h.reservations.ListByDate(r.Context(), security.ActorFromContext(r.Context()), mux.Vars(r)["date"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.reservations.Get(r.Context(), security.ActorFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var in service.CreateReservationInput
	if !decode(w, r, &in) {
		return
	}
	res, err := h.reservations.Create(r.Context(), security.ActorFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) UpdateReservation(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateReservationInput
	if !decode(w, r, &in) {
		return
	}
	res, err := h.reservations.Update(r.Context(), security.ActorFromContext(r.Context()), mux.Vars(r)["id"], in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	out, err := h.reservations.Cancel(r.Context(), security.ActorFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) PayReservation(w http.ResponseWriter, r *http.Request) {
	var method domain.PaymentMethod
	if !decode(w, r, &method) {
		return
	}
	res, err := h.reservations.Pay(r.Context(), security.ActorFromContext(r.Context()), mux.Vars(r)["id"], method)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) StormRefund(w http.ResponseWriter, r *http.Request) {
	out, err := h.reservations.StormRefund(r.Context(), security.ActorFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, r, domain.Validationf("invalid request body: %v", err))
		return false
	}
	return true
}

func nonNil(list []domain.Reservation) []domain.Reservation {
	if list == nil {
		return []domain.Reservation{}
	}
	return list
}
