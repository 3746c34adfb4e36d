package trips

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mengedapp/menged/internal/domain"
	"github.com/mengedapp/menged/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrTripNotFound, Status: http.StatusNotFound, Message: "trip not found"},
	{Error: ErrNotTripOwner, Status: http.StatusForbidden, Message: "trip does not belong to user"},
	{Error: ErrTripNotActive, Status: http.StatusConflict, Message: "trip is not active"},
}

// Handler handles HTTP requests for the trips module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new trips handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers trip routes (require auth).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/trips", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/my", h.ListOwn)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/cancel", h.Cancel)
		r.Post("/{id}/complete", h.Complete)
	})
}

// CreateTripRequest represents request body for announcing a trip.
type CreateTripRequest struct {
	FromCity      string  `json:"from_city" validate:"required,max=100"`
	ToCity        string  `json:"to_city" validate:"required,max=100"`
	DepartureDate string  `json:"departure_date" validate:"required,datetime=2006-01-02"`
	MaxWeightKg   float64 `json:"max_weight_kg" validate:"gte=0"`
}

// CancelTripRequest represents request body for cancelling a trip.
type CancelTripRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// TripResponse is the trip JSON shape.
type TripResponse struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	FromCity      string    `json:"from_city"`
	ToCity        string    `json:"to_city"`
	DepartureDate string    `json:"departure_date"`
	MaxWeightKg   float64   `json:"max_weight_kg"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

func toTripResponse(t *domain.Trip) TripResponse {
	return TripResponse{
		ID:            t.ID,
		UserID:        t.UserID,
		FromCity:      t.FromCity,
		ToCity:        t.ToCity,
		DepartureDate: t.DepartureDate.Format("2006-01-02"),
		MaxWeightKg:   t.MaxWeightKg,
		Status:        string(t.Status),
		CreatedAt:     t.CreatedAt,
	}
}

// Create handles POST /trips.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req CreateTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	departure, _ := time.Parse("2006-01-02", req.DepartureDate)

	trip, err := h.service.Create(r.Context(), userID, CreateInput{
		FromCity:      req.FromCity,
		ToCity:        req.ToCity,
		DepartureDate: departure,
		MaxWeightKg:   req.MaxWeightKg,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, toTripResponse(trip))
}

// ListOwn handles GET /trips/my.
func (h *Handler) ListOwn(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	items, err := h.service.ListOwn(r.Context(), userID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	out := make([]TripResponse, 0, len(items))
	for i := range items {
		out = append(out, toTripResponse(&items[i]))
	}
	httputil.Success(w, http.StatusOK, out)
}

// Get handles GET /trips/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tripID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid trip id")
		return
	}

	trip, err := h.service.Get(r.Context(), tripID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, toTripResponse(trip))
}

// Cancel handles POST /trips/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	tripID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid trip id")
		return
	}

	var req CancelTripRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		if err := h.validator.Struct(req); err != nil {
			httputil.ValidationError(w, err)
			return
		}
	}

	trip, err := h.service.Cancel(r.Context(), userID, tripID, req.Reason)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, toTripResponse(trip))
}

// Complete handles POST /trips/{id}/complete.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	tripID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid trip id")
		return
	}

	trip, err := h.service.Complete(r.Context(), userID, tripID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, toTripResponse(trip))
}

func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := uuid.Parse(httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, false
	}
	return userID, true
}
