package requests

import (
	"context"
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
	{Error: ErrRequestNotFound, Status: http.StatusNotFound, Message: "request not found"},
	{Error: ErrTripNotFound, Status: http.StatusNotFound, Message: "trip not found"},
	{Error: ErrTripNotOpen, Status: http.StatusConflict, Message: "trip is not open for requests"},
	{Error: ErrOwnTrip, Status: http.StatusConflict, Message: "cannot request own trip"},
	{Error: ErrNotRequestSender, Status: http.StatusForbidden, Message: "request does not belong to user"},
	{Error: ErrNotTripTraveler, Status: http.StatusForbidden, Message: "request is not on user's trip"},
	{Error: ErrRequestNotPending, Status: http.StatusConflict, Message: "request is not pending"},
	{Error: ErrRequestNotAccepted, Status: http.StatusConflict, Message: "request is not accepted"},
}

// Handler handles HTTP requests for the requests module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new requests handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers item request routes (require auth).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/requests", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/my", h.ListOwn)
		r.Post("/{id}/accept", h.Accept)
		r.Post("/{id}/reject", h.Reject)
		r.Post("/{id}/deliver", h.MarkDelivered)
		r.Post("/{id}/cancel", h.Cancel)
	})
	r.Get("/trips/{id}/requests", h.ListForTrip)
}

// CreateRequestRequest represents request body for posting an item request.
type CreateRequestRequest struct {
	TripID              string  `json:"trip_id" validate:"required,uuid"`
	Description         string  `json:"description" validate:"required,max=500"`
	WeightKg            float64 `json:"weight_kg" validate:"gte=0"`
	SpecialInstructions string  `json:"special_instructions" validate:"max=1000"`
}

// RequestResponse is the item request JSON shape.
type RequestResponse struct {
	ID                  uuid.UUID `json:"id"`
	TripID              uuid.UUID `json:"trip_id"`
	SenderID            uuid.UUID `json:"sender_id"`
	Description         string    `json:"description"`
	WeightKg            float64   `json:"weight_kg,omitempty"`
	SpecialInstructions string    `json:"special_instructions,omitempty"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
}

func toRequestResponse(req *domain.ItemRequest) RequestResponse {
	return RequestResponse{
		ID:                  req.ID,
		TripID:              req.TripID,
		SenderID:            req.SenderID,
		Description:         req.Description,
		WeightKg:            req.WeightKg,
		SpecialInstructions: req.SpecialInstructions,
		Status:              string(req.Status),
		CreatedAt:           req.CreatedAt,
	}
}

// Create handles POST /requests.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req CreateRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	tripID, _ := uuid.Parse(req.TripID)

	created, err := h.service.Create(r.Context(), userID, CreateInput{
		TripID:              tripID,
		Description:         req.Description,
		WeightKg:            req.WeightKg,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, toRequestResponse(created))
}

// ListOwn handles GET /requests/my.
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

	httputil.Success(w, http.StatusOK, toResponses(items))
}

// Accept handles POST /requests/{id}/accept.
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Accept)
}

// Reject handles POST /requests/{id}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reject)
}

// MarkDelivered handles POST /requests/{id}/deliver.
func (h *Handler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.MarkDelivered)
}

// Cancel handles POST /requests/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Cancel)
}

// ListForTrip handles GET /trips/{id}/requests.
func (h *Handler) ListForTrip(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	tripID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid trip id")
		return
	}

	items, err := h.service.ListForTrip(r.Context(), userID, tripID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, toResponses(items))
}

// transition runs one of the status-change operations; they all share the
// same request shape.
func (h *Handler) transition(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, userID, requestID uuid.UUID) (*domain.ItemRequest, error),
) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request id")
		return
	}

	updated, err := op(r.Context(), userID, requestID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, toRequestResponse(updated))
}

func toResponses(items []domain.ItemRequest) []RequestResponse {
	out := make([]RequestResponse, 0, len(items))
	for i := range items {
		out = append(out, toRequestResponse(&items[i]))
	}
	return out
}

func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := uuid.Parse(httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, false
	}
	return userID, true
}
