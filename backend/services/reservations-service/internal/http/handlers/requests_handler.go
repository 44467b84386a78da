package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"greencharge/backend/services/reservations-service/internal/models"
	"greencharge/backend/services/reservations-service/internal/service"
)

// RequestsHandler serves the owner-approved booking request lifecycle.
type RequestsHandler struct {
	engine *service.Engine
	logger *zap.Logger
}

func NewRequestsHandler(engine *service.Engine, logger *zap.Logger) *RequestsHandler {
	return &RequestsHandler{engine: engine, logger: logger}
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Create handles POST /booking-requests.
func (h *RequestsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateReservationInput
	if err := decodeJSON(r, &in); err != nil {
		writeAppError(w, h.logger, "create booking request", err)
		return
	}
	req, err := h.engine.CreateBookingRequest(r.Context(), callerID(r), in)
	if err != nil {
		writeAppError(w, h.logger, "create booking request", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// Get handles GET /booking-requests/{id}.
func (h *RequestsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, h.logger, "get booking request", err)
		return
	}
	req, err := h.engine.GetBookingRequest(r.Context(), callerID(r), id)
	if err != nil {
		writeAppError(w, h.logger, "get booking request", err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// ListMine handles GET /booking-requests/me.
func (h *RequestsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		writeAppError(w, h.logger, "list driver requests", err)
		return
	}
	reqs, err := h.engine.ListDriverRequests(r.Context(), callerID(r), limit)
	if err != nil {
		writeAppError(w, h.logger, "list driver requests", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": reqs})
}

// ListOwner handles GET /owner/booking-requests with an optional ?status= filter.
func (h *RequestsHandler) ListOwner(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		writeAppError(w, h.logger, "list owner requests", err)
		return
	}
	status := models.RequestStatus(r.URL.Query().Get("status"))
	reqs, err := h.engine.ListOwnerRequests(r.Context(), callerID(r), status, limit)
	if err != nil {
		writeAppError(w, h.logger, "list owner requests", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": reqs})
}

// Approve handles POST /booking-requests/{id}/approve.
func (h *RequestsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, h.logger, "approve booking request", err)
		return
	}
	req, booking, err := h.engine.ApproveBookingRequest(r.Context(), callerID(r), id)
	if err != nil {
		writeAppError(w, h.logger, "approve booking request", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"request": req,
		"booking": booking,
	})
}

// Reject handles POST /booking-requests/{id}/reject.
func (h *RequestsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, h.logger, "reject booking request", err)
		return
	}
	var body rejectRequest
	if err := decodeJSON(r, &body); err != nil {
		writeAppError(w, h.logger, "reject booking request", err)
		return
	}
	req, err := h.engine.RejectBookingRequest(r.Context(), callerID(r), id, body.Reason)
	if err != nil {
		writeAppError(w, h.logger, "reject booking request", err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// Cancel handles POST /booking-requests/{id}/cancel by the driver.
func (h *RequestsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "cancel booking request", h.engine.CancelBookingRequest)
}

// StartSession handles POST /booking-requests/{id}/session/start.
func (h *RequestsHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "start charging session", h.engine.StartChargingSession)
}

// EndSession handles POST /booking-requests/{id}/session/end.
func (h *RequestsHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "end charging session", h.engine.EndChargingSession)
}

// CancelSession handles POST /booking-requests/{id}/session/cancel.
func (h *RequestsHandler) CancelSession(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "cancel approved session", h.engine.CancelApprovedSession)
}

type requestTransition func(ctx context.Context, callerID, requestID uuid.UUID) (*models.BookingRequest, error)

func (h *RequestsHandler) transition(w http.ResponseWriter, r *http.Request, op string, fn requestTransition) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, h.logger, op, err)
		return
	}
	req, err := fn(r.Context(), callerID(r), id)
	if err != nil {
		writeAppError(w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
