package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"greencharge/backend/services/reservations-service/internal/service"
)

// BookingsHandler serves direct bookings.
type BookingsHandler struct {
	engine *service.Engine
	logger *zap.Logger
}

func NewBookingsHandler(engine *service.Engine, logger *zap.Logger) *BookingsHandler {
	return &BookingsHandler{engine: engine, logger: logger}
}

// Create handles POST /bookings.
func (h *BookingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateReservationInput
	if err := decodeJSON(r, &in); err != nil {
		writeAppError(w, h.logger, "create booking", err)
		return
	}
	booking, err := h.engine.CreateBooking(r.Context(), callerID(r), in)
	if err != nil {
		writeAppError(w, h.logger, "create booking", err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// Get handles GET /bookings/{id}.
func (h *BookingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, h.logger, "get booking", err)
		return
	}
	booking, err := h.engine.GetBooking(r.Context(), callerID(r), id)
	if err != nil {
		writeAppError(w, h.logger, "get booking", err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// ListMine handles GET /bookings/me.
func (h *BookingsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		writeAppError(w, h.logger, "list driver bookings", err)
		return
	}
	bookings, err := h.engine.ListDriverBookings(r.Context(), callerID(r), limit)
	if err != nil {
		writeAppError(w, h.logger, "list driver bookings", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": bookings})
}

// Complete handles POST /bookings/{id}/complete.
func (h *BookingsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, h.logger, "complete booking", err)
		return
	}
	booking, err := h.engine.CompleteBooking(r.Context(), callerID(r), id)
	if err != nil {
		writeAppError(w, h.logger, "complete booking", err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// Cancel handles POST /bookings/{id}/cancel.
func (h *BookingsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, h.logger, "cancel booking", err)
		return
	}
	booking, err := h.engine.CancelBooking(r.Context(), callerID(r), id)
	if err != nil {
		writeAppError(w, h.logger, "cancel booking", err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}
