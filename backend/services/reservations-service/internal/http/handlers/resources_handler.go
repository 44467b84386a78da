package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"greencharge/backend/services/reservations-service/internal/models"
	"greencharge/backend/services/reservations-service/internal/service"
)

// ResourcesHandler serves charger administration and browsing.
type ResourcesHandler struct {
	engine *service.Engine
	logger *zap.Logger
}

func NewResourcesHandler(engine *service.Engine, logger *zap.Logger) *ResourcesHandler {
	return &ResourcesHandler{engine: engine, logger: logger}
}

// List handles GET /resources.
func (h *ResourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		writeAppError(w, h.logger, "list resources", err)
		return
	}
	resources, err := h.engine.ListResources(r.Context(), limit)
	if err != nil {
		writeAppError(w, h.logger, "list resources", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"resources": resources})
}

// ListMine handles GET /owner/resources.
func (h *ResourcesHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		writeAppError(w, h.logger, "list owner resources", err)
		return
	}
	resources, err := h.engine.ListOwnerResources(r.Context(), callerID(r), limit)
	if err != nil {
		writeAppError(w, h.logger, "list owner resources", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"resources": resources})
}

// Get handles GET /resources/{id}.
func (h *ResourcesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, h.logger, "get resource", err)
		return
	}
	resource, err := h.engine.GetResource(r.Context(), id)
	if err != nil {
		writeAppError(w, h.logger, "get resource", err)
		return
	}
	writeJSON(w, http.StatusOK, resource)
}

// Create handles POST /resources.
func (h *ResourcesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateResourceInput
	if err := decodeJSON(r, &in); err != nil {
		writeAppError(w, h.logger, "create resource", err)
		return
	}
	resource, err := h.engine.CreateResource(r.Context(), callerID(r), in)
	if err != nil {
		writeAppError(w, h.logger, "create resource", err)
		return
	}
	writeJSON(w, http.StatusCreated, resource)
}

// Update handles PATCH /resources/{id}. Only the fields of models.ResourceUpdate are
// accepted; anything else in the body is a validation error.
func (h *ResourcesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, h.logger, "update resource", err)
		return
	}
	var update models.ResourceUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeAppError(w, h.logger, "update resource", err)
		return
	}
	resource, err := h.engine.UpdateResource(r.Context(), callerID(r), id, update)
	if err != nil {
		writeAppError(w, h.logger, "update resource", err)
		return
	}
	writeJSON(w, http.StatusOK, resource)
}

// Delete handles DELETE /resources/{id}.
func (h *ResourcesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, h.logger, "delete resource", err)
		return
	}
	if err := h.engine.DeleteResource(r.Context(), callerID(r), id); err != nil {
		writeAppError(w, h.logger, "delete resource", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Bookings handles GET /resources/{id}/bookings for the owner of the charger.
func (h *ResourcesHandler) Bookings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, h.logger, "list resource bookings", err)
		return
	}
	limit, err := limitParam(r)
	if err != nil {
		writeAppError(w, h.logger, "list resource bookings", err)
		return
	}
	bookings, err := h.engine.ListResourceBookings(r.Context(), callerID(r), id, limit)
	if err != nil {
		writeAppError(w, h.logger, "list resource bookings", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": bookings})
}
