package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"greencharge/backend/services/reservations-service/internal/service"
)

// AccountsHandler serves ledger accounts.
type AccountsHandler struct {
	engine *service.Engine
	logger *zap.Logger
}

func NewAccountsHandler(engine *service.Engine, logger *zap.Logger) *AccountsHandler {
	return &AccountsHandler{engine: engine, logger: logger}
}

// Provision handles POST /internal/accounts, called by the auth collaborator after
// registration. It is not routed through the gateway.
func (h *AccountsHandler) Provision(w http.ResponseWriter, r *http.Request) {
	var in service.ProvisionAccountInput
	if err := decodeJSON(r, &in); err != nil {
		writeAppError(w, h.logger, "provision account", err)
		return
	}
	account, err := h.engine.ProvisionAccount(r.Context(), in)
	if err != nil {
		writeAppError(w, h.logger, "provision account", err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// Impact handles GET /accounts/me/impact.
func (h *AccountsHandler) Impact(w http.ResponseWriter, r *http.Request) {
	impact, err := h.engine.GetImpact(r.Context(), callerID(r))
	if err != nil {
		writeAppError(w, h.logger, "get impact", err)
		return
	}
	writeJSON(w, http.StatusOK, impact)
}
