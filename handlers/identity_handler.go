package handlers

import (
	"net/http"

	"github.com/relife/service-api/utils"
	"go.uber.org/zap"
)

// IdentityHandler serves information about the authenticated caller
type IdentityHandler struct {
	logger *zap.Logger
}

// NewIdentityHandler creates a new IdentityHandler
func NewIdentityHandler(logger *zap.Logger) *IdentityHandler {
	return &IdentityHandler{logger: logger}
}

// HandleWhoAmI handles GET /whoami
// Returns the caller's identity including resolved roles and admin status
func (h *IdentityHandler) HandleWhoAmI(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromRequest(r)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, identity); err != nil {
		h.logger.Error("failed to write whoami response", zap.Error(err))
	}
}
