package handlers

import (
	"fmt"
	"net/http"

	"github.com/relife/service-api/internal/observability"
	"github.com/relife/service-api/services"
	"github.com/relife/service-api/utils"
	"go.uber.org/zap"
)

// AdminHandler handles endpoints reserved to administrators
type AdminHandler struct {
	repos  RepositoryProvider
	logger *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(repos RepositoryProvider, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		repos:  repos,
		logger: logger,
	}
}

// HandleListUsers handles GET /admin/users
// Reads the private table with the service handle after checking the admin role.
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFromContext(r.Context(), h.logger)

	identity, err := identityFromRequest(r)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	// The route middleware checks this too; the service handle is never built for non-admins
	if err := services.RequireAdmin(identity); err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	rows, err := h.repos.ForService().PrivateRecords.List(r.Context())
	if err != nil {
		HandleServiceError(w, services.ErrDataAPIUnavailable.WithCause(fmt.Errorf("list private records: %w", err)), logger)
		return
	}

	logger.Info("admin listed private records",
		zap.String("user_id", identity.UserID()),
		zap.Int("rows", len(rows)))

	if err := utils.WriteOK(w, rows); err != nil {
		logger.Error("failed to write admin response", zap.Error(err))
	}
}
