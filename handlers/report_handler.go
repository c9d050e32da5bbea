package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/relife/service-api/internal/observability"
	"github.com/relife/service-api/models"
	"github.com/relife/service-api/services"
	"github.com/relife/service-api/utils"
	"go.uber.org/zap"
)

// ReportHandler handles report request endpoints.
// All data access goes through the caller's scoped handle.
type ReportHandler struct {
	repos  RepositoryProvider
	now    func() time.Time
	logger *zap.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(repos RepositoryProvider, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		repos:  repos,
		now:    time.Now,
		logger: logger,
	}
}

// HandleCreate handles POST /report-request
func (h *ReportHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFromContext(r.Context(), h.logger)

	identity, repos, err := userRepositories(r, h.repos)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	rows, err := repos.ReportRequests.Create(r.Context(), models.NewReportRequest(identity.UserID(), h.now()))
	if err != nil {
		HandleServiceError(w, services.ErrDataAPIUnavailable.WithCause(fmt.Errorf("create report request: %w", err)), logger)
		return
	}

	logger.Info("report request created", zap.String("user_id", identity.UserID()))
	if err := utils.WriteOK(w, rows); err != nil {
		logger.Error("failed to write report response", zap.Error(err))
	}
}

// HandleList handles GET /report-request
func (h *ReportHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFromContext(r.Context(), h.logger)

	identity, repos, err := userRepositories(r, h.repos)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	rows, err := repos.ReportRequests.ListByUserID(r.Context(), identity.UserID())
	if err != nil {
		HandleServiceError(w, services.ErrDataAPIUnavailable.WithCause(fmt.Errorf("list report requests: %w", err)), logger)
		return
	}

	if err := utils.WriteOK(w, rows); err != nil {
		logger.Error("failed to write report list response", zap.Error(err))
	}
}
