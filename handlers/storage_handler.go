package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/relife/service-api/internal/observability"
	"github.com/relife/service-api/models"
	"github.com/relife/service-api/services"
	"github.com/relife/service-api/utils"
	"go.uber.org/zap"
)

const (
	// maxUploadSize matches the default object size limit of the storage API
	maxUploadSize = 50 << 20

	multipartMemory = 8 << 20
	uploadFormField = "file"
)

// UploadFileRequest is the validated part of a multipart upload
type UploadFileRequest struct {
	Filename    string `validate:"required,max=255,ne=.,ne=..,excludesall=/\\"`
	ContentType string `validate:"max=255"`
}

// StorageHandler handles file storage endpoints.
// Files live under the caller's user id inside the configured bucket.
type StorageHandler struct {
	repos  RepositoryProvider
	logger *zap.Logger
}

// NewStorageHandler creates a new StorageHandler
func NewStorageHandler(repos RepositoryProvider, logger *zap.Logger) *StorageHandler {
	return &StorageHandler{
		repos:  repos,
		logger: logger,
	}
}

// HandleUpload handles POST /storage
func (h *StorageHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFromContext(r.Context(), h.logger)

	identity, repos, err := userRepositories(r, h.repos)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			HandleServiceError(w, services.NewDomainError(services.ErrorTypeValidation, "File too large", err), logger)
			return
		}
		HandleServiceError(w, services.ErrInvalidInput.WithCause(err), logger)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		HandleServiceError(w, services.ErrMissingFile, logger)
		return
	}
	defer file.Close()

	req := UploadFileRequest{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}
	if err := utils.ValidateStruct(req); err != nil {
		invalid := services.ErrInvalidFilename.WithCause(err)
		for field, msg := range utils.GetValidationFields(err) {
			invalid.WithDetail(field, msg)
		}
		HandleServiceError(w, invalid, logger)
		return
	}

	objectPath := models.UserObjectPath(identity.UserID(), req.Filename)
	publicURL, err := repos.Files.Upload(r.Context(), objectPath, req.ContentType, file)
	if err != nil {
		HandleServiceError(w, services.ErrStorageUnavailable.WithCause(fmt.Errorf("upload %s: %w", objectPath, err)), logger)
		return
	}

	logger.Debug("uploaded file", zap.String("path", objectPath))

	response := models.FileUploadResponse{
		Message:   "File uploaded successfully",
		Path:      objectPath,
		PublicURL: publicURL,
	}
	if err := utils.WriteOK(w, response); err != nil {
		logger.Error("failed to write upload response", zap.Error(err))
	}
}

// HandleList handles GET /storage
func (h *StorageHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFromContext(r.Context(), h.logger)

	identity, repos, err := userRepositories(r, h.repos)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	files, err := repos.Files.ListByPrefix(r.Context(), identity.UserID())
	if err != nil {
		HandleServiceError(w, services.ErrStorageUnavailable.WithCause(fmt.Errorf("list files: %w", err)), logger)
		return
	}

	if err := utils.WriteOK(w, files); err != nil {
		logger.Error("failed to write file list response", zap.Error(err))
	}
}
