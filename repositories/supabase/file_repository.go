package supabase

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/relife/service-api/dataapi"
	"github.com/relife/service-api/models"
	"github.com/relife/service-api/repositories"
	"go.uber.org/zap"
)

// FileRepository implements the repositories.FileRepository interface
type FileRepository struct {
	handle *dataapi.ScopedHandle
	bucket string
	logger *zap.Logger
}

// NewFileRepository creates a new file repository for bucket
func NewFileRepository(handle *dataapi.ScopedHandle, bucket string, logger *zap.Logger) repositories.FileRepository {
	return &FileRepository{
		handle: handle,
		bucket: bucket,
		logger: logger,
	}
}

// Upload stores body at objectPath and returns its public URL
func (r *FileRepository) Upload(ctx context.Context, objectPath, contentType string, body io.Reader) (string, error) {
	if err := r.handle.Upload(ctx, r.bucket, objectPath, contentType, body); err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	r.logger.Debug("uploaded file", zap.String("bucket", r.bucket), zap.String("path", objectPath))
	return r.handle.PublicURL(r.bucket, objectPath), nil
}

// ListByPrefix lists the objects stored under prefix
func (r *FileRepository) ListByPrefix(ctx context.Context, prefix string) ([]*models.StorageFileInfo, error) {
	objects, err := r.handle.List(ctx, r.bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	prefix = strings.TrimSuffix(prefix, "/")
	files := make([]*models.StorageFileInfo, 0, len(objects))
	for _, obj := range objects {
		files = append(files, &models.StorageFileInfo{
			Name:      obj.Name,
			Size:      obj.Metadata.Size,
			CreatedAt: obj.CreatedAt,
			PublicURL: r.handle.PublicURL(r.bucket, prefix+"/"+obj.Name),
		})
	}

	return files, nil
}
