package store

import (
	"context"

	"pixvault/internal/models"
)

// FileStore is the metadata persistence surface consumed by the gateway.
type FileStore interface {
	CreateFile(ctx context.Context, file *models.File) error
	GetFile(ctx context.Context, id string) (*models.File, error)
	FileIDExists(ctx context.Context, id string) (bool, error)
	DeleteFile(ctx context.Context, id string) (bool, error)
	CountBlobRefs(ctx context.Context, blobKey string) (int, error)
	ListFiles(ctx context.Context, filter ListFilter) ([]models.File, error)
	Ping(ctx context.Context) error
}
