package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"strings"
	"time"

	"pixvault/internal/blobstore"
	"pixvault/internal/models"
	"pixvault/internal/store"
)

// FileService orchestrates file workflows: bytes into the blob store, metadata
// into the row store. Bytes are always committed before a row is created, so an
// id never points at partial content.
type FileService struct {
	fileStore store.FileStore
	blobStore blobstore.Store
}

// NewFileService constructs a FileService.
func NewFileService(fileStore store.FileStore, blobStore blobstore.Store) *FileService {
	return &FileService{fileStore: fileStore, blobStore: blobStore}
}

// StoreFileInput describes one upload.
type StoreFileInput struct {
	Name        string
	ContentType string
	OwnerID     string
	Tags        map[string]any
}

// FileContent bundles an open content stream with its metadata row.
type FileContent struct {
	Reader io.ReadCloser
	File   models.File
}

// Store persists content bytes and creates the metadata row. The returned file
// carries the generated id. On any failure before the row insert nothing is
// visible to readers.
func (s *FileService) Store(ctx context.Context, content io.Reader, in StoreFileInput) (models.File, error) {
	var zero models.File
	if s == nil || s.fileStore == nil || s.blobStore == nil {
		return zero, internalError(fmt.Errorf("file service is not configured"))
	}
	if content == nil {
		return zero, badRequestCode(fmt.Errorf("content is required"), ErrCodeMissingRequired)
	}

	contentType, err := normalizeContentType(in.ContentType)
	if err != nil {
		return zero, err
	}
	if contentType == "" {
		contentType = models.DefaultContentType
	}

	putResult, err := s.blobStore.Put(ctx, content)
	if err != nil {
		return zero, storeFailure(fmt.Errorf("write content: %w", err))
	}

	id, err := s.nextFileID(ctx)
	if err != nil {
		return zero, storeFailure(err)
	}

	file := &models.File{
		ID:             id,
		Name:           strings.TrimSpace(in.Name),
		SizeBytes:      putResult.SizeBytes,
		ContentType:    contentType,
		OwnerID:        strings.TrimSpace(in.OwnerID),
		Tags:           in.Tags,
		StorageBackend: s.blobStore.Backend(),
		BlobKey:        putResult.Key,
		SHA256:         putResult.SHA256,
		CreatedAt:      time.Now().UTC(),
	}
	if file.Name == "" {
		file.Name = id
	}

	if err := s.fileStore.CreateFile(ctx, file); err != nil {
		// The row never became visible. Content stays in the CAS tree where an
		// identical later upload will reuse it.
		return zero, storeFailure(err)
	}

	stored, err := s.fileStore.GetFile(ctx, id)
	if err != nil {
		return zero, storeFailure(err)
	}
	if stored == nil {
		return zero, internalError(fmt.Errorf("file not found after create"))
	}
	return *stored, nil
}

// Open returns the content stream and metadata for one file id.
func (s *FileService) Open(ctx context.Context, id string) (*FileContent, error) {
	if s == nil || s.fileStore == nil || s.blobStore == nil {
		return nil, internalError(fmt.Errorf("file service is not configured"))
	}

	file, err := s.Info(ctx, id)
	if err != nil {
		return nil, err
	}

	rc, err := s.blobStore.Open(ctx, file.BlobKey)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(fmt.Errorf("file content not found: %s", id))
		}
		return nil, storeFailure(fmt.Errorf("open content: %w", err))
	}
	return &FileContent{Reader: rc, File: *file}, nil
}

// Info returns the metadata row for one file id without touching content.
func (s *FileService) Info(ctx context.Context, id string) (*models.File, error) {
	if s == nil || s.fileStore == nil {
		return nil, internalError(fmt.Errorf("file service is not configured"))
	}

	id = strings.TrimSpace(id)
	if !validateFileID(id) {
		return nil, badRequestCode(fmt.Errorf("invalid id"), ErrCodeInvalidID)
	}

	file, err := s.fileStore.GetFile(ctx, id)
	if err != nil {
		return nil, storeFailure(err)
	}
	if file == nil {
		return nil, notFound(fmt.Errorf("file not found: %s", id))
	}
	return file, nil
}

// Delete removes the metadata row and, when no other row shares the content,
// the blob bytes. Deleting an unknown id reports deleted=false.
func (s *FileService) Delete(ctx context.Context, id string) (bool, error) {
	if s == nil || s.fileStore == nil || s.blobStore == nil {
		return false, internalError(fmt.Errorf("file service is not configured"))
	}

	id = strings.TrimSpace(id)
	if !validateFileID(id) {
		return false, badRequestCode(fmt.Errorf("invalid id"), ErrCodeInvalidID)
	}

	file, err := s.fileStore.GetFile(ctx, id)
	if err != nil {
		return false, storeFailure(err)
	}
	if file == nil {
		return false, nil
	}

	deleted, err := s.fileStore.DeleteFile(ctx, id)
	if err != nil {
		return false, storeFailure(err)
	}
	if !deleted {
		return false, nil
	}

	// The row is gone, so the delete already succeeded from the caller's view.
	// Orphaned bytes are preferable to reporting failure here.
	refs, err := s.fileStore.CountBlobRefs(ctx, file.BlobKey)
	if err == nil && refs == 0 {
		_ = s.blobStore.Delete(ctx, file.BlobKey)
	}
	return true, nil
}

// List returns metadata rows in insertion order.
func (s *FileService) List(ctx context.Context, filter store.ListFilter) ([]models.File, error) {
	if s == nil || s.fileStore == nil {
		return nil, internalError(fmt.Errorf("file service is not configured"))
	}
	files, err := s.fileStore.ListFiles(ctx, filter)
	if err != nil {
		return nil, storeFailure(err)
	}
	if files == nil {
		files = []models.File{}
	}
	return files, nil
}

func (s *FileService) nextFileID(ctx context.Context) (string, error) {
	exists := func(id string) (bool, error) {
		return s.fileStore.FileIDExists(ctx, id)
	}
	return store.GenerateFileID(exists)
}

func normalizeContentType(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	parsed, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return "", badRequestCode(fmt.Errorf("invalid content_type"), ErrCodeInvalidArgument)
	}
	return strings.ToLower(strings.TrimSpace(parsed)), nil
}
