package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pixvault/internal/models"
)

const fileColumns = "id, name, size_bytes, content_type, owner_id, tags_json, storage_backend, blob_key, sha256, created_at"

// ListFilter narrows ListFiles. Tags match by string-form equality on tag
// values. Zero Limit means no pagination.
type ListFilter struct {
	OwnerID string
	Tags    map[string]string
	Limit   int
	Skip    int
}

// CreateFile inserts one file row. The id must already be assigned and the
// underlying blob committed; rows are immutable after this point.
func (s *Store) CreateFile(ctx context.Context, file *models.File) error {
	if file == nil {
		return fmt.Errorf("file is required")
	}
	if strings.TrimSpace(file.ID) == "" {
		return fmt.Errorf("file id is required")
	}
	if strings.TrimSpace(file.BlobKey) == "" {
		return fmt.Errorf("blob key is required")
	}
	if file.SizeBytes < 0 {
		return fmt.Errorf("size_bytes must be >= 0")
	}
	if strings.TrimSpace(file.ContentType) == "" {
		file.ContentType = models.DefaultContentType
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}

	tagsJSON, err := tagsToJSON(file.Tags)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO files (`+fileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, file.ID, file.Name, file.SizeBytes, file.ContentType, nullString(file.OwnerID),
		nullString(tagsJSON), file.StorageBackend, file.BlobKey, file.SHA256, dbFormatTime(file.CreatedAt))
	return err
}

// GetFile returns one file row, or nil when absent.
func (s *Store) GetFile(ctx context.Context, id string) (*models.File, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = ?`, id)
	return scanFile(row)
}

// FileIDExists checks id presence without transferring the row.
func (s *Store) FileIDExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM files WHERE id = ? LIMIT 1", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteFile removes one file row. Returns false when the id was not present,
// which keeps concurrent deletes of the same id harmless.
func (s *Store) DeleteFile(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CountBlobRefs counts live file rows pointing at one blob key. Blob bytes may
// only be removed once this drops to zero.
func (s *Store) CountBlobRefs(ctx context.Context, blobKey string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files WHERE blob_key = ?", blobKey).Scan(&count)
	return count, err
}

// ListFiles lists file rows in insertion order. Tag filtering happens after
// materialization since tags are stored as opaque JSON; skip/limit are applied
// to the filtered sequence.
func (s *Store) ListFiles(ctx context.Context, filter ListFilter) ([]models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files`
	args := []any{}
	if owner := strings.TrimSpace(filter.OwnerID); owner != "" {
		query += " WHERE owner_id = ?"
		args = append(args, owner)
	}
	query += " ORDER BY rowid ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []models.File{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		if file == nil {
			continue
		}
		if !matchTags(file.Tags, filter.Tags) {
			continue
		}
		files = append(files, *file)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return paginate(files, filter.Skip, filter.Limit), nil
}

func matchTags(tags map[string]any, want map[string]string) bool {
	for key, value := range want {
		got, ok := tags[key]
		if !ok || fmt.Sprint(got) != value {
			return false
		}
	}
	return true
}

func paginate(files []models.File, skip, limit int) []models.File {
	if skip > 0 {
		if skip >= len(files) {
			return []models.File{}
		}
		files = files[skip:]
	}
	if limit > 0 && limit < len(files) {
		files = files[:limit]
	}
	return files
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*models.File, error) {
	var file models.File
	var ownerID, tagsJSON sql.NullString
	var createdAt string

	err := row.Scan(&file.ID, &file.Name, &file.SizeBytes, &file.ContentType, &ownerID,
		&tagsJSON, &file.StorageBackend, &file.BlobKey, &file.SHA256, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	file.OwnerID = ownerID.String
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &file.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for %s: %w", file.ID, err)
		}
	}
	file.CreatedAt, err = dbParseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at for %s: %w", file.ID, err)
	}

	return &file, nil
}

func tagsToJSON(tags map[string]any) (string, error) {
	if len(tags) == 0 {
		return "", nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(data), nil
}

func nullString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func dbFormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func dbParseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}
