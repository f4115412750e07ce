package models

import "time"

// DefaultContentType is used when an upload does not declare a media type.
const DefaultContentType = "application/octet-stream"

// File is an immutable stored object: metadata plus a pointer into the byte store.
// Rows never change after creation; deletion removes the row and, when unreferenced,
// the underlying blob content.
type File struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	SizeBytes      int64          `json:"size"`
	ContentType    string         `json:"content_type"`
	OwnerID        string         `json:"owner_id,omitempty"`
	Tags           map[string]any `json:"tags,omitempty"`
	StorageBackend string         `json:"-"`
	BlobKey        string         `json:"-"`
	SHA256         string         `json:"sha256,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
