package api

// ErrorResponse is the JSON error wrapper returned by every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// UploadResponse is returned after a successful file upload.
type UploadResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	SHA256      string `json:"sha256,omitempty"`
	SignedURL   string `json:"signed_url"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TokenRequest asks for a fresh capability token for an existing file.
type TokenRequest struct {
	Subject     string         `json:"subject,omitempty"`
	Permissions []string       `json:"permissions,omitempty"`
	Expiry      string         `json:"expiry,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// TokenResponse carries a minted token and its signed URL.
type TokenResponse struct {
	ID          string   `json:"id"`
	Token       string   `json:"token"`
	SignedURL   string   `json:"signed_url"`
	ExpiresIn   int64    `json:"expires_in"`
	Permissions []string `json:"permissions"`
}

// FileMetadata mirrors the stored file row as returned by the metadata endpoint.
type FileMetadata struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Size        int64          `json:"size"`
	ContentType string         `json:"content_type"`
	OwnerID     string         `json:"owner_id,omitempty"`
	Tags        map[string]any `json:"tags,omitempty"`
	SHA256      string         `json:"sha256,omitempty"`
	CreatedAt   string         `json:"created_at"`
}

// DeleteResponse reports the outcome of a delete request.
type DeleteResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// HealthResponse is the health endpoint payload.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store,omitempty"`
	Blobs  string `json:"blobs,omitempty"`
}
