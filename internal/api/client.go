package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "PIXVAULT_HTTP_TIMEOUT"
	adminTokenEnvKey   = "PIXVAULT_ADMIN_TOKEN"
)

// Client is a simple HTTP client for the pixvault API.
type Client struct {
	baseURL    string
	http       *http.Client
	adminToken string
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: httpTimeoutFromEnv()},
		adminToken: strings.TrimSpace(os.Getenv(adminTokenEnvKey)),
	}
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil, false)
}

// Upload streams a file as a multipart request and returns the upload result,
// including a signed URL ready to hand out.
func (c *Client) Upload(ctx context.Context, name, contentType string, content io.Reader, ownerID string, tags map[string]any, expiry string) (UploadResponse, error) {
	var resp UploadResponse

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if ownerID != "" {
		if err := writer.WriteField("owner_id", ownerID); err != nil {
			return resp, err
		}
	}
	if len(tags) > 0 {
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return resp, err
		}
		if err := writer.WriteField("tags", string(tagsJSON)); err != nil {
			return resp, err
		}
	}
	if expiry != "" {
		if err := writer.WriteField("expiry", expiry); err != nil {
			return resp, err
		}
	}
	partHeader := textproto.MIMEHeader{}
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if contentType != "" {
		partHeader.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(partHeader)
	if err != nil {
		return resp, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return resp, err
	}
	if err := writer.Close(); err != nil {
		return resp, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/files", body)
	if err != nil {
		return resp, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	httpResp, err := c.http.Do(req)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

// MintToken asks the server for a fresh capability token for an existing file.
func (c *Client) MintToken(ctx context.Context, id string, req TokenRequest) (TokenResponse, error) {
	var resp TokenResponse
	err := c.do(ctx, http.MethodPost, "/v1/files/"+url.PathEscape(id)+"/token", nil, req, &resp, false)
	return resp, err
}

// GetMetadata fetches file metadata using a capability token.
func (c *Client) GetMetadata(ctx context.Context, id, token string) (FileMetadata, error) {
	var resp FileMetadata
	query := url.Values{"token": []string{token}}
	err := c.do(ctx, http.MethodGet, "/v1/files/"+url.PathEscape(id)+"/metadata", query, nil, &resp, false)
	return resp, err
}

// Download streams file content to w using a capability token. Set attachment
// to use the download endpoint and its disposition.
func (c *Client) Download(ctx context.Context, id, token string, attachment bool, w io.Writer) error {
	path := "/v1/files/" + url.PathEscape(id)
	if attachment {
		path += "/download"
	}
	endpoint := c.baseURL + path + "?" + url.Values{"token": []string{token}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

// DeleteFile removes a file. Requires the admin token.
func (c *Client) DeleteFile(ctx context.Context, id string) (DeleteResponse, error) {
	var resp DeleteResponse
	err := c.do(ctx, http.MethodDelete, "/v1/files/"+url.PathEscape(id), nil, nil, &resp, true)
	return resp, err
}

// ListFiles lists file metadata. Requires the admin token.
func (c *Client) ListFiles(ctx context.Context, query url.Values) ([]FileMetadata, error) {
	var resp []FileMetadata
	err := c.do(ctx, http.MethodGet, "/v1/files", query, nil, &resp, true)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any, admin bool) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		c.setAdminHeader(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		apiErr.Message = errResp.Error
		apiErr.Code = errResp.Code
		apiErr.ErrorCode = errResp.ErrorCode
		return apiErr
	}
	apiErr.Message = fmt.Sprintf("api error: %s", resp.Status)
	return apiErr
}

func (c *Client) setAdminHeader(req *http.Request) {
	if c.adminToken == "" || req == nil {
		return
	}
	req.Header.Set("X-Admin-Token", c.adminToken)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
