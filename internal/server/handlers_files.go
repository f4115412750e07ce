package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"pixvault/internal/api"
	"pixvault/internal/store"
	"pixvault/internal/token"
)

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	if !s.acquireLimiter(s.uploadLimiter, w, r, "upload") {
		return
	}
	defer s.releaseLimiter(s.uploadLimiter)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.multipartMaxMemory); err != nil {
		s.writeErrorReq(w, r, httpStatusFromError(classifyMultipartError(err)), classifyMultipartError(err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("file is required"), ErrCodeMissingRequired))
		return
	}
	defer file.Close()

	tags, err := parseOptionalTags(r.FormValue("tags"))
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	expiry, err := parseOptionalExpiry(r.FormValue("expiry"), s.uploadTokenTTL)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	buffered := bufio.NewReader(file)
	contentType := strings.TrimSpace(header.Header.Get("Content-Type"))
	if contentType == "" {
		peek, _ := buffered.Peek(512)
		contentType = http.DetectContentType(peek)
	}

	stored, err := s.files.Store(r.Context(), buffered, StoreFileInput{
		Name:        header.Filename,
		ContentType: contentType,
		OwnerID:     r.FormValue("owner_id"),
		Tags:        tags,
	})
	if err != nil {
		// A body that hit the size cap surfaces as a read error from the store
		// path; report it as too large rather than a write failure.
		if isMaxBytesError(err) {
			s.writeErrorReq(w, r, http.StatusRequestEntityTooLarge, payloadTooLarge(fmt.Errorf("upload exceeds %d bytes", s.maxUploadBytes)))
			return
		}
		s.writeServiceError(w, r, err)
		return
	}

	raw, err := s.tokens.Mint(stored.ID, token.MintOptions{
		Subject:     stored.OwnerID,
		Permissions: []string{string(token.PermissionRead), string(token.PermissionDownload)},
		TTL:         expiry,
		Meta:        map[string]any{"name": stored.Name, "content_type": stored.ContentType},
	})
	if err != nil {
		s.writeServiceError(w, r, internalError(fmt.Errorf("mint upload token: %w", err)))
		return
	}

	s.writeJSON(w, http.StatusCreated, api.UploadResponse{
		ID:          stored.ID,
		Name:        stored.Name,
		Size:        stored.SizeBytes,
		ContentType: stored.ContentType,
		SHA256:      stored.SHA256,
		SignedURL:   signedURL(s.requestBaseURL(r), stored.ID, raw),
		ExpiresIn:   int64(expiry.Seconds()),
	})
}

func (s *Server) handleMintToken(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	var req api.TokenRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	if _, err := s.files.Info(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	perms, err := token.NormalizePermissions(req.Permissions)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequest(err))
		return
	}
	expiry, err := parseOptionalExpiry(req.Expiry, s.defaultTokenTTL)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	raw, err := s.tokens.Mint(id, token.MintOptions{
		Subject:     req.Subject,
		Permissions: perms,
		TTL:         expiry,
		Meta:        req.Meta,
	})
	if err != nil {
		s.writeServiceError(w, r, internalError(fmt.Errorf("mint token: %w", err)))
		return
	}

	s.writeJSON(w, http.StatusOK, api.TokenResponse{
		ID:          id,
		Token:       raw,
		SignedURL:   signedURL(s.requestBaseURL(r), id, raw),
		ExpiresIn:   int64(expiry.Seconds()),
		Permissions: perms,
	})
}

func (s *Server) handleServeFile(w http.ResponseWriter, r *http.Request) {
	s.serveFileContent(w, r, false)
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	s.serveFileContent(w, r, true)
}

func (s *Server) serveFileContent(w http.ResponseWriter, r *http.Request, attachment bool) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	required := token.PermissionRead
	if attachment {
		required = token.PermissionDownload
	}
	if _, ok := s.authorizeFileAccess(w, r, id, required); !ok {
		return
	}

	content, err := s.files.Open(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer content.Reader.Close()

	file := content.File
	disposition := "inline"
	if attachment {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(file.SizeBytes, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, file.Name))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Header().Set("ETag", strconv.Quote(file.ID))
	w.WriteHeader(http.StatusOK)

	// Headers are out; a failure from here on can only terminate the stream.
	// A client disconnect lands here too and just stops the copy.
	if _, err := io.Copy(w, content.Reader); err != nil {
		s.log().Warn("content stream interrupted", "id", file.ID, "error", err)
	}
}

func (s *Server) handleFileMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	if _, ok := s.authorizeFileAccess(w, r, id, token.PermissionRead); !ok {
		return
	}

	file, err := s.files.Info(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, file)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	deleted, err := s.files.Delete(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !deleted {
		s.writeErrorReq(w, r, http.StatusNotFound, notFound(fmt.Errorf("file not found: %s", id)))
		return
	}
	s.writeJSON(w, http.StatusOK, api.DeleteResponse{ID: id, Deleted: true})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	skip, err := queryInt(r, "skip")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	files, err := s.files.List(r.Context(), store.ListFilter{
		OwnerID: strings.TrimSpace(r.URL.Query().Get("owner")),
		Limit:   limit,
		Skip:    skip,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, files)
}

// authorizeFileAccess runs the full token gate for one request: presence,
// verification, file binding, and permission. The binding check runs before
// anything touches storage, so a wrong-file token never learns whether its
// target exists.
func (s *Server) authorizeFileAccess(w http.ResponseWriter, r *http.Request, id string, required token.Permission) (*token.Claims, bool) {
	raw := requestToken(r)
	if raw == "" {
		s.writeErrorReq(w, r, http.StatusUnauthorized,
			unauthorizedCode(fmt.Errorf("token is required"), "token_missing", ErrCodeTokenMissing))
		return nil, false
	}

	claims, err := s.tokens.Verify(raw)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusUnauthorized, classifyTokenError(err))
		return nil, false
	}

	if claims.FileID != id {
		s.writeErrorReq(w, r, http.StatusForbidden,
			forbidden(fmt.Errorf("token is bound to file %s, not %s", claims.FileID, id)))
		return nil, false
	}
	if !claims.HasPermission(required) {
		s.writeErrorReq(w, r, http.StatusForbidden,
			makeAPIError(http.StatusForbidden, "forbidden", ErrCodeTokenScope,
				fmt.Errorf("token does not grant %s", required)))
		return nil, false
	}
	return claims, true
}

func requestToken(r *http.Request) string {
	if raw := strings.TrimSpace(r.URL.Query().Get("token")); raw != "" {
		return raw
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if rest, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(rest)
	}
	return ""
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrSignatureMismatch):
		return unauthorizedCode(err, "signature_mismatch", ErrCodeTokenSignature)
	case errors.Is(err, token.ErrExpired):
		return unauthorizedCode(err, "token_expired", ErrCodeTokenExpired)
	default:
		return unauthorizedCode(token.ErrMalformed, "token_malformed", ErrCodeTokenMalformed)
	}
}

func classifyMultipartError(err error) error {
	if err == nil {
		return nil
	}
	if isMaxBytesError(err) {
		return payloadTooLarge(fmt.Errorf("request body too large"))
	}
	return badRequestCode(fmt.Errorf("invalid multipart request"), ErrCodeInvalidArgument)
}

func isMaxBytesError(err error) bool {
	if err == nil {
		return false
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}
