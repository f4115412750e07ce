package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"pixvault/internal/blobstore"
	"pixvault/internal/store"
	"pixvault/internal/token"
)

const (
	adminTokenEnvKey       = "PIXVAULT_ADMIN_TOKEN"
	allowRemoteEnvKey      = "PIXVAULT_ALLOW_REMOTE"
	readHeaderTimeout      = 5 * time.Second
	readTimeout            = 5 * time.Minute
	idleTimeout            = 60 * time.Second
	uploadConcurrencyLimit = 8
)

// Options carries the tunables the server needs beyond its dependencies.
type Options struct {
	BaseURL            string
	MaxUploadBytes     int64
	MultipartMaxMemory int64
	DefaultTokenTTL    time.Duration
	UploadTokenTTL     time.Duration
}

// Server wraps HTTP handlers for the pixvault API.
type Server struct {
	addr               string
	files              *FileService
	tokens             *token.Service
	fileStore          store.FileStore
	blobStore          blobstore.Store
	logger             *slog.Logger
	adminToken         string
	baseURL            string
	maxUploadBytes     int64
	multipartMaxMemory int64
	defaultTokenTTL    time.Duration
	uploadTokenTTL     time.Duration
	uploadLimiter      chan struct{}
}

// New creates a new server instance.
func New(addr string, fileStore store.FileStore, blobStore blobstore.Store, tokens *token.Service, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 100 << 20
	}
	if opts.MultipartMaxMemory <= 0 {
		opts.MultipartMaxMemory = 8 << 20
	}
	if opts.DefaultTokenTTL <= 0 {
		opts.DefaultTokenTTL = token.DefaultTTL
	}
	if opts.UploadTokenTTL <= 0 {
		opts.UploadTokenTTL = 24 * time.Hour
	}

	return &Server{
		addr:               addr,
		files:              NewFileService(fileStore, blobStore),
		tokens:             tokens,
		fileStore:          fileStore,
		blobStore:          blobStore,
		logger:             logger,
		adminToken:         strings.TrimSpace(os.Getenv(adminTokenEnvKey)),
		baseURL:            strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		maxUploadBytes:     opts.MaxUploadBytes,
		multipartMaxMemory: opts.MultipartMaxMemory,
		defaultTokenTTL:    opts.DefaultTokenTTL,
		uploadTokenTTL:     opts.UploadTokenTTL,
		uploadLimiter:      make(chan struct{}, uploadConcurrencyLimit),
	}
}

// ListenAndServe starts the HTTP server. WriteTimeout is left unset so large
// downloads are not cut off mid-stream.
func (s *Server) ListenAndServe() error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
	}

	return server.ListenAndServe()
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) acquireLimiter(limiter chan struct{}, w http.ResponseWriter, r *http.Request, name string) bool {
	if limiter == nil {
		return true
	}
	select {
	case limiter <- struct{}{}:
		return true
	default:
		err := apiError{
			status:  http.StatusTooManyRequests,
			code:    "resource_exhausted",
			errCode: ErrCodeResourceExhausted,
			err:     fmt.Errorf("too many concurrent %s requests", name),
		}
		s.writeErrorReq(w, r, http.StatusTooManyRequests, err)
		return false
	}
}

func (s *Server) releaseLimiter(limiter chan struct{}) {
	if limiter == nil {
		return
	}
	select {
	case <-limiter:
	default:
	}
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// withAdminAuth gates the admin surface behind the configured admin token.
// With no token configured the surface stays open for local use.
func (s *Server) withAdminAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken != "" && r.Header.Get("X-Admin-Token") != s.adminToken {
			s.writeErrorReq(w, r, http.StatusForbidden, forbidden(fmt.Errorf("admin token required")))
			return
		}
		next(w, r)
	}
}
