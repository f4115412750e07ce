package token

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// Permission names one action a capability token allows on its file. The set is
// open: callers may mint tokens with their own permission names, but read and
// download are the ones the gateway enforces.
type Permission string

const (
	PermissionRead     Permission = "read"
	PermissionDownload Permission = "download"
)

const (
	// DefaultTTL applies when a mint request does not name an expiry.
	DefaultTTL = 5 * time.Minute

	signingKeyLength = 32
	hkdfInfo         = "pixvault-capability-token-v1"
)

// Verification failure reasons. A token failing more than one check reports the
// strongest reason: tampering is never masked as expiry.
var (
	ErrExpired           = errors.New("token expired")
	ErrMalformed         = errors.New("token malformed")
	ErrSignatureMismatch = errors.New("token signature mismatch")
)

// Claims is the signed claim set embedded in a capability token. FileID binds
// the token to exactly one file; Subject identifies who the token was issued
// for and carries no authority of its own. Meta is echoed back verbatim on
// successful verification.
type Claims struct {
	jwt.RegisteredClaims
	FileID      string         `json:"file_id"`
	Permissions []string       `json:"perms"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// HasPermission reports whether the claim set grants the named permission.
func (c *Claims) HasPermission(p Permission) bool {
	if c == nil {
		return false
	}
	for _, candidate := range c.Permissions {
		if candidate == string(p) {
			return true
		}
	}
	return false
}

// Service mints and verifies capability tokens with a single server-held key.
// Both operations are pure: no storage, no shared mutable state, safe for
// unlimited concurrent use.
type Service struct {
	key []byte
	now func() time.Time
}

// NewService derives the HMAC signing key from the configured secret. An empty
// secret is a configuration error and must abort startup, not individual requests.
func NewService(secret string) (*Service, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("signing secret is required")
	}

	key := make([]byte, signingKeyLength)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}

	return &Service{key: key, now: time.Now}, nil
}

// MintOptions carries the optional claim inputs for Mint.
type MintOptions struct {
	Permissions []string
	Subject     string
	TTL         time.Duration
	Meta        map[string]any
}

// Mint signs a capability token scoped to one file id.
func (s *Service) Mint(fileID string, opts MintOptions) (string, error) {
	if s == nil || len(s.key) == 0 {
		return "", fmt.Errorf("token service is not configured")
	}
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return "", fmt.Errorf("file id is required")
	}
	perms, err := NormalizePermissions(opts.Permissions)
	if err != nil {
		return "", err
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := s.now().UTC()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strings.TrimSpace(opts.Subject),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		FileID:      fileID,
		Permissions: perms,
		Meta:        opts.Meta,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// Verify checks signature and expiry and returns the embedded claims. The error
// is always one of ErrExpired, ErrMalformed, or ErrSignatureMismatch.
func (s *Service) Verify(raw string) (*Claims, error) {
	if s == nil || len(s.key) == 0 {
		return nil, fmt.Errorf("token service is not configured")
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMalformed
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignatureMismatch
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		default:
			return nil, ErrMalformed
		}
	}

	if strings.TrimSpace(claims.FileID) == "" || len(claims.Permissions) == 0 {
		return nil, ErrMalformed
	}
	return claims, nil
}

// NormalizePermissions lowercases, dedupes, and validates a permission list.
// An empty list means the caller left permissions unspecified and gets read.
func NormalizePermissions(values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" {
			continue
		}
		for _, r := range value {
			if r > unicode.MaxASCII || unicode.IsSpace(r) {
				return nil, fmt.Errorf("permission must be ascii and non-space")
			}
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	if len(out) == 0 {
		out = []string{string(PermissionRead)}
	}
	return out, nil
}
