package server

import (
	"net/http"
	"strings"
)

// requestBaseURL resolves the public base URL for signed links: the configured
// base URL wins, then forwarding headers from a proxy, then the request host.
func (s *Server) requestBaseURL(r *http.Request) string {
	if s != nil && s.baseURL != "" {
		return s.baseURL
	}
	if r == nil {
		return ""
	}

	scheme := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))
	if scheme == "" {
		if r.TLS != nil {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}
	host := strings.TrimSpace(r.Header.Get("X-Forwarded-Host"))
	if host == "" {
		host = r.Host
	}
	if host == "" {
		return ""
	}
	return scheme + "://" + host
}

func signedURL(base, id, rawToken string) string {
	base = strings.TrimRight(base, "/")
	return base + "/v1/files/" + id + "?token=" + rawToken
}
