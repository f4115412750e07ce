package main

import (
	"context"
	"errors"
	"net"

	"pixvault/internal/api"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "token_missing", "token_expired", "token_malformed", "signature_mismatch":
			lines = append(lines, "hint: mint a fresh token with: pixvault token <file-id>")
		case "forbidden":
			lines = append(lines, "hint: admin operations require PIXVAULT_ADMIN_TOKEN; token access is scoped per file.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify PIXVAULT_API_URL points to a pixvault server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase PIXVAULT_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a pixvault server is running at PIXVAULT_API_URL.",
			"hint: start a local server manually with: pixvault srv",
			"hint: you can increase PIXVAULT_HTTP_TIMEOUT for slower environments.",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
