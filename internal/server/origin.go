// Package server normalizes and validates HTTP origins for WebSocket upgrade
// requests to enforce the configured access control.
package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/secureroom/chat-server/internal/logger"
)

// originPolicy decides which browser origins may open a WebSocket. Requests
// without an Origin header (non-browser clients) are always allowed; the
// header is a browser attestation, not an authentication mechanism.
type originPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
}

func newOriginPolicy(origins []string) originPolicy {
	policy := originPolicy{allowed: make(map[string]struct{})}

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			policy.allowAll = true
			continue
		}

		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			logger.Warnf("Ignoring invalid origin in configuration: %q", origin)
			continue
		}
		policy.allowed[normalized] = struct{}{}
	}

	return policy
}

// normalizeOrigin reduces an origin to lowercased scheme://host form.
func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

func (p originPolicy) isOriginAllowed(r *http.Request) bool {
	originHeader := r.Header.Get("Origin")
	if originHeader == "" {
		return true
	}

	normalized, ok := normalizeOrigin(originHeader)
	if !ok {
		return false
	}

	if p.allowAll {
		return true
	}
	_, exists := p.allowed[normalized]
	return exists
}

func (p originPolicy) checkOrigin(r *http.Request) bool {
	if p.isOriginAllowed(r) {
		return true
	}
	logger.Warnf("Blocked WebSocket connection from disallowed origin: %q", r.Header.Get("Origin"))
	return false
}
