package auth

import (
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrClientDenied means a user asked for a client other than their own
	ErrClientDenied = errors.New("Client access denied for user")
	// ErrNoClient means a non-admin user has no client mapping
	ErrNoClient = errors.New("No client access for user")
	// ErrAdminNeedsClient means an admin gave no way to tell which client to show
	ErrAdminNeedsClient = errors.New("Admin access requires client context (add ?client=...)")
)

// StatusFor maps a resolution error to the HTTP status returned to the caller
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrAdminNeedsClient):
		return http.StatusBadRequest
	case errors.Is(err, ErrClientDenied), errors.Is(err, ErrNoClient):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Resolve picks the client whose rows the caller sees.
// An explicit request wins, then the client the key belongs to, then the user's own mapping.
func Resolve(g Grant, mapped, requested string) (string, error) {

	requested = strings.TrimSpace(requested)

	switch {
	case requested != "":
		if g.Admin {
			return requested, nil
		}
		if requested != mapped {
			return "", ErrClientDenied
		}
		return mapped, nil
	case g.ClientFromKey != "":
		if !g.Admin && mapped != "" && g.ClientFromKey != mapped {
			return "", ErrClientDenied
		}
		return g.ClientFromKey, nil
	case g.Admin:
		return "", ErrAdminNeedsClient
	case mapped == "":
		return "", ErrNoClient
	default:
		return mapped, nil
	}
}
