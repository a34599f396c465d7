package server

import (
	"net"
	"net/http"
	"strings"

	"github.com/evanmorse/careertrack/internal/auth"
	"github.com/evanmorse/careertrack/internal/user"
)

// authedHandler is a handler that runs with validated token claims.
type authedHandler func(w http.ResponseWriter, r *http.Request, claims *auth.Claims)

// withAuth validates the bearer token and passes the claims through.
func (s *Server) withAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		claims, err := s.tokens.Validate(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r, claims)
	}
}

// withAdmin additionally requires the admin role claim.
func (s *Server) withAdmin(next authedHandler) http.HandlerFunc {
	return s.withAuth(func(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
		if claims.Role != user.RoleAdmin {
			respondError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next(w, r, claims)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// clientIP extracts the client address for rate limiting.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
