package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/evanmorse/careertrack/internal/assistant"
	"github.com/evanmorse/careertrack/internal/auth"
	"github.com/evanmorse/careertrack/internal/chat"
	"github.com/evanmorse/careertrack/internal/mailer"
	"github.com/evanmorse/careertrack/internal/ratelimit"
	"github.com/evanmorse/careertrack/internal/user"
	"github.com/evanmorse/careertrack/internal/ws"
)

// shutdownTimeout bounds how long Run waits for in-flight requests.
const shutdownTimeout = 5 * time.Second

// Server is the HTTP surface of the platform: auth, profile and career
// CRUD, admin tooling, the AI assistant and the realtime WebSocket
// endpoint.
type Server struct {
	addr      string
	mux       *http.ServeMux
	users     *user.Repository
	tokens    *auth.TokenManager
	gateway   *chat.Gateway
	wsHandler *ws.Handler
	advisor   *assistant.Client
	mail      *mailer.Mailer
	loginRate *ratelimit.Limiter
}

// Option configures a Server.
type Option func(*Server)

// WithAssistant enables the AI career assistant endpoint.
func WithAssistant(a *assistant.Client) Option {
	return func(s *Server) { s.advisor = a }
}

// WithMailer enables mail notifications for registration, login and
// CSV import.
func WithMailer(m *mailer.Mailer) Option {
	return func(s *Server) { s.mail = m }
}

// WithLoginRateLimit overrides the default limiter on the auth endpoints.
func WithLoginRateLimit(l *ratelimit.Limiter) Option {
	return func(s *Server) { s.loginRate = l }
}

// defaultLoginRate allows 10 auth attempts per client IP per minute.
func defaultLoginRate() *ratelimit.Limiter {
	return ratelimit.New(10, time.Minute)
}

// New creates a Server listening on addr.
func New(addr string, users *user.Repository, tokens *auth.TokenManager, gateway *chat.Gateway, wsHandler *ws.Handler, opts ...Option) *Server {
	s := &Server{
		addr:      addr,
		mux:       http.NewServeMux(),
		users:     users,
		tokens:    tokens,
		gateway:   gateway,
		wsHandler: wsHandler,
		loginRate: defaultLoginRate(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	s.mux.HandleFunc("GET /api/user/profile", s.withAuth(s.handleProfileGet))
	s.mux.HandleFunc("PUT /api/user/profile", s.withAuth(s.handleProfileUpdate))
	s.mux.HandleFunc("GET /api/user/career", s.withAuth(s.handleCareerGet))
	s.mux.HandleFunc("POST /api/user/career", s.withAuth(s.handleCareerAdd))

	s.mux.HandleFunc("GET /api/admin/users", s.withAdmin(s.handleAdminUsers))
	s.mux.HandleFunc("DELETE /api/admin/users/{id}", s.withAdmin(s.handleAdminDeleteUser))
	s.mux.HandleFunc("GET /api/admin/stats", s.withAdmin(s.handleAdminStats))
	s.mux.HandleFunc("GET /api/admin/active-users", s.withAdmin(s.handleActiveUsers))
	s.mux.HandleFunc("POST /api/admin/upload-csv", s.withAdmin(s.handleUploadCSV))
	s.mux.HandleFunc("GET /api/admin/export-csv", s.withAdmin(s.handleExportCSV))

	s.mux.HandleFunc("POST /api/chatbot", s.withAuth(s.handleChatbot))

	if s.wsHandler != nil {
		s.mux.Handle("GET /ws", s.wsHandler)
	}
}

// Handler returns the root handler, used by tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Run serves until ctx is cancelled, then shuts down gracefully,
// closing WebSocket connections last.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info().Str("addr", s.addr).Msg("server: listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)

	if s.wsHandler != nil {
		s.wsHandler.ConnMgr().Shutdown()
	}
	s.gateway.Close()
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("server: response encode failed")
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"message": msg})
}
