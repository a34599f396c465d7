package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/evanmorse/careertrack/internal/assistant"
	"github.com/evanmorse/careertrack/internal/auth"
	"github.com/evanmorse/careertrack/internal/csvio"
	"github.com/evanmorse/careertrack/internal/user"
)

// maxCSVUpload bounds the accepted CSV upload size.
const maxCSVUpload = 10 << 20

type registerRequest struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	CurrentRole string   `json:"current_role"`
	Experience  string   `json:"experience"`
	Skills      []string `json:"skills"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.loginRate.Allow(clientIP(r)) {
		respondError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	u := &user.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         user.RoleUser,
		CurrentRole:  req.CurrentRole,
		Experience:   req.Experience,
		Skills:       req.Skills,
		Status:       user.StatusActive,
	}
	if err := s.users.Create(r.Context(), u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			respondError(w, http.StatusBadRequest, "User already exists with this email")
			return
		}
		log.Error().Err(err).Msg("server: register failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if s.mail != nil {
		go func() {
			text := fmt.Sprintf("Welcome %s! Your account has been successfully created. You can now login with your credentials.", u.Name)
			html := fmt.Sprintf("<h2>Welcome %s!</h2><p>Your account has been successfully created on our Career Tracking Platform.</p>", u.Name)
			if err := s.mail.Send(u.Email, "Welcome to Career Tracking Platform", text, html); err != nil {
				log.Warn().Err(err).Msg("server: welcome mail failed")
			}
		}()
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"message": "User registered successfully",
		"user_id": u.ID,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.loginRate.Allow(clientIP(r)) {
		respondError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, err := s.users.FindByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			respondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		log.Error().Err(err).Msg("server: login lookup failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !auth.VerifyPassword(req.Password, u.PasswordHash) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if req.Role == user.RoleAdmin && u.Role != user.RoleAdmin {
		respondError(w, http.StatusForbidden, "Unauthorized access")
		return
	}

	token, err := s.tokens.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		log.Error().Err(err).Msg("server: token issue failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if s.mail != nil {
		go func() {
			text := fmt.Sprintf("Hello %s, you have successfully logged in to your account at %s.", u.Name, time.Now().Format(time.RFC1123))
			if err := s.mail.Send(u.Email, "Login Notification", text, ""); err != nil {
				log.Warn().Err(err).Msg("server: login mail failed")
			}
		}()
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   token,
		"user":    u,
	})
}

func (s *Server) handleProfileGet(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	u, err := s.users.FindByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			respondError(w, http.StatusNotFound, "User not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": u})
}

type profileUpdateRequest struct {
	Name        string   `json:"name"`
	CurrentRole string   `json:"current_role"`
	Experience  string   `json:"experience"`
	Skills      []string `json:"skills"`
}

func (s *Server) handleProfileUpdate(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	var req profileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, err := s.users.UpdateProfile(r.Context(), claims.UserID, req.Name, req.CurrentRole, req.Experience, req.Skills)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			respondError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Error().Err(err).Msg("server: profile update failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Profile updated successfully",
		"user":    u,
	})
}

func (s *Server) handleCareerGet(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	entries, err := s.users.CareerHistory(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	activities, err := s.users.Activities(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"career_history": entries,
		"activities":     activities,
	})
}

type careerAddRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

func (s *Server) handleCareerAdd(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	var req careerAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}

	if _, err := s.users.AddCareerEntry(r.Context(), claims.UserID, req.Title, req.Description, req.Type); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			respondError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Error().Err(err).Msg("server: career add failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.handleCareerGet(w, r, claims)
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	users, err := s.users.List(r.Context(), false)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	id := r.PathValue("id")
	if err := s.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			respondError(w, http.StatusNotFound, "User not found or cannot be deleted")
			return
		}
		log.Error().Err(err).Msg("server: user delete failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	stats, err := s.users.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp := map[string]any{
		"total_users":          stats.TotalUsers,
		"active_users":         stats.ActiveUsers,
		"total_career_changes": stats.TotalCareerChanges,
		"recent_activities":    stats.RecentActivities,
		"online_users":         s.gateway.Presence().OnlineCount(),
	}
	if s.wsHandler != nil {
		cs := s.wsHandler.ConnMgr().Stats()
		resp["connections"] = map[string]any{
			"active":         cs.Active,
			"rejected":       cs.Rejected,
			"dropped_events": cs.DroppedMessages,
			"idle_reaped":    cs.IdleReaped,
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleActiveUsers returns the roster a newly connected administrator
// reconciles presence diffs against. The snapshot may lag diffs received
// over the WebSocket; consumers resolve by last change wins.
func (s *Server) handleActiveUsers(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	users, err := s.users.List(r.Context(), true)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleUploadCSV(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	if err := r.ParseMultipartForm(maxCSVUpload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, _, err := r.FormFile("csv_file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No CSV file provided")
		return
	}
	defer file.Close()

	var notifier csvio.Notifier
	if s.mail != nil {
		notifier = s.mail
	}
	importer := csvio.NewImporter(s.users, notifier)
	count, err := importer.Import(r.Context(), file)
	if err != nil {
		if errors.Is(err, csvio.ErrMissingHeader) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("server: csv import failed")
		respondError(w, http.StatusInternalServerError, "Error importing users")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Successfully imported %d users", count),
		"count":   count,
	})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "users_export_"+time.Now().Format("2006-01-02")+".csv"))
	if err := csvio.Export(r.Context(), s.users, w); err != nil {
		log.Error().Err(err).Msg("server: csv export failed")
	}
}

type chatbotRequest struct {
	Message     string                `json:"message"`
	UserContext assistant.UserContext `json:"user_context"`
}

func (s *Server) handleChatbot(w http.ResponseWriter, r *http.Request, _ *auth.Claims) {
	if s.advisor == nil {
		respondError(w, http.StatusServiceUnavailable, "Assistant is not configured")
		return
	}

	var req chatbotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := s.advisor.Reply(r.Context(), req.Message, req.UserContext)
	if err != nil {
		log.Error().Err(err).Msg("server: assistant request failed")
		respondError(w, http.StatusInternalServerError, "Failed to process your request")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"response": reply})
}
