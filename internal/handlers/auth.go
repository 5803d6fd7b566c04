package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/duetrack/deadline-api/internal/metrics"
	"github.com/duetrack/deadline-api/internal/repo"
	"github.com/duetrack/deadline-api/internal/token"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// ==========================
// Auth Handler
// ==========================
type AuthHandler struct {
	UserRepo *repo.UserRepo
	Secret   []byte
	Expiry   time.Duration
}

// ==========================
// Register (bcrypt hash, unique username, returns a session token)
// ==========================
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid json", http.StatusBadRequest)
		return
	}

	fields := make(map[string]string)
	if input.Username == "" {
		fields["username"] = "required"
	}
	if input.Password == "" {
		fields["password"] = "required"
	}
	if len(fields) > 0 {
		metrics.RecordAuth("register", "rejected")
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		metrics.RecordAuth("register", "error")
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	user, err := h.UserRepo.Create(r.Context(), input.Username, string(hashed))
	if err != nil {
		// Unique violation on username: the store enforces one record per username.
		if e, ok := err.(*pq.Error); ok && e.Code == "23505" {
			metrics.RecordAuth("register", "rejected")
			JSONError(w, "user already exists", http.StatusBadRequest)
			return
		}
		slog.Error("register: create user failed", "error", err)
		metrics.RecordAuth("register", "error")
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	h.issueToken(w, user.ID, user.Username, "register")
}

// ==========================
// Login (verifies bcrypt hash; unknown user and wrong password answer alike)
// ==========================
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid json", http.StatusBadRequest)
		return
	}

	user, err := h.UserRepo.GetByUsername(r.Context(), input.Username)
	if err != nil {
		metrics.RecordAuth("login", "rejected")
		JSONError(w, "invalid credentials", http.StatusBadRequest)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		metrics.RecordAuth("login", "rejected")
		JSONError(w, "invalid credentials", http.StatusBadRequest)
		return
	}

	h.issueToken(w, user.ID, user.Username, "login")
}

func (h *AuthHandler) issueToken(w http.ResponseWriter, userID int, username, action string) {
	signed, err := token.Issue(h.Secret, userID, username, h.Expiry, time.Now())
	if err != nil {
		metrics.RecordAuth(action, "error")
		JSONError(w, "failed to issue token", http.StatusInternalServerError)
		return
	}

	metrics.RecordAuth(action, "ok")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": signed})
}
