package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"photovault/internal/logging"
	"photovault/internal/metrics"
)

// SessionCookieName is the cookie used to carry the session token.
const SessionCookieName = "photovault_session"

const (
	minPasswordLength = 6
	maxPasswordLength = 72
)

type setupRequest struct {
	Password string `json:"password"`
}

type loginRequest struct {
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func validatePassword(password string) string {
	if len(password) < minPasswordLength {
		return "password must be at least 6 characters"
	}
	// bcrypt truncates input beyond 72 bytes.
	if len(password) > maxPasswordLength {
		return "password must be at most 72 characters"
	}
	return ""
}

// CheckSetupRequired reports whether first-run setup is still needed.
func (h *Handlers) CheckSetupRequired(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]bool{"setup_required": !h.db.HasUsers()})
}

// Setup creates the initial user and logs them in. It refuses to run
// once a user already exists.
func (h *Handlers) Setup(w http.ResponseWriter, r *http.Request) {
	if h.db.HasUsers() {
		writeJSONError(w, "setup already completed", http.StatusConflict)
		return
	}

	var req setupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if msg := validatePassword(req.Password); msg != "" {
		writeJSONError(w, msg, http.StatusBadRequest)
		return
	}

	if err := h.db.CreateUser(req.Password); err != nil {
		logging.Error("failed to create user: %v", err)
		writeJSONError(w, "failed to create user", http.StatusInternalServerError)
		return
	}
	logging.Info("initial user created via setup")

	user, err := h.db.ValidatePassword(req.Password)
	if err != nil {
		writeJSONError(w, "failed to start session", http.StatusInternalServerError)
		return
	}
	h.issueSession(w, user.ID)
}

// Login validates the password and issues a session cookie.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.db.ValidatePassword(req.Password)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
		logging.Warn("failed login attempt from %s", r.RemoteAddr)
		writeJSONError(w, "invalid password", http.StatusUnauthorized)
		return
	}

	metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
	h.issueSession(w, user.ID)
}

func (h *Handlers) issueSession(w http.ResponseWriter, userID int64) {
	sess, err := h.db.CreateSession(userID)
	if err != nil {
		logging.Error("failed to create session: %v", err)
		writeJSONError(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSONStatus(w, "ok")
}

// Logout deletes the session and clears the cookie.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.db.DeleteSession(cookie.Value); err != nil {
			logging.Warn("failed to delete session: %v", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSONStatus(w, "ok")
}

// CheckAuth reports whether the request carries a valid session.
func (h *Handlers) CheckAuth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]bool{"authenticated": h.sessionValid(r)})
}

// ChangePassword verifies the current password and replaces it.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if _, err := h.db.ValidatePassword(req.CurrentPassword); err != nil {
		writeJSONError(w, "current password is incorrect", http.StatusUnauthorized)
		return
	}
	if msg := validatePassword(req.NewPassword); msg != "" {
		writeJSONError(w, msg, http.StatusBadRequest)
		return
	}

	if err := h.db.UpdatePassword(req.NewPassword); err != nil {
		logging.Error("failed to update password: %v", err)
		writeJSONError(w, "failed to update password", http.StatusInternalServerError)
		return
	}

	logging.Info("password changed")
	writeJSONStatus(w, "ok")
}

func (h *Handlers) sessionValid(r *http.Request) bool {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return false
	}
	_, err = h.db.ValidateSession(cookie.Value)
	return err == nil
}

// RequireAuth rejects requests that lack a valid session. Until setup
// has been completed every request passes so the UI can bootstrap.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.db.HasUsers() && !h.sessionValid(r) {
			writeJSONError(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
