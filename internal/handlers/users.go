package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fastship/backend/internal/apperr"
	"github.com/fastship/backend/internal/revocation"
	"github.com/fastship/backend/internal/services"
	"github.com/fastship/backend/types"
)

// UserHandler provides registration, authentication, and the email
// verification and password reset endpoints.
type UserHandler struct {
	userService     *services.UserService
	shipmentService *services.ShipmentService
	revoked         *revocation.Store
	guard           *Guard
}

// NewUserHandler constructs a UserHandler with the provided dependencies.
func NewUserHandler(userService *services.UserService, shipmentService *services.ShipmentService, revoked *revocation.Store, guard *Guard) *UserHandler {
	return &UserHandler{
		userService:     userService,
		shipmentService: shipmentService,
		revoked:         revoked,
		guard:           guard,
	}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, handler *UserHandler) {
	r.Post("/signup", handler.Signup)
	r.Post("/token", handler.Login)
	r.Post("/verify-email", handler.VerifyEmail)
	r.Post("/resend-verification", handler.ResendVerification)
	r.Post("/password-reset/request", handler.RequestPasswordReset)
	r.Post("/password-reset/confirm", handler.ResetPassword)
	r.With(handler.guard.Require).Get("/decode", handler.Me)
	r.With(handler.guard.Require).Get("/logout", handler.Logout)
}

type SignupRequest struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	// Login accepts a username or an email.
	Login    string `json:"login"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

type VerifyEmailRequest struct {
	Token string `json:"token"`
}

type ResendVerificationRequest struct {
	Token string `json:"token,omitempty"`
	Email string `json:"email,omitempty"`
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// Signup creates an unverified account and triggers the verification
// email.
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.FullName == "" || req.Email == "" || req.Password == "" {
		writeBadRequest(w, "missing required fields")
		return
	}

	user, err := h.userService.Register(r.Context(), services.RegisterInput{
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": user.ID.String()})
}

// Login verifies credentials and returns an access token.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request")
		return
	}

	req.Login = strings.TrimSpace(req.Login)
	if req.Login == "" || req.Password == "" {
		writeBadRequest(w, "missing credentials")
		return
	}

	accessToken, err := h.userService.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: accessToken})
}

// Me returns the caller's profile with purchases and sales attached.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	purchases, err := h.shipmentService.Purchases(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	sales, err := h.shipmentService.Sales(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types.Profile{
		ID:        user.ID,
		Username:  user.Username,
		FullName:  user.FullName,
		Email:     user.Email,
		Purchases: purchases,
		Sales:     sales,
	})
}

// Logout revokes the presented token for the rest of its lifetime.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.revoked.Revoke(r.Context(), claims); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VerifyEmail redeems a verification token.
func (h *UserHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeBadRequest(w, "invalid request")
		return
	}

	if err := h.userService.VerifyEmail(r.Context(), req.Token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

// ResendVerification re-issues a verification token addressed by a
// stale token or an explicit email.
func (h *UserHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req ResendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request")
		return
	}

	if err := h.userService.ResendVerification(r.Context(), req.Token, strings.TrimSpace(req.Email)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// RequestPasswordReset issues a reset token and queues the reset email.
func (h *UserHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		writeBadRequest(w, "invalid request")
		return
	}

	if err := h.userService.RequestPasswordReset(r.Context(), strings.TrimSpace(req.Email)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// ResetPassword redeems a reset token and replaces the password.
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || req.NewPassword == "" {
		writeBadRequest(w, "invalid request")
		return
	}

	if err := h.userService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// currentUser resolves the full user record for the decoded claims.
// A token whose subject no longer exists fails unauthenticated.
func (h *UserHandler) currentUser(r *http.Request) (types.User, error) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		return types.User{}, err
	}
	user, err := h.userService.GetByID(r.Context(), claims.User.ID)
	if err != nil {
		if apperr.Is(err, apperr.CodeUserNotFound) {
			return types.User{}, apperr.New(apperr.CodeTokenInvalid, "No authenticated user found")
		}
		return types.User{}, err
	}
	return user, nil
}
