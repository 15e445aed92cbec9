package handlers

import (
	"errors"
	"net/http"
	"time"

	"trace-crm-sync/pkg/auth"
	"trace-crm-sync/pkg/config"
	"trace-crm-sync/pkg/middleware"
	"trace-crm-sync/pkg/models"
	"trace-crm-sync/pkg/utils"
)

// AuthHandler serves registration, credential and federated sign-in, token
// refresh and the cached profile projection.
type AuthHandler struct {
	config *config.Config
	auth   *auth.Service
}

func NewAuthHandler(cfg *config.Config, authService *auth.Service) *AuthHandler {
	return &AuthHandler{config: cfg, auth: authService}
}

// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.UserRegisterRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	resp, err := h.auth.Register(req)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			utils.WriteConflictResponse(w, err.Error())
			return
		}
		utils.WriteBadRequestResponse(w, err.Error())
		return
	}
	utils.WriteCreatedResponse(w, resp)
}

// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.UserLoginRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	resp, err := h.auth.Login(req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			utils.WriteUnauthorizedResponse(w, err.Error())
			return
		}
		utils.WriteInternalServerErrorResponse(w, err.Error())
		return
	}
	utils.WriteSuccessResponse(w, resp)
}

// POST /api/auth/google
// Exchanges the OAuth authorization code posted by the popup flow.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	resp, err := h.auth.LoginWithGoogle(req.Code)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, err.Error())
		return
	}
	utils.WriteSuccessResponse(w, resp)
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout()
	utils.WriteSuccessResponse(w, map[string]interface{}{"message": "Logged out"})
}

// POST /api/auth/refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.RefreshToken == "" {
		utils.WriteBadRequestResponse(w, "refresh_token required")
		return
	}

	accessToken, expiresIn, err := h.auth.Refresh(req.RefreshToken)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, err.Error())
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"access_token": accessToken,
		"expires_in":   expiresIn,
	})
}

// GET /api/auth/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	account, err := h.auth.GetUser(user.ID)
	if err != nil {
		utils.WriteNotFoundResponse(w, err.Error())
		return
	}
	utils.WriteSuccessResponse(w, account.Profile())
}

// GET /api/health
func (h *AuthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"service":     "trace-crm-sync",
		"version":     "1.0.0",
		"environment": h.config.Environment,
		"timestamp":   time.Now().Unix(),
		"status":      "healthy",
	})
}
