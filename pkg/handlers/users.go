package handlers

import (
	"net/http"
	"strings"
	"time"

	"hivemind-backend/pkg/config"
	"hivemind-backend/pkg/middleware"
	"hivemind-backend/pkg/models"
	"hivemind-backend/pkg/spaces"
	"hivemind-backend/pkg/utils"
)

type UsersHandler struct {
	config  *config.Config
	manager *spaces.Manager
}

func NewUsersHandler(cfg *config.Config, manager *spaces.Manager) *UsersHandler {
	return &UsersHandler{config: cfg, manager: manager}
}

type createUserRequest struct {
	DisplayName   string `json:"display_name"`
	ContactMethod string `json:"contact_method,omitempty"`
}

// POST /api/users
// Registers a user and returns an access token for them. Token signing
// normally lives in the fronting system; this endpoint doubles as the
// development entry point.
func (h *UsersHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid JSON body"); return }
	if strings.TrimSpace(req.DisplayName) == "" { utils.WriteBadRequestResponse(w, "display_name required"); return }

	user, err := h.manager.CreateUser(req.DisplayName, req.ContactMethod)
	if err != nil { utils.WriteInternalServerErrorResponse(w, err.Error()); return }

	token, err := utils.GenerateAccessToken(user.ID, user.DisplayName, h.config.JWTSecret, 24*time.Hour)
	if err != nil { utils.WriteInternalServerErrorResponse(w, err.Error()); return }

	utils.WriteCreatedResponse(w, map[string]interface{}{
		"user":         user,
		"access_token": token,
	})
}

// GET /api/me
func (h *UsersHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.RequireIdentity(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	user, err := h.manager.GetUser(identity.UserID)
	if err != nil { utils.WriteNotFoundResponse(w, "user not found"); return }
	utils.WriteSuccessResponse(w, user)
}

// PUT /api/me/consent
func (h *UsersHandler) UpdateConsent(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.RequireIdentity(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	var consent models.ConsentConfig
	if err := utils.ParseJSONBody(r, &consent); err != nil { utils.WriteBadRequestResponse(w, "Invalid JSON body"); return }

	user, err := h.manager.UpdateConsent(identity.UserID, consent)
	if err != nil { utils.WriteInternalServerErrorResponse(w, err.Error()); return }
	utils.WriteSuccessResponse(w, user)
}
