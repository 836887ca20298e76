package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"hivemind-backend/pkg/database"
	"hivemind-backend/pkg/middleware"
	"hivemind-backend/pkg/models"
	"hivemind-backend/pkg/policy"
	"hivemind-backend/pkg/spaces"
	"hivemind-backend/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

type SpacesHandler struct {
	manager *spaces.Manager
	store   database.Store
}

func NewSpacesHandler(manager *spaces.Manager, store database.Store) *SpacesHandler {
	return &SpacesHandler{manager: manager, store: store}
}

// writeMembershipError maps structured membership failures onto
// distinct status codes.
func writeMembershipError(w http.ResponseWriter, err error) bool {
	var merr *spaces.MembershipError
	if !errors.As(err, &merr) {
		return false
	}
	switch merr.Reason {
	case spaces.ReasonNotFound:
		utils.WriteNotFoundResponse(w, "space not found")
	case spaces.ReasonInviteMismatch:
		utils.WriteForbiddenResponse(w, "invite code does not match")
	case spaces.ReasonAlreadyMember:
		utils.WriteConflictResponse(w, "already a member of this space")
	case spaces.ReasonCapacityExceeded:
		utils.WriteConflictResponse(w, "space is at capacity")
	default:
		utils.WriteInternalServerErrorResponse(w, merr.Error())
	}
	return true
}

type createSpaceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SpaceType   string `json:"space_type"`
	Template    string `json:"template,omitempty"`
}

// POST /api/spaces
func (h *SpacesHandler) CreateSpace(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.RequireIdentity(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	var req createSpaceRequest
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid JSON body"); return }
	if strings.TrimSpace(req.Name) == "" { utils.WriteBadRequestResponse(w, "name required"); return }

	spaceType := models.SpaceType(req.SpaceType)
	switch spaceType {
	case models.SpacePair, models.SpaceGroup, models.SpacePublic:
	default:
		utils.WriteBadRequestResponse(w, "space_type must be pair, group or public")
		return
	}

	space, err := h.manager.CreateSpace(identity.UserID, req.Name, req.Description, spaceType, req.Template)
	if err != nil { utils.WriteInternalServerErrorResponse(w, err.Error()); return }
	utils.WriteCreatedResponse(w, space)
}

// GET /api/spaces
func (h *SpacesHandler) ListMySpaces(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.RequireIdentity(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	list, err := h.manager.ListUserSpaces(identity.UserID)
	if err != nil {
		if err == database.ErrNotFound { utils.WriteNotFoundResponse(w, "user not found"); return }
		utils.WriteInternalServerErrorResponse(w, err.Error())
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"spaces": list})
}

// GET /api/spaces/{spaceID}
func (h *SpacesHandler) GetSpace(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.RequireIdentity(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	spaceID := chiRoute.URLParam(r, "spaceID")
	space, err := h.manager.GetSpace(spaceID)
	if err != nil { utils.WriteNotFoundResponse(w, "space not found"); return }
	if !space.IsMember(identity.UserID) { utils.WriteForbiddenResponse(w, "Not a member of this space"); return }
	utils.WriteSuccessResponse(w, space)
}

type joinRequest struct {
	InviteCode string `json:"invite_code"`
}

// POST /api/spaces/{spaceID}/join
func (h *SpacesHandler) JoinSpace(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.RequireIdentity(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	var req joinRequest
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid JSON body"); return }

	spaceID := chiRoute.URLParam(r, "spaceID")
	space, err := h.manager.JoinSpace(identity.UserID, spaceID, req.InviteCode)
	if err != nil {
		if writeMembershipError(w, err) { return }
		utils.WriteInternalServerErrorResponse(w, err.Error())
		return
	}
	utils.WriteSuccessResponse(w, space)
}

// POST /api/spaces/join
// Join by invite code alone, without knowing the space id.
func (h *SpacesHandler) JoinByInviteCode(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.RequireIdentity(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	var req joinRequest
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid JSON body"); return }
	if strings.TrimSpace(req.InviteCode) == "" { utils.WriteBadRequestResponse(w, "invite_code required"); return }

	space, err := h.manager.JoinByInviteCode(identity.UserID, req.InviteCode)
	if err != nil {
		if writeMembershipError(w, err) { return }
		utils.WriteInternalServerErrorResponse(w, err.Error())
		return
	}
	utils.WriteSuccessResponse(w, space)
}

// POST /api/spaces/{spaceID}/leave
func (h *SpacesHandler) LeaveSpace(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.RequireIdentity(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	spaceID := chiRoute.URLParam(r, "spaceID")
	if err := h.manager.LeaveSpace(identity.UserID, spaceID); err != nil {
		if writeMembershipError(w, err) { return }
		utils.WriteInternalServerErrorResponse(w, err.Error())
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"left": spaceID})
}

// GET /api/spaces/{spaceID}/members
func (h *SpacesHandler) GetMembers(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.RequireIdentity(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	spaceID := chiRoute.URLParam(r, "spaceID")
	space, err := h.manager.GetSpace(spaceID)
	if err != nil { utils.WriteNotFoundResponse(w, "space not found"); return }
	if !space.IsMember(identity.UserID) { utils.WriteForbiddenResponse(w, "Not a member of this space"); return }

	members, err := h.manager.GetSpaceMembers(spaceID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, err.Error()); return }
	utils.WriteSuccessResponse(w, map[string]interface{}{"members": members})
}

type updatePolicyRequest struct {
	models.Policy
	// Optional textual rules, e.g. "sensitivity > 0.6"; parsed into
	// the structured form and appended to require_approval_if.
	RuleText []string `json:"require_approval_if_text,omitempty"`
}

// PUT /api/spaces/{spaceID}/policy
func (h *SpacesHandler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.RequireIdentity(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	spaceID := chiRoute.URLParam(r, "spaceID")
	space, err := h.manager.GetSpace(spaceID)
	if err != nil { utils.WriteNotFoundResponse(w, "space not found"); return }
	if !space.IsMember(identity.UserID) { utils.WriteForbiddenResponse(w, "Not a member of this space"); return }

	var req updatePolicyRequest
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid JSON body"); return }

	if len(req.RuleText) > 0 {
		rules, err := policy.ParseApprovalRules(req.RuleText)
		if err != nil { utils.WriteValidationErrorResponse(w, "invalid approval rule", err.Error()); return }
		req.Policy.RequireApprovalIf = append(req.Policy.RequireApprovalIf, rules...)
	}

	updated, err := h.manager.UpdatePolicy(spaceID, req.Policy)
	if err != nil { utils.WriteValidationErrorResponse(w, "policy rejected", err.Error()); return }
	utils.WriteSuccessResponse(w, updated.Policy)
}

// GET /api/spaces/{spaceID}/documents?limit=
func (h *SpacesHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.RequireIdentity(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	spaceID := chiRoute.URLParam(r, "spaceID")
	space, err := h.manager.GetSpace(spaceID)
	if err != nil { utils.WriteNotFoundResponse(w, "space not found"); return }
	if !space.IsMember(identity.UserID) { utils.WriteForbiddenResponse(w, "Not a member of this space"); return }

	limit := 50
	if v := utils.GetQueryParam(r, "limit", ""); v != "" {
		if n, e := strconv.Atoi(v); e == nil && n > 0 && n <= 200 { limit = n }
	}

	docs, err := h.store.ListSpaceDocuments(spaceID, limit)
	if err != nil { utils.WriteInternalServerErrorResponse(w, err.Error()); return }
	utils.WriteSuccessResponse(w, map[string]interface{}{"documents": docs, "count": len(docs)})
}

// GET /api/templates
func (h *SpacesHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, policy.Catalog())
}
