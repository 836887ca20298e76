package handlers

import (
	"errors"
	"net/http"

	"hivemind-backend/pkg/approval"
	"hivemind-backend/pkg/database"
	"hivemind-backend/pkg/middleware"
	"hivemind-backend/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

type ApprovalsHandler struct {
	service *approval.Service
}

func NewApprovalsHandler(service *approval.Service) *ApprovalsHandler {
	return &ApprovalsHandler{service: service}
}

// GET /api/approvals
func (h *ApprovalsHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.RequireIdentity(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	list, err := h.service.List(identity.UserID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, err.Error()); return }
	utils.WriteSuccessResponse(w, map[string]interface{}{"approvals": list, "count": len(list)})
}

type approveRequest struct {
	EditedContent string `json:"edited_content,omitempty"`
}

// POST /api/approvals/{approvalID}/approve
func (h *ApprovalsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.RequireIdentity(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	var req approveRequest
	if err := utils.ParseJSONBody(r, &req); err != nil && r.ContentLength > 0 {
		utils.WriteBadRequestResponse(w, "Invalid JSON body")
		return
	}

	approvalID := chiRoute.URLParam(r, "approvalID")
	doc, err := h.service.Approve(approvalID, identity.UserID, req.EditedContent)
	if err != nil {
		writeApprovalError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, doc)
}

// POST /api/approvals/{approvalID}/reject
func (h *ApprovalsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.RequireIdentity(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	approvalID := chiRoute.URLParam(r, "approvalID")
	if err := h.service.Reject(approvalID, identity.UserID); err != nil {
		writeApprovalError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"rejected": approvalID})
}

func writeApprovalError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		utils.WriteNotFoundResponse(w, "approval not found")
	case errors.Is(err, approval.ErrNotOwner):
		utils.WriteForbiddenResponse(w, "approval belongs to another user")
	case errors.Is(err, approval.ErrExpired):
		utils.WriteConflictResponse(w, "approval has expired")
	case errors.Is(err, approval.ErrNotPending):
		utils.WriteConflictResponse(w, err.Error())
	default:
		utils.WriteInternalServerErrorResponse(w, err.Error())
	}
}
