package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"hivemind-backend/pkg/database"
	"hivemind-backend/pkg/middleware"
	"hivemind-backend/pkg/models"
	"hivemind-backend/pkg/routing"
	"hivemind-backend/pkg/utils"

	"go.uber.org/zap"
)

type RoutingHandler struct {
	engine *routing.Engine
	store  database.Store
	logger *zap.Logger
}

func NewRoutingHandler(engine *routing.Engine, store database.Store, logger *zap.Logger) *RoutingHandler {
	return &RoutingHandler{engine: engine, store: store, logger: logger}
}

type routeTurnRequest struct {
	UserMessage      string   `json:"user_message"`
	AssistantMessage string   `json:"assistant_message"`
	ConversationID   string   `json:"conversation_id,omitempty"`
	Topics           []string `json:"topics,omitempty"`
	Entities         []string `json:"entities,omitempty"`
}

// POST /api/route
// Captures one conversation turn, evaluates it against every space the
// caller belongs to and persists the resulting documents/approvals.
func (h *RoutingHandler) RouteTurn(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.RequireIdentity(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	var req routeTurnRequest
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid JSON body"); return }
	if strings.TrimSpace(req.UserMessage) == "" { utils.WriteBadRequestResponse(w, "user_message required"); return }

	turn := &models.RawConversationTurn{
		ID:               models.NewID("turn"),
		UserID:           identity.UserID,
		Timestamp:        time.Now(),
		UserMessage:      req.UserMessage,
		AssistantMessage: req.AssistantMessage,
		ConversationID:   req.ConversationID,
		Topics:           req.Topics,
		Entities:         req.Entities,
	}

	// 原始对话先落库，评估失败也能追溯
	if err := h.store.SaveRawConversation(turn); err != nil {
		utils.WriteInternalServerErrorResponse(w, err.Error())
		return
	}

	results, err := h.engine.RouteTurn(r.Context(), turn, identity.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) { utils.WriteNotFoundResponse(w, "user not found"); return }
		utils.WriteInternalServerErrorResponse(w, err.Error())
		return
	}

	// 持久化决策产物：shared -> 文档，approval_needed -> 审批项
	for _, res := range results {
		switch res.Action {
		case models.RouteShared:
			if res.Document == nil {
				continue
			}
			if err := h.store.SaveFilteredDocument(res.Document); err != nil {
				h.logger.Error("failed to persist shared document",
					zap.String("space_id", res.SpaceID), zap.Error(err))
				utils.WriteInternalServerErrorResponse(w, err.Error())
				return
			}
		case models.RouteApprovalNeeded:
			if res.Approval == nil {
				continue
			}
			if err := h.store.SavePendingApproval(res.Approval); err != nil {
				h.logger.Error("failed to persist pending approval",
					zap.String("space_id", res.SpaceID), zap.Error(err))
				utils.WriteInternalServerErrorResponse(w, err.Error())
				return
			}
		}
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"turn_id": turn.ID,
		"results": results,
	})
}
