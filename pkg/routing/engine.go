package routing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hivemind-backend/pkg/evaluator"
	"hivemind-backend/pkg/metrics"
	"hivemind-backend/pkg/models"
	"hivemind-backend/pkg/spaces"

	"go.uber.org/zap"
)

// Engine routes one conversation turn into every space the author
// belongs to. Spaces are evaluated independently and concurrently;
// results come back in the order of the user's space list.
type Engine struct {
	manager   *spaces.Manager
	evaluator evaluator.Evaluator
	logger    *zap.Logger
}

func NewEngine(manager *spaces.Manager, eval evaluator.Evaluator, logger *zap.Logger) *Engine {
	return &Engine{manager: manager, evaluator: eval, logger: logger}
}

// RouteTurn evaluates the turn against each of the author's spaces and
// returns one decision per space. A user with zero spaces gets an
// empty result list, not an error. Decisions are not persisted here;
// the caller stores documents and approvals.
func (e *Engine) RouteTurn(ctx context.Context, turn *models.RawConversationTurn, userID string) ([]models.RouteResult, error) {
	user, err := e.manager.GetUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load routing user: %w", err)
	}

	userSpaces, err := e.manager.ListUserSpaces(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user spaces: %w", err)
	}
	if len(userSpaces) == 0 {
		return []models.RouteResult{}, nil
	}

	// 并发逐空间评估，结果按空间列表顺序落位
	results := make([]models.RouteResult, len(userSpaces))
	var wg sync.WaitGroup
	for i := range userSpaces {
		wg.Add(1)
		go func(idx int, space models.Space) {
			defer wg.Done()
			results[idx] = e.processSpace(ctx, turn, user, &space)
		}(i, userSpaces[i])
	}
	wg.Wait()

	for _, r := range results {
		metrics.RoutingDecisions.WithLabelValues(string(r.Action)).Inc()
	}
	return results, nil
}

// processSpace runs the evaluate -> gate -> build pipeline for one
// space. Never fails: evaluator errors already degrade to the
// conservative fallback inside the evaluator.
func (e *Engine) processSpace(ctx context.Context, turn *models.RawConversationTurn, user *models.User, space *models.Space) models.RouteResult {
	pol := &space.Policy
	res := e.evaluator.Evaluate(ctx, turn, pol)

	if !res.IsRelevant {
		e.logger.Debug("turn skipped",
			zap.String("space_id", space.ID),
			zap.String("turn_id", turn.ID),
			zap.String("reason", res.RelevanceReason))
		return models.RouteResult{
			SpaceID: space.ID,
			Action:  models.RouteSkipped,
			Reason:  res.RelevanceReason,
		}
	}

	if reason, gated := approvalReason(pol, res); gated {
		approval := buildApproval(turn, user, space, res, reason)
		return models.RouteResult{
			SpaceID:  space.ID,
			Action:   models.RouteApprovalNeeded,
			Approval: approval,
			Reason:   reason,
		}
	}

	doc := BuildDocument(turn, user, space, res, false, nil)
	return models.RouteResult{
		SpaceID:  space.ID,
		Action:   models.RouteShared,
		Document: doc,
		Reason:   res.RelevanceReason,
	}
}

// approvalReason decides whether the result must be held for manual
// approval: confidence below the auto-approve threshold, or any
// structured approval rule matching the sensitivity score.
func approvalReason(pol *models.Policy, res evaluator.Result) (string, bool) {
	if res.ConfidenceScore < pol.AutoApproveThreshold {
		return fmt.Sprintf("Confidence %.2f below threshold %.2f", res.ConfidenceScore, pol.AutoApproveThreshold), true
	}
	for _, rule := range pol.RequireApprovalIf {
		if rule.Matches(res.SensitivityScore) {
			return fmt.Sprintf("Sensitivity %.2f %s %.2f", res.SensitivityScore, rule.Operator, rule.Threshold), true
		}
	}
	return "", false
}

func buildApproval(turn *models.RawConversationTurn, user *models.User, space *models.Space, res evaluator.Result, reason string) *models.PendingApproval {
	now := time.Now()
	return &models.PendingApproval{
		ID:                models.NewID("appr"),
		UserID:            user.ID,
		SpaceID:           space.ID,
		SourceTurnID:      turn.ID,
		ProposedContent:   res.TransformedContent,
		ReasonForApproval: reason,
		ConfidenceScore:   res.ConfidenceScore,
		SensitivityScore:  res.SensitivityScore,
		Status:            models.ApprovalPending,
		CreatedAt:         now,
		ExpiresAt:         now.Add(models.ApprovalTTL),
	}
}

// BuildDocument materializes a FilteredDocument from an evaluation.
// Attribution fields are populated only under full attribution; the
// approval flow reuses this when an approved item becomes a document.
func BuildDocument(turn *models.RawConversationTurn, user *models.User, space *models.Space, res evaluator.Result, approved bool, approvedBy *string) *models.FilteredDocument {
	doc := &models.FilteredDocument{
		ID:               models.NewID("doc"),
		SpaceID:          space.ID,
		SourceTurnID:     turn.ID,
		AuthorUserID:     user.ID,
		Content:          res.TransformedContent,
		OriginalTopics:   turn.Topics,
		FilteredTopics:   res.Topics,
		AttributionLevel: space.Policy.AttributionLevel,
		ConfidenceScore:  res.ConfidenceScore,
		SensitivityScore: res.SensitivityScore,
		Approved:         approved,
		ApprovedBy:       approvedBy,
		CreatedAt:        time.Now(),
	}
	if space.Policy.AttributionLevel == models.AttributionFull {
		name := user.DisplayName
		doc.DisplayName = &name
		if user.ContactMethod != "" {
			contact := user.ContactMethod
			doc.ContactMethod = &contact
		}
		pref := user.Consent.ContactPreference
		doc.ContactPreference = &pref
	}
	return doc
}
