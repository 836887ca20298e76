package approval

import (
	"errors"
	"fmt"
	"time"

	"hivemind-backend/pkg/database"
	"hivemind-backend/pkg/models"

	"go.uber.org/zap"
)

var (
	// ErrNotOwner 审批项不属于请求用户
	ErrNotOwner = errors.New("approval belongs to another user")
	// ErrNotPending 审批项已被处理过
	ErrNotPending = errors.New("approval is not pending")
	// ErrExpired 审批项已过期
	ErrExpired = errors.New("approval has expired")
)

// Service manages the pending-approval queue. Expiry is enforced on
// read: an expired entry is never actionable even if the background
// sweeper has not touched it yet.
type Service struct {
	store  database.Store
	logger *zap.Logger
}

func NewService(store database.Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// List 返回用户仍可操作的审批项（pending 且未过期）
func (s *Service) List(userID string) ([]models.PendingApproval, error) {
	all, err := s.store.GetPendingApprovals(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}
	now := time.Now()
	active := make([]models.PendingApproval, 0, len(all))
	for _, a := range all {
		if a.Active(now) {
			active = append(active, a)
		}
	}
	return active, nil
}

// Approve confirms a pending item, optionally with edited content, and
// materializes it as an approved FilteredDocument in the target space.
// Only the item's owner may approve it.
func (s *Service) Approve(approvalID, userID, editedContent string) (*models.FilteredDocument, error) {
	approval, err := s.store.GetPendingApproval(approvalID)
	if err != nil {
		return nil, err
	}
	if approval.UserID != userID {
		return nil, ErrNotOwner
	}
	if approval.Status != models.ApprovalPending {
		return nil, fmt.Errorf("%w (status=%s)", ErrNotPending, approval.Status)
	}
	if approval.ExpiredAt(time.Now()) {
		// 读取时兜底标记过期
		if err := s.store.UpdateApprovalStatus(approvalID, models.ApprovalExpired); err != nil {
			s.logger.Warn("failed to mark approval expired", zap.String("approval_id", approvalID), zap.Error(err))
		}
		return nil, ErrExpired
	}

	content := approval.ProposedContent
	if editedContent != "" {
		content = editedContent
	}

	space, err := s.store.GetSpace(approval.SpaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load target space: %w", err)
	}
	user, err := s.store.GetUser(approval.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load author: %w", err)
	}

	doc := &models.FilteredDocument{
		ID:               models.NewID("doc"),
		SpaceID:          approval.SpaceID,
		SourceTurnID:     approval.SourceTurnID,
		AuthorUserID:     approval.UserID,
		Content:          content,
		OriginalTopics:   []string{},
		FilteredTopics:   []string{},
		AttributionLevel: space.Policy.AttributionLevel,
		ConfidenceScore:  approval.ConfidenceScore,
		SensitivityScore: approval.SensitivityScore,
		Approved:         true,
		ApprovedBy:       &userID,
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

	if err := s.store.SaveFilteredDocument(doc); err != nil {
		return nil, fmt.Errorf("failed to save approved document: %w", err)
	}
	if err := s.store.UpdateApprovalStatus(approvalID, models.ApprovalApproved); err != nil {
		return nil, fmt.Errorf("failed to update approval status: %w", err)
	}

	s.logger.Info("approval confirmed",
		zap.String("approval_id", approvalID),
		zap.String("space_id", approval.SpaceID),
		zap.Bool("edited", editedContent != ""))
	return doc, nil
}

// Reject 拒绝审批项，内容不会进入空间
func (s *Service) Reject(approvalID, userID string) error {
	approval, err := s.store.GetPendingApproval(approvalID)
	if err != nil {
		return err
	}
	if approval.UserID != userID {
		return ErrNotOwner
	}
	if approval.Status != models.ApprovalPending {
		return fmt.Errorf("%w (status=%s)", ErrNotPending, approval.Status)
	}
	if err := s.store.UpdateApprovalStatus(approvalID, models.ApprovalRejected); err != nil {
		return fmt.Errorf("failed to update approval status: %w", err)
	}
	s.logger.Info("approval rejected", zap.String("approval_id", approvalID))
	return nil
}
