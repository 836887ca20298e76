package models

import "time"

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
	ApprovalExpired  ApprovalStatus = "expired"
)

// ApprovalTTL 审批等待期：创建后7天过期
const ApprovalTTL = 7 * 24 * time.Hour

// PendingApproval holds a routing decision awaiting human confirmation
// before it becomes a FilteredDocument.
type PendingApproval struct {
	ID                string         `json:"id" db:"id"`
	UserID            string         `json:"user_id" db:"user_id"`
	SpaceID           string         `json:"space_id" db:"space_id"`
	SourceTurnID      string         `json:"source_turn_id" db:"source_turn_id"`
	ProposedContent   string         `json:"proposed_content" db:"proposed_content"`
	ReasonForApproval string         `json:"reason_for_approval" db:"reason_for_approval"`
	ConfidenceScore   float64        `json:"confidence_score" db:"confidence_score"`
	SensitivityScore  float64        `json:"sensitivity_score" db:"sensitivity_score"`
	Status            ApprovalStatus `json:"status" db:"status"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	ExpiresAt         time.Time      `json:"expires_at" db:"expires_at"`
}

// ExpiredAt reports whether the approval is past its expiry at the
// given instant. Nothing sweeps the queue eagerly, so readers must
// treat an expired-but-present entry as inactive.
func (a *PendingApproval) ExpiredAt(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// Active reports whether the approval is still actionable.
func (a *PendingApproval) Active(now time.Time) bool {
	return a.Status == ApprovalPending && !a.ExpiredAt(now)
}
