package models

type RouteAction string

const (
	RouteShared         RouteAction = "shared"
	RouteSkipped        RouteAction = "skipped"
	RouteApprovalNeeded RouteAction = "approval_needed"
)

// RouteResult is the decision for one space. Transient: the caller
// persists Document/Approval, the result itself is never stored.
type RouteResult struct {
	SpaceID  string            `json:"space_id"`
	Action   RouteAction       `json:"action"`
	Document *FilteredDocument `json:"document,omitempty"`
	Approval *PendingApproval  `json:"approval,omitempty"`
	Reason   string            `json:"reason,omitempty"`
}
