package models

import "time"

// TransformationRules describe how content is rewritten before it is
// shared into a space.
type TransformationRules struct {
	RemoveNames            bool   `json:"remove_names"`
	RemoveLocations        bool   `json:"remove_locations"`
	RemoveOrganizations    bool   `json:"remove_organizations"`
	RemoveFinancialDetails bool   `json:"remove_financial_details"`
	GeneralizeSituations   bool   `json:"generalize_situations"`
	PreserveEmotionalTone  bool   `json:"preserve_emotional_tone"`
	DetailLevel            string `json:"detail_level" validate:"oneof=high medium low"`
	CustomPrompt           string `json:"custom_prompt,omitempty"`
}

// DefaultTransformationRules 默认转换规则（偏保守）
func DefaultTransformationRules() TransformationRules {
	return TransformationRules{
		RemoveNames:            true,
		RemoveLocations:        true,
		RemoveOrganizations:    true,
		RemoveFinancialDetails: true,
		GeneralizeSituations:   true,
		PreserveEmotionalTone:  true,
		DetailLevel:            "medium",
	}
}

// ApprovalRule is a structured approval-gating expression, e.g.
// {Metric: "sensitivity", Operator: ">", Threshold: 0.6}. Rules are
// validated when a policy is saved, not silently skipped at evaluation.
type ApprovalRule struct {
	Metric    string  `json:"metric" validate:"oneof=sensitivity"`
	Operator  string  `json:"operator" validate:"oneof=> >="`
	Threshold float64 `json:"threshold" validate:"gte=0,lte=1"`
}

// Matches evaluates the rule against a computed sensitivity score.
func (r ApprovalRule) Matches(sensitivity float64) bool {
	if r.Metric != "sensitivity" {
		return false
	}
	switch r.Operator {
	case ">":
		return sensitivity > r.Threshold
	case ">=":
		return sensitivity >= r.Threshold
	}
	return false
}

// Policy defines what a space considers relevant, how content is
// transformed before sharing, and when manual approval is required.
// Versioned: every update bumps Version and refreshes UpdatedAt.
type Policy struct {
	ID      string `json:"id" db:"id"`
	SpaceID string `json:"space_id" db:"space_id"`
	Version int    `json:"version" db:"version"`

	// Write rules（决定哪些内容进入空间）
	RelevancePrompt   string   `json:"relevance_prompt"`
	InclusionCriteria []string `json:"inclusion_criteria"`
	ExclusionCriteria []string `json:"exclusion_criteria"`

	Rules            TransformationRules `json:"transformation_rules"`
	AttributionLevel AttributionLevel    `json:"attribution_level" validate:"oneof=full pseudonym anonymous"`

	// Read rules（触发词/实体）
	TriggerKeywords []string `json:"trigger_keywords"`
	TriggerEntities []string `json:"trigger_entities"`
	ContextWindow   int      `json:"context_window"`

	// Approval rules
	AutoApproveThreshold  float64        `json:"auto_approve_threshold" validate:"gte=0,lte=1"`
	RequireApprovalIf     []ApprovalRule `json:"require_approval_if" validate:"dive"`
	HighSensitivityTopics []string       `json:"high_sensitivity_topics"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
