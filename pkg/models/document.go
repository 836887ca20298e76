package models

import "time"

// FilteredDocument is the transformed artifact persisted to a space
// once a turn is auto-shared or manually approved. Created exactly once
// per "shared" decision; immutable thereafter.
type FilteredDocument struct {
	ID             string   `json:"id" db:"id"`
	SpaceID        string   `json:"space_id" db:"space_id"`
	SourceTurnID   string   `json:"source_turn_id" db:"source_turn_id"`
	AuthorUserID   string   `json:"author_user_id" db:"author_user_id"`
	Content        string   `json:"content" db:"content"`
	OriginalTopics []string `json:"original_topics"`
	FilteredTopics []string `json:"filtered_topics"`

	// Attribution：仅在 attribution_level == full 时填充
	AttributionLevel  AttributionLevel   `json:"attribution_level"`
	DisplayName       *string            `json:"display_name,omitempty"`
	ContactMethod     *string            `json:"contact_method,omitempty"`
	ContactPreference *ContactPreference `json:"contact_preference,omitempty"`

	ConfidenceScore  float64   `json:"confidence_score"`
	SensitivityScore float64   `json:"sensitivity_score"`
	Approved         bool      `json:"approved"`
	ApprovedBy       *string   `json:"approved_by,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
