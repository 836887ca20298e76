package models

import "time"

// ContactPreference describes how open a user is to being contacted
// about content they shared.
type ContactPreference string

const (
	ContactJustSharing     ContactPreference = "just_sharing"
	ContactOpenToQuestions ContactPreference = "open_to_questions"
	ContactHappyToHelp     ContactPreference = "happy_to_help"
)

// AttributionLevel is how much author-identifying information travels
// with shared content.
type AttributionLevel string

const (
	AttributionFull      AttributionLevel = "full"      // name + contact info
	AttributionPseudonym AttributionLevel = "pseudonym" // consistent id, no contact
	AttributionAnonymous AttributionLevel = "anonymous" // no attribution
)

// ConsentConfig holds a user's sharing/attribution preferences.
type ConsentConfig struct {
	Enabled            bool              `json:"enabled"`
	ContactPreference  ContactPreference `json:"contact_preference"`
	DefaultAttribution AttributionLevel  `json:"default_attribution"`
	SetupComplete      bool              `json:"setup_complete"`
}

// DefaultConsentConfig 新用户的默认同意配置
func DefaultConsentConfig() ConsentConfig {
	return ConsentConfig{
		Enabled:            false,
		ContactPreference:  ContactJustSharing,
		DefaultAttribution: AttributionFull,
		SetupComplete:      false,
	}
}

// User represents a user in the system
type User struct {
	ID            string        `json:"id" db:"id"`
	DisplayName   string        `json:"display_name" db:"display_name"`
	ContactMethod string        `json:"contact_method,omitempty" db:"contact_method"`
	Consent       ConsentConfig `json:"consent_config" db:"consent_config"`
	Spaces        []string      `json:"spaces" db:"spaces"` // space ids，顺序即路由顺序
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// InSpace reports whether the user's own space list contains the id.
func (u *User) InSpace(spaceID string) bool {
	for _, id := range u.Spaces {
		if id == spaceID {
			return true
		}
	}
	return false
}
