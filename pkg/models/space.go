package models

import "time"

// SpaceType 空间类型
type SpaceType string

const (
	SpacePair   SpaceType = "pair"
	SpaceGroup  SpaceType = "group"
	SpacePublic SpaceType = "public"
)

type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

// SpaceMember relates a user to a space with a role.
// Exactly one owner per space (the creator), fixed at creation.
type SpaceMember struct {
	UserID   string     `json:"user_id"`
	JoinedAt time.Time  `json:"joined_at"`
	Role     MemberRole `json:"role"`
}

// SpaceSettings 空间配置
type SpaceSettings struct {
	Visibility         string `json:"visibility"` // "private", "unlisted", "public"
	AllowMemberInvites bool   `json:"allow_member_invites"`
	RequireApproval    bool   `json:"require_approval"`
	MaxMembers         *int   `json:"max_members,omitempty"` // 2 for pair spaces, nil otherwise
}

// Space is a bounded membership context with exactly one active Policy
// governing what content flows into it.
type Space struct {
	ID          string        `json:"id" db:"id"`
	Type        SpaceType     `json:"space_type" db:"space_type"`
	Name        string        `json:"name" db:"name"`
	Description string        `json:"description,omitempty" db:"description"`
	Members     []SpaceMember `json:"members" db:"members"`
	Policy      Policy        `json:"policy" db:"policy"`
	CreatedBy   string        `json:"created_by" db:"created_by"`
	InviteCode  string        `json:"invite_code" db:"invite_code"`
	Settings    SpaceSettings `json:"settings" db:"settings"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}

// IsMember checks if user is a member.
func (s *Space) IsMember(userID string) bool {
	for _, m := range s.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// GetMember returns the membership record for userID, if any.
func (s *Space) GetMember(userID string) *SpaceMember {
	for i := range s.Members {
		if s.Members[i].UserID == userID {
			return &s.Members[i]
		}
	}
	return nil
}

// AtCapacity reports whether another join would exceed max_members.
func (s *Space) AtCapacity() bool {
	return s.Settings.MaxMembers != nil && len(s.Members) >= *s.Settings.MaxMembers
}
