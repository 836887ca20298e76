package spaces

import (
	"fmt"
	"sync"
	"time"

	"hivemind-backend/pkg/database"
	"hivemind-backend/pkg/models"
	"hivemind-backend/pkg/policy"
	"hivemind-backend/pkg/utils"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// MembershipReason 成员资格操作失败的结构化原因
type MembershipReason string

const (
	ReasonNotFound         MembershipReason = "not_found"
	ReasonInviteMismatch   MembershipReason = "invite_mismatch"
	ReasonAlreadyMember    MembershipReason = "already_member"
	ReasonCapacityExceeded MembershipReason = "capacity_exceeded"
)

// MembershipError carries a machine-readable reason so callers can map
// failures to distinct responses instead of string matching.
type MembershipError struct {
	Reason  MembershipReason
	SpaceID string
	UserID  string
}

func (e *MembershipError) Error() string {
	return fmt.Sprintf("membership operation failed: %s (space=%s user=%s)", e.Reason, e.SpaceID, e.UserID)
}

// Manager owns all user/space/membership state transitions.
// Compound writes touch both a Space and a User document; the store
// offers no cross-document transactions, so the mutex serializes them
// within this process.
type Manager struct {
	store  database.Store
	logger *zap.Logger
	mu     sync.Mutex
}

func NewManager(store database.Store, logger *zap.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// CreateUser 创建用户并写入默认同意配置
func (m *Manager) CreateUser(displayName, contactMethod string) (*models.User, error) {
	now := time.Now()
	user := &models.User{
		ID:            models.NewID("usr"),
		DisplayName:   displayName,
		ContactMethod: contactMethod,
		Consent:       models.DefaultConsentConfig(),
		Spaces:        []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := m.store.SaveUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	m.logger.Info("user created", zap.String("user_id", user.ID))
	return user, nil
}

// GetUser 按 id 读取用户
func (m *Manager) GetUser(id string) (*models.User, error) {
	return m.store.GetUser(id)
}

// UpdateConsent 更新用户的同意配置
func (m *Manager) UpdateConsent(userID string, consent models.ConsentConfig) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, err := m.store.GetUser(userID)
	if err != nil {
		return nil, err
	}
	user.Consent = consent
	user.UpdatedAt = time.Now()
	if err := m.store.SaveUser(user); err != nil {
		return nil, fmt.Errorf("failed to update consent: %w", err)
	}
	return user, nil
}

// CreateSpace creates a space of the given type with a policy derived
// from the named template, makes the creator its owner and issues a
// unique invite code. Pair spaces are capped at two members and forced
// private; public spaces disable approval gating on joins.
func (m *Manager) CreateSpace(creatorID, name, description string, spaceType models.SpaceType, template string) (*models.Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	creator, err := m.store.GetUser(creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load creator: %w", err)
	}

	settings := settingsForType(spaceType)

	inviteCode, err := m.uniqueInviteCode()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	space := &models.Space{
		ID:          models.NewID("spc"),
		Type:        spaceType,
		Name:        name,
		Description: description,
		Members: []models.SpaceMember{{
			UserID:   creatorID,
			JoinedAt: now,
			Role:     models.RoleOwner,
		}},
		CreatedBy:  creatorID,
		InviteCode: inviteCode,
		Settings:   settings,
		CreatedAt:  now,
	}
	space.Policy = policy.FromTemplate(template, space.ID)

	if err := m.store.SaveSpace(space); err != nil {
		return nil, fmt.Errorf("failed to save space: %w", err)
	}

	creator.Spaces = append(creator.Spaces, space.ID)
	creator.UpdatedAt = now
	if err := m.store.SaveUser(creator); err != nil {
		return nil, fmt.Errorf("failed to link creator to space: %w", err)
	}

	m.logger.Info("space created",
		zap.String("space_id", space.ID),
		zap.String("type", string(spaceType)),
		zap.String("created_by", creatorID))
	return space, nil
}

// settingsForType 按空间类型推导默认配置
func settingsForType(spaceType models.SpaceType) models.SpaceSettings {
	switch spaceType {
	case models.SpacePair:
		max := 2
		return models.SpaceSettings{
			Visibility:         "private",
			AllowMemberInvites: false,
			RequireApproval:    true,
			MaxMembers:         &max,
		}
	case models.SpacePublic:
		return models.SpaceSettings{
			Visibility:         "public",
			AllowMemberInvites: true,
			RequireApproval:    false,
		}
	default:
		return models.SpaceSettings{
			Visibility:         "private",
			AllowMemberInvites: true,
			RequireApproval:    true,
		}
	}
}

// uniqueInviteCode 生成未被占用的邀请码（冲突时重试）
func (m *Manager) uniqueInviteCode() (string, error) {
	for i := 0; i < 5; i++ {
		code, err := utils.GenerateInviteCode()
		if err != nil {
			return "", err
		}
		_, err = m.store.GetSpaceByInviteCode(code)
		if err == database.ErrNotFound {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check invite code: %w", err)
		}
	}
	return "", fmt.Errorf("failed to generate a unique invite code")
}

// JoinSpace adds the user to the space identified by spaceID after
// verifying the invite code. Joining a space the user is already in is
// rejected with AlreadyMember and leaves no partial state.
func (m *Manager) JoinSpace(userID, spaceID, inviteCode string) (*models.Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	space, err := m.store.GetSpace(spaceID)
	if err == database.ErrNotFound {
		return nil, &MembershipError{Reason: ReasonNotFound, SpaceID: spaceID, UserID: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load space: %w", err)
	}

	if !equalInviteCode(space.InviteCode, inviteCode) {
		return nil, &MembershipError{Reason: ReasonInviteMismatch, SpaceID: spaceID, UserID: userID}
	}
	if space.IsMember(userID) {
		return nil, &MembershipError{Reason: ReasonAlreadyMember, SpaceID: spaceID, UserID: userID}
	}
	if space.AtCapacity() {
		return nil, &MembershipError{Reason: ReasonCapacityExceeded, SpaceID: spaceID, UserID: userID}
	}

	user, err := m.store.GetUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	now := time.Now()
	space.Members = append(space.Members, models.SpaceMember{
		UserID:   userID,
		JoinedAt: now,
		Role:     models.RoleMember,
	})
	if err := m.store.SaveSpace(space); err != nil {
		return nil, fmt.Errorf("failed to save space: %w", err)
	}

	user.Spaces = append(user.Spaces, space.ID)
	user.UpdatedAt = now
	if err := m.store.SaveUser(user); err != nil {
		return nil, fmt.Errorf("failed to link user to space: %w", err)
	}

	m.logger.Info("user joined space",
		zap.String("space_id", spaceID), zap.String("user_id", userID))
	return space, nil
}

// JoinByInviteCode 通过邀请码加入（先解析出空间再走 JoinSpace 校验）
func (m *Manager) JoinByInviteCode(userID, inviteCode string) (*models.Space, error) {
	space, err := m.store.GetSpaceByInviteCode(inviteCode)
	if err == database.ErrNotFound {
		return nil, &MembershipError{Reason: ReasonNotFound, UserID: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve invite code: %w", err)
	}
	return m.JoinSpace(userID, space.ID, inviteCode)
}

// LeaveSpace removes the user from the space. When the last member
// leaves a non-public space, the space (and its invite code) is
// deleted rather than left orphaned.
func (m *Manager) LeaveSpace(userID, spaceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	space, err := m.store.GetSpace(spaceID)
	if err == database.ErrNotFound {
		return &MembershipError{Reason: ReasonNotFound, SpaceID: spaceID, UserID: userID}
	}
	if err != nil {
		return fmt.Errorf("failed to load space: %w", err)
	}
	if !space.IsMember(userID) {
		return &MembershipError{Reason: ReasonNotFound, SpaceID: spaceID, UserID: userID}
	}

	space.Members = lo.Filter(space.Members, func(member models.SpaceMember, _ int) bool {
		return member.UserID != userID
	})

	if len(space.Members) == 0 && space.Type != models.SpacePublic {
		if err := m.store.DeleteSpace(spaceID); err != nil {
			return fmt.Errorf("failed to delete empty space: %w", err)
		}
		m.logger.Info("empty space deleted", zap.String("space_id", spaceID))
	} else {
		if err := m.store.SaveSpace(space); err != nil {
			return fmt.Errorf("failed to save space: %w", err)
		}
	}

	user, err := m.store.GetUser(userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	user.Spaces = lo.Filter(user.Spaces, func(id string, _ int) bool { return id != spaceID })
	user.UpdatedAt = time.Now()
	if err := m.store.SaveUser(user); err != nil {
		return fmt.Errorf("failed to unlink user from space: %w", err)
	}

	m.logger.Info("user left space",
		zap.String("space_id", spaceID), zap.String("user_id", userID))
	return nil
}

// GetSpace 按 id 读取空间
func (m *Manager) GetSpace(id string) (*models.Space, error) {
	return m.store.GetSpace(id)
}

// GetSpaceByInviteCode 按邀请码读取空间
func (m *Manager) GetSpaceByInviteCode(code string) (*models.Space, error) {
	return m.store.GetSpaceByInviteCode(code)
}

// ListUserSpaces returns the user's spaces in the order of the user's
// own space list. That order is also the routing result order.
func (m *Manager) ListUserSpaces(userID string) ([]models.Space, error) {
	user, err := m.store.GetUser(userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Space, 0, len(user.Spaces))
	for _, id := range user.Spaces {
		sp, err := m.store.GetSpace(id)
		if err == database.ErrNotFound {
			// 悬挂引用（空间已被删除）：跳过
			m.logger.Warn("user references missing space",
				zap.String("user_id", userID), zap.String("space_id", id))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load space %s: %w", id, err)
		}
		out = append(out, *sp)
	}
	return out, nil
}

// MemberProfile 成员记录加上已解析的用户资料
type MemberProfile struct {
	models.SpaceMember
	DisplayName   string `json:"display_name"`
	ContactMethod string `json:"contact_method,omitempty"`
}

// GetSpaceMembers 返回空间成员及其用户资料
func (m *Manager) GetSpaceMembers(spaceID string) ([]MemberProfile, error) {
	space, err := m.store.GetSpace(spaceID)
	if err != nil {
		return nil, err
	}
	out := make([]MemberProfile, 0, len(space.Members))
	for _, member := range space.Members {
		user, err := m.store.GetUser(member.UserID)
		if err == database.ErrNotFound {
			// 悬挂引用（用户已不存在）：跳过
			m.logger.Warn("space references missing user",
				zap.String("space_id", spaceID), zap.String("user_id", member.UserID))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load member %s: %w", member.UserID, err)
		}
		out = append(out, MemberProfile{
			SpaceMember:   member,
			DisplayName:   user.DisplayName,
			ContactMethod: user.ContactMethod,
		})
	}
	return out, nil
}

// UpdatePolicy validates and installs a new policy for the space,
// bumping the version and refreshing UpdatedAt. The caller must be a
// member; ownership checks beyond that are left to the handler layer.
func (m *Manager) UpdatePolicy(spaceID string, p models.Policy) (*models.Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	space, err := m.store.GetSpace(spaceID)
	if err != nil {
		return nil, err
	}

	p.SpaceID = spaceID
	if p.ID == "" {
		p.ID = space.Policy.ID
	}
	if err := policy.Validate(&p); err != nil {
		return nil, err
	}

	p.Version = space.Policy.Version + 1
	if p.CreatedAt.IsZero() {
		p.CreatedAt = space.Policy.CreatedAt
	}
	p.UpdatedAt = time.Now()

	space.Policy = p
	if err := m.store.SaveSpace(space); err != nil {
		return nil, fmt.Errorf("failed to save policy: %w", err)
	}

	m.logger.Info("policy updated",
		zap.String("space_id", spaceID), zap.Int("version", p.Version))
	return space, nil
}

// equalInviteCode 邀请码大小写不敏感比较
func equalInviteCode(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'a' <= ca && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if 'a' <= cb && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
