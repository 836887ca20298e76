package spaces

import (
	"errors"
	"regexp"
	"testing"

	"hivemind-backend/pkg/database"
	"hivemind-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(database.NewMemoryStore(), zap.NewNop())
}

func mustUser(t *testing.T, m *Manager, name string) *models.User {
	t.Helper()
	u, err := m.CreateUser(name, name+"@example.com")
	require.NoError(t, err)
	return u
}

func TestCreateSpace_PairDefaults(t *testing.T) {
	m := newTestManager(t)
	alice := mustUser(t, m, "alice")

	space, err := m.CreateSpace(alice.ID, "us two", "", models.SpacePair, "intimate_pair")
	require.NoError(t, err)

	assert.Equal(t, models.SpacePair, space.Type)
	assert.Equal(t, "private", space.Settings.Visibility)
	require.NotNil(t, space.Settings.MaxMembers)
	assert.Equal(t, 2, *space.Settings.MaxMembers)
	assert.False(t, space.Settings.AllowMemberInvites)

	require.Len(t, space.Members, 1)
	assert.Equal(t, models.RoleOwner, space.Members[0].Role)
	assert.Equal(t, alice.ID, space.CreatedBy)

	// 策略绑定到新空间并带版本号
	assert.Equal(t, space.ID, space.Policy.SpaceID)
	assert.Equal(t, 1, space.Policy.Version)

	// 创建者的空间列表被更新
	reloaded, err := m.GetUser(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{space.ID}, reloaded.Spaces)
}

func TestCreateSpace_PublicDefaults(t *testing.T) {
	m := newTestManager(t)
	alice := mustUser(t, m, "alice")

	space, err := m.CreateSpace(alice.ID, "the feed", "", models.SpacePublic, "public_feed")
	require.NoError(t, err)

	assert.Equal(t, "public", space.Settings.Visibility)
	assert.True(t, space.Settings.AllowMemberInvites)
	assert.False(t, space.Settings.RequireApproval)
	assert.Nil(t, space.Settings.MaxMembers)
}

func TestInviteCode_Format(t *testing.T) {
	m := newTestManager(t)
	alice := mustUser(t, m, "alice")

	space, err := m.CreateSpace(alice.ID, "group", "", models.SpaceGroup, "team")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[A-Z2-9]{8}$`), space.InviteCode)

	found, err := m.GetSpaceByInviteCode(space.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, space.ID, found.ID)
}

func TestJoinSpace_HappyPathAndFailures(t *testing.T) {
	m := newTestManager(t)
	alice := mustUser(t, m, "alice")
	bob := mustUser(t, m, "bob")
	carol := mustUser(t, m, "carol")

	space, err := m.CreateSpace(alice.ID, "us two", "", models.SpacePair, "intimate_pair")
	require.NoError(t, err)

	// wrong invite code
	_, err = m.JoinSpace(bob.ID, space.ID, "WRONGCOD")
	var merr *MembershipError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, ReasonInviteMismatch, merr.Reason)

	// 错误的加入尝试不应留下任何成员状态
	check, err := m.GetSpace(space.ID)
	require.NoError(t, err)
	assert.Len(t, check.Members, 1)
	bobReloaded, _ := m.GetUser(bob.ID)
	assert.Empty(t, bobReloaded.Spaces)

	// correct code, case-insensitive
	joined, err := m.JoinSpace(bob.ID, space.ID, space.InviteCode)
	require.NoError(t, err)
	assert.Len(t, joined.Members, 2)
	assert.Equal(t, models.RoleMember, joined.Members[1].Role)

	// joining twice is a conflict, not a duplicate membership
	_, err = m.JoinSpace(bob.ID, space.ID, space.InviteCode)
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, ReasonAlreadyMember, merr.Reason)

	// pair space is full at two
	_, err = m.JoinSpace(carol.ID, space.ID, space.InviteCode)
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, ReasonCapacityExceeded, merr.Reason)

	// unknown space
	_, err = m.JoinSpace(bob.ID, "spc_missing", "ANYCODE1")
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, ReasonNotFound, merr.Reason)
}

func TestJoinByInviteCode(t *testing.T) {
	m := newTestManager(t)
	alice := mustUser(t, m, "alice")
	bob := mustUser(t, m, "bob")

	space, err := m.CreateSpace(alice.ID, "group", "", models.SpaceGroup, "team")
	require.NoError(t, err)

	joined, err := m.JoinByInviteCode(bob.ID, space.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, space.ID, joined.ID)

	_, err = m.JoinByInviteCode(bob.ID, "NOPE9999")
	var merr *MembershipError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, ReasonNotFound, merr.Reason)
}

func TestLeaveSpace_LastMemberDeletesPrivateSpace(t *testing.T) {
	m := newTestManager(t)
	alice := mustUser(t, m, "alice")
	bob := mustUser(t, m, "bob")

	space, err := m.CreateSpace(alice.ID, "us two", "", models.SpacePair, "intimate_pair")
	require.NoError(t, err)
	_, err = m.JoinSpace(bob.ID, space.ID, space.InviteCode)
	require.NoError(t, err)

	require.NoError(t, m.LeaveSpace(bob.ID, space.ID))
	remaining, err := m.GetSpace(space.ID)
	require.NoError(t, err)
	assert.Len(t, remaining.Members, 1)

	// last member leaving removes the space and frees its invite code
	require.NoError(t, m.LeaveSpace(alice.ID, space.ID))
	_, err = m.GetSpace(space.ID)
	assert.True(t, errors.Is(err, database.ErrNotFound))
	_, err = m.GetSpaceByInviteCode(space.InviteCode)
	assert.True(t, errors.Is(err, database.ErrNotFound))

	aliceReloaded, err := m.GetUser(alice.ID)
	require.NoError(t, err)
	assert.Empty(t, aliceReloaded.Spaces)
}

func TestLeaveSpace_PublicSpaceSurvivesEmpty(t *testing.T) {
	m := newTestManager(t)
	alice := mustUser(t, m, "alice")

	space, err := m.CreateSpace(alice.ID, "the feed", "", models.SpacePublic, "public_feed")
	require.NoError(t, err)

	require.NoError(t, m.LeaveSpace(alice.ID, space.ID))

	kept, err := m.GetSpace(space.ID)
	require.NoError(t, err)
	assert.Empty(t, kept.Members)
}

func TestListUserSpaces_PreservesJoinOrder(t *testing.T) {
	m := newTestManager(t)
	alice := mustUser(t, m, "alice")

	first, err := m.CreateSpace(alice.ID, "first", "", models.SpaceGroup, "team")
	require.NoError(t, err)
	second, err := m.CreateSpace(alice.ID, "second", "", models.SpaceGroup, "team")
	require.NoError(t, err)
	third, err := m.CreateSpace(alice.ID, "third", "", models.SpacePublic, "public_feed")
	require.NoError(t, err)

	list, err := m.ListUserSpaces(alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID},
		[]string{list[0].ID, list[1].ID, list[2].ID})
}

func TestUpdatePolicy_BumpsVersionAndValidates(t *testing.T) {
	m := newTestManager(t)
	alice := mustUser(t, m, "alice")

	space, err := m.CreateSpace(alice.ID, "group", "", models.SpaceGroup, "team")
	require.NoError(t, err)
	require.Equal(t, 1, space.Policy.Version)

	updated := space.Policy
	updated.AutoApproveThreshold = 0.9
	updated.RequireApprovalIf = []models.ApprovalRule{
		{Metric: "sensitivity", Operator: ">=", Threshold: 0.3},
	}

	saved, err := m.UpdatePolicy(space.ID, updated)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Policy.Version)
	assert.Equal(t, 0.9, saved.Policy.AutoApproveThreshold)
	assert.True(t, saved.Policy.UpdatedAt.After(saved.Policy.CreatedAt) ||
		saved.Policy.UpdatedAt.Equal(saved.Policy.CreatedAt))

	// malformed rules are rejected and the stored policy is untouched
	bad := saved.Policy
	bad.RequireApprovalIf = []models.ApprovalRule{
		{Metric: "sensitivity", Operator: "<", Threshold: 0.3},
	}
	_, err = m.UpdatePolicy(space.ID, bad)
	require.Error(t, err)

	current, err := m.GetSpace(space.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, current.Policy.Version)
}
