package approval

import (
	"testing"
	"time"

	"hivemind-backend/pkg/database"
	"hivemind-backend/pkg/models"
	"hivemind-backend/pkg/spaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	store   database.Store
	service *Service
	user    *models.User
	space   *models.Space
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := database.NewMemoryStore()
	manager := spaces.NewManager(store, zap.NewNop())

	user, err := manager.CreateUser("alice", "alice@example.com")
	require.NoError(t, err)
	space, err := manager.CreateSpace(user.ID, "the team", "", models.SpaceGroup, "team")
	require.NoError(t, err)

	return &fixture{
		store:   store,
		service: NewService(store, zap.NewNop()),
		user:    user,
		space:   space,
	}
}

func (f *fixture) pendingApproval(t *testing.T, createdAt time.Time) *models.PendingApproval {
	t.Helper()
	a := &models.PendingApproval{
		ID:                models.NewID("appr"),
		UserID:            f.user.ID,
		SpaceID:           f.space.ID,
		SourceTurnID:      models.NewID("turn"),
		ProposedContent:   "proposed text",
		ReasonForApproval: "Sensitivity 0.60 > 0.50",
		ConfidenceScore:   0.8,
		SensitivityScore:  0.6,
		Status:            models.ApprovalPending,
		CreatedAt:         createdAt,
		ExpiresAt:         createdAt.Add(models.ApprovalTTL),
	}
	require.NoError(t, f.store.SavePendingApproval(a))
	return a
}

func TestApprove_PublishesDocument(t *testing.T) {
	f := newFixture(t)
	a := f.pendingApproval(t, time.Now())

	doc, err := f.service.Approve(a.ID, f.user.ID, "")
	require.NoError(t, err)

	assert.Equal(t, "proposed text", doc.Content)
	assert.True(t, doc.Approved)
	require.NotNil(t, doc.ApprovedBy)
	assert.Equal(t, f.user.ID, *doc.ApprovedBy)
	assert.Equal(t, a.SourceTurnID, doc.SourceTurnID)

	// document landed in the space
	docs, err := f.store.ListSpaceDocuments(f.space.ID, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	// approval状态被推进，不再出现在待办列表
	stored, err := f.store.GetPendingApproval(a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, stored.Status)

	list, err := f.service.List(f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestApprove_WithEditedContent(t *testing.T) {
	f := newFixture(t)
	a := f.pendingApproval(t, time.Now())

	doc, err := f.service.Approve(a.ID, f.user.ID, "softer wording")
	require.NoError(t, err)
	assert.Equal(t, "softer wording", doc.Content)
}

func TestApprove_Failures(t *testing.T) {
	f := newFixture(t)
	a := f.pendingApproval(t, time.Now())

	// 不属于该用户
	_, err := f.service.Approve(a.ID, "usr_other", "")
	assert.ErrorIs(t, err, ErrNotOwner)

	// 不存在
	_, err = f.service.Approve("appr_missing", f.user.ID, "")
	assert.ErrorIs(t, err, database.ErrNotFound)

	// 已处理过的不能再批
	require.NoError(t, f.service.Reject(a.ID, f.user.ID))
	_, err = f.service.Approve(a.ID, f.user.ID, "")
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestApprove_ExpiredIsRefusedAndMarked(t *testing.T) {
	f := newFixture(t)
	stale := f.pendingApproval(t, time.Now().Add(-8*24*time.Hour))

	_, err := f.service.Approve(stale.ID, f.user.ID, "")
	assert.ErrorIs(t, err, ErrExpired)

	stored, err := f.store.GetPendingApproval(stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalExpired, stored.Status)
}

func TestList_FiltersExpired(t *testing.T) {
	f := newFixture(t)
	f.pendingApproval(t, time.Now().Add(-8*24*time.Hour))
	fresh := f.pendingApproval(t, time.Now())

	list, err := f.service.List(f.user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, fresh.ID, list[0].ID)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	a := f.pendingApproval(t, time.Now())

	require.NoError(t, f.service.Reject(a.ID, f.user.ID))

	stored, err := f.store.GetPendingApproval(a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalRejected, stored.Status)

	// 拒绝不产生任何文档
	docs, err := f.store.ListSpaceDocuments(f.space.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, docs)

	assert.ErrorIs(t, f.service.Reject(a.ID, f.user.ID), ErrNotPending)
}

func TestSweep_MarksStalePending(t *testing.T) {
	f := newFixture(t)
	stale := f.pendingApproval(t, time.Now().Add(-8*24*time.Hour))
	fresh := f.pendingApproval(t, time.Now())

	f.service.Sweep()

	s1, err := f.store.GetPendingApproval(stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalExpired, s1.Status)

	s2, err := f.store.GetPendingApproval(fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalPending, s2.Status)
}
