package database

import (
	"testing"
	"time"

	"hivemind-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpace(id, inviteCode string) *models.Space {
	return &models.Space{
		ID:         id,
		Type:       models.SpaceGroup,
		Name:       "space " + id,
		Members:    []models.SpaceMember{},
		CreatedBy:  "usr_a",
		InviteCode: inviteCode,
		CreatedAt:  time.Now(),
	}
}

func TestMemoryStore_UserRoundTrip(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.GetUser("usr_missing")
	assert.ErrorIs(t, err, ErrNotFound)

	u := &models.User{
		ID:          "usr_a",
		DisplayName: "alice",
		Consent:     models.DefaultConsentConfig(),
		Spaces:      []string{"spc_1"},
		CreatedAt:   time.Now(),
	}
	require.NoError(t, s.SaveUser(u))

	got, err := s.GetUser("usr_a")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.DisplayName)

	// 返回的是副本：改写不影响存储内容
	got.Spaces = append(got.Spaces, "spc_2")
	again, err := s.GetUser("usr_a")
	require.NoError(t, err)
	assert.Equal(t, []string{"spc_1"}, again.Spaces)
}

func TestMemoryStore_InviteCodeIndex(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.SaveSpace(testSpace("spc_1", "AAAA2222")))

	// lookup is case-insensitive
	got, err := s.GetSpaceByInviteCode("aaaa2222")
	require.NoError(t, err)
	assert.Equal(t, "spc_1", got.ID)

	// 换码后旧码失效
	require.NoError(t, s.SaveSpace(testSpace("spc_1", "BBBB3333")))
	_, err = s.GetSpaceByInviteCode("AAAA2222")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetSpaceByInviteCode("BBBB3333")
	assert.NoError(t, err)

	// deleting the space frees the code
	require.NoError(t, s.DeleteSpace("spc_1"))
	_, err = s.GetSpaceByInviteCode("BBBB3333")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteSpace("spc_1"), ErrNotFound)
}

func TestMemoryStore_ListSpaceDocuments(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.SaveFilteredDocument(&models.FilteredDocument{
			ID:        models.NewID("doc"),
			SpaceID:   "spc_1",
			Content:   "doc",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.SaveFilteredDocument(&models.FilteredDocument{
		ID:      models.NewID("doc"),
		SpaceID: "spc_other",
	}))

	docs, err := s.ListSpaceDocuments("spc_1", 3)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	// newest first
	assert.True(t, docs[0].CreatedAt.After(docs[1].CreatedAt))
	assert.True(t, docs[1].CreatedAt.After(docs[2].CreatedAt))
}

func TestMemoryStore_Approvals(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.SavePendingApproval(&models.PendingApproval{
			ID:        models.NewID("appr"),
			UserID:    "usr_a",
			Status:    models.ApprovalPending,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
			ExpiresAt: now.Add(models.ApprovalTTL),
		}))
	}

	list, err := s.GetPendingApprovals("usr_a")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.True(t, list[0].CreatedAt.Before(list[1].CreatedAt))

	require.NoError(t, s.UpdateApprovalStatus(list[0].ID, models.ApprovalApproved))
	got, err := s.GetPendingApproval(list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, got.Status)

	assert.ErrorIs(t, s.UpdateApprovalStatus("appr_missing", models.ApprovalExpired), ErrNotFound)
}

func TestNew_ExplicitDriverSelection(t *testing.T) {
	store, err := New(Config{Driver: "memory"})
	require.NoError(t, err)
	assert.NotNil(t, store)

	_, err = New(Config{Driver: "postgres"})
	assert.Error(t, err, "postgres without DSN must fail, not fall back")

	_, err = New(Config{Driver: "firestore"})
	assert.Error(t, err, "unknown driver must fail, not fall back")
}
