package routing

import (
	"context"
	"testing"
	"time"

	"hivemind-backend/pkg/database"
	"hivemind-backend/pkg/evaluator"
	"hivemind-backend/pkg/models"
	"hivemind-backend/pkg/spaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	store   database.Store
	manager *spaces.Manager
	engine  *Engine
	user    *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := database.NewMemoryStore()
	manager := spaces.NewManager(store, zap.NewNop())
	engine := NewEngine(manager, evaluator.NewKeywordEvaluator(), zap.NewNop())

	user, err := manager.CreateUser("alice", "alice@example.com")
	require.NoError(t, err)
	return &fixture{store: store, manager: manager, engine: engine, user: user}
}

func turnOf(userID, msg string) *models.RawConversationTurn {
	return &models.RawConversationTurn{
		ID:          models.NewID("turn"),
		UserID:      userID,
		Timestamp:   time.Now(),
		UserMessage: msg,
	}
}

func TestRouteTurn_NoSpaces(t *testing.T) {
	f := newFixture(t)

	results, err := f.engine.RouteTurn(context.Background(), turnOf(f.user.ID, "hello"), f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRouteTurn_UnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.RouteTurn(context.Background(), turnOf("usr_ghost", "hello"), "usr_ghost")
	assert.Error(t, err)
}

func TestRouteTurn_RelevantConfidentTurnIsShared(t *testing.T) {
	f := newFixture(t)
	space, err := f.manager.CreateSpace(f.user.ID, "us two", "", models.SpacePair, "intimate_pair")
	require.NoError(t, err)

	turn := turnOf(f.user.ID, "I'm feeling really happy about the weekend plans with Jamila")
	results, err := f.engine.RouteTurn(context.Background(), turn, f.user.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, space.ID, res.SpaceID)
	assert.Equal(t, models.RouteShared, res.Action)
	require.NotNil(t, res.Document)
	assert.Nil(t, res.Approval)

	// 转换规则生效：名字被脱敏
	assert.NotContains(t, res.Document.Content, "Jamila")
	assert.Equal(t, turn.ID, res.Document.SourceTurnID)
	assert.Equal(t, f.user.ID, res.Document.AuthorUserID)
	assert.False(t, res.Document.Approved)

	// full attribution carries the author's details
	require.NotNil(t, res.Document.DisplayName)
	assert.Equal(t, "alice", *res.Document.DisplayName)
	require.NotNil(t, res.Document.ContactPreference)
}

func TestRouteTurn_IrrelevantTurnIsSkipped(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.CreateSpace(f.user.ID, "us two", "", models.SpacePair, "intimate_pair")
	require.NoError(t, err)

	results, err := f.engine.RouteTurn(context.Background(),
		turnOf(f.user.ID, "The linker rejects mismatched symbol versions"), f.user.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, models.RouteSkipped, results[0].Action)
	assert.Nil(t, results[0].Document)
	assert.Nil(t, results[0].Approval)
	assert.NotEmpty(t, results[0].Reason)
}

func TestRouteTurn_SensitiveTurnNeedsApproval(t *testing.T) {
	f := newFixture(t)
	space, err := f.manager.CreateSpace(f.user.ID, "the team", "", models.SpaceGroup, "team")
	require.NoError(t, err)

	// "worried" 触发情绪词，把 sensitivity 推到 0.6 > 规则阈值 0.5
	turn := turnOf(f.user.ID, "I'm worried the project is blocked on the review")
	results, err := f.engine.RouteTurn(context.Background(), turn, f.user.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, models.RouteApprovalNeeded, res.Action)
	assert.Nil(t, res.Document)
	require.NotNil(t, res.Approval)

	assert.Equal(t, space.ID, res.Approval.SpaceID)
	assert.Equal(t, models.ApprovalPending, res.Approval.Status)
	assert.Contains(t, res.Reason, "Sensitivity")
	assert.Equal(t, res.Approval.CreatedAt.Add(models.ApprovalTTL), res.Approval.ExpiresAt)
}

func TestRouteTurn_LowConfidenceNeedsApproval(t *testing.T) {
	f := newFixture(t)
	space, err := f.manager.CreateSpace(f.user.ID, "the team", "", models.SpaceGroup, "team")
	require.NoError(t, err)

	// 关键词评估器置信度固定 0.8；把阈值抬高到 0.9 模拟低置信
	pol := space.Policy
	pol.AutoApproveThreshold = 0.9
	pol.RequireApprovalIf = nil
	_, err = f.manager.UpdatePolicy(space.ID, pol)
	require.NoError(t, err)

	results, err := f.engine.RouteTurn(context.Background(),
		turnOf(f.user.ID, "Shipped the new project milestone"), f.user.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, models.RouteApprovalNeeded, results[0].Action)
	assert.Contains(t, results[0].Reason, "Confidence 0.80 below threshold 0.90")
}

func TestRouteTurn_EachSpaceDecidesIndependently(t *testing.T) {
	f := newFixture(t)

	pair, err := f.manager.CreateSpace(f.user.ID, "us two", "", models.SpacePair, "intimate_pair")
	require.NoError(t, err)
	team, err := f.manager.CreateSpace(f.user.ID, "the team", "", models.SpaceGroup, "team")
	require.NoError(t, err)
	feed, err := f.manager.CreateSpace(f.user.ID, "the feed", "", models.SpacePublic, "public_feed")
	require.NoError(t, err)

	// 情绪内容：进入 pair，与 team/feed 的条件不匹配
	turn := turnOf(f.user.ID, "I'm feeling excited about our plans")
	results, err := f.engine.RouteTurn(context.Background(), turn, f.user.ID)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// results follow the user's space-list order
	assert.Equal(t, pair.ID, results[0].SpaceID)
	assert.Equal(t, team.ID, results[1].SpaceID)
	assert.Equal(t, feed.ID, results[2].SpaceID)

	assert.Equal(t, models.RouteShared, results[0].Action)
	assert.Equal(t, models.RouteSkipped, results[1].Action)
	assert.Equal(t, models.RouteSkipped, results[2].Action)
}

func TestBuildDocument_AttributionLevels(t *testing.T) {
	f := newFixture(t)
	space, err := f.manager.CreateSpace(f.user.ID, "the feed", "", models.SpacePublic, "public_feed")
	require.NoError(t, err)

	res := evaluator.Result{
		IsRelevant:         true,
		TransformedContent: "a general insight",
		Topics:             []string{"technical_insight"},
		ConfidenceScore:    0.9,
		SensitivityScore:   0.1,
	}
	turn := turnOf(f.user.ID, "raw")
	user, err := f.manager.GetUser(f.user.ID)
	require.NoError(t, err)

	doc := BuildDocument(turn, user, space, res, false, nil)
	assert.Equal(t, models.AttributionAnonymous, doc.AttributionLevel)
	assert.Nil(t, doc.DisplayName)
	assert.Nil(t, doc.ContactMethod)
	assert.Nil(t, doc.ContactPreference)
}
