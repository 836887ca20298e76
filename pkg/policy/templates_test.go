package policy

import (
	"encoding/json"
	"testing"

	"hivemind-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromTemplate_Presets(t *testing.T) {
	tests := []struct {
		name          string
		template      string
		threshold     float64
		attribution   models.AttributionLevel
		detailLevel   string
		ruleThreshold float64
	}{
		{
			name:          "intimate pair shares feelings with strong redaction",
			template:      "intimate_pair",
			threshold:     0.7,
			attribution:   models.AttributionFull,
			detailLevel:   "medium",
			ruleThreshold: 0.6,
		},
		{
			name:          "team keeps context and detail",
			template:      "team",
			threshold:     0.6,
			attribution:   models.AttributionFull,
			detailLevel:   "high",
			ruleThreshold: 0.5,
		},
		{
			name:          "public feed is aggressive about stripping context",
			template:      "public_feed",
			threshold:     0.8,
			attribution:   models.AttributionAnonymous,
			detailLevel:   "low",
			ruleThreshold: 0.4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := FromTemplate(tt.template, "spc_test")

			assert.Equal(t, "spc_test", p.SpaceID)
			assert.Equal(t, 1, p.Version)
			assert.Equal(t, tt.threshold, p.AutoApproveThreshold)
			assert.Equal(t, tt.attribution, p.AttributionLevel)
			assert.Equal(t, tt.detailLevel, p.Rules.DetailLevel)
			require.Len(t, p.RequireApprovalIf, 1)
			assert.Equal(t, "sensitivity", p.RequireApprovalIf[0].Metric)
			assert.Equal(t, tt.ruleThreshold, p.RequireApprovalIf[0].Threshold)
			assert.NoError(t, Validate(&p))
		})
	}
}

func TestFromTemplate_CouplesAliasesIntimatePair(t *testing.T) {
	a := FromTemplate("couples", "spc_a")
	b := FromTemplate("intimate_pair", "spc_a")
	assert.Equal(t, a.AutoApproveThreshold, b.AutoApproveThreshold)
	assert.Equal(t, a.InclusionCriteria, b.InclusionCriteria)
}

func TestFromTemplate_PrivacyCatalogName(t *testing.T) {
	p := FromTemplate("emotional_only", "spc_x")

	assert.Equal(t, []string{"emotional_state", "feelings", "mood"}, p.InclusionCriteria)
	assert.Contains(t, p.ExclusionCriteria, "work_details")
	assert.NotEmpty(t, p.Rules.CustomPrompt)
	assert.NoError(t, Validate(&p))
}

func TestFromTemplate_UnknownFallsBackToCustom(t *testing.T) {
	p := FromTemplate("no-such-template", "spc_y")

	assert.Empty(t, p.InclusionCriteria)
	assert.Empty(t, p.RequireApprovalIf)
	assert.Equal(t, 0.7, p.AutoApproveThreshold)
	assert.Equal(t, models.AttributionFull, p.AttributionLevel)
	assert.NoError(t, Validate(&p))
}

func TestCatalog_ReturnsCopies(t *testing.T) {
	c := Catalog()
	require.Contains(t, c, "minimal_filter")
	delete(c, "minimal_filter")
	assert.Contains(t, Catalog(), "minimal_filter")
}

func TestParseApprovalRule(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    models.ApprovalRule
		wantErr bool
	}{
		{
			name:  "greater than",
			input: "sensitivity > 0.6",
			want:  models.ApprovalRule{Metric: "sensitivity", Operator: ">", Threshold: 0.6},
		},
		{
			name:  "greater or equal",
			input: "sensitivity >= 0.5",
			want:  models.ApprovalRule{Metric: "sensitivity", Operator: ">=", Threshold: 0.5},
		},
		{name: "wrong arity", input: "sensitivity >", wantErr: true},
		{name: "unsupported metric", input: "confidence > 0.5", wantErr: true},
		{name: "unsupported operator", input: "sensitivity < 0.5", wantErr: true},
		{name: "threshold out of range", input: "sensitivity > 1.5", wantErr: true},
		{name: "non numeric threshold", input: "sensitivity > high", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseApprovalRule(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseApprovalRules_RejectsWholeListOnBadEntry(t *testing.T) {
	_, err := ParseApprovalRules([]string{"sensitivity > 0.6", "bogus"})
	assert.Error(t, err)
}

func TestValidate_RejectsMalformedPolicy(t *testing.T) {
	p := FromTemplate("team", "spc_z")

	p.RequireApprovalIf = append(p.RequireApprovalIf, models.ApprovalRule{
		Metric: "sensitivity", Operator: ">", Threshold: 1.7,
	})
	assert.Error(t, Validate(&p), "out-of-range threshold must be rejected at save time")

	p = FromTemplate("team", "spc_z")
	p.AutoApproveThreshold = -0.1
	assert.Error(t, Validate(&p))

	p = FromTemplate("team", "")
	assert.Error(t, Validate(&p), "policy must be bound to a space")
}

func TestApprovalRule_Matches(t *testing.T) {
	gt := models.ApprovalRule{Metric: "sensitivity", Operator: ">", Threshold: 0.5}
	assert.True(t, gt.Matches(0.51))
	assert.False(t, gt.Matches(0.5))

	gte := models.ApprovalRule{Metric: "sensitivity", Operator: ">=", Threshold: 0.5}
	assert.True(t, gte.Matches(0.5))
	assert.False(t, gte.Matches(0.49))
}

func TestPolicy_JSONRoundTrip(t *testing.T) {
	p := FromTemplate("intimate_pair", "spc_json")

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var back models.Policy
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, p.RequireApprovalIf, back.RequireApprovalIf)
	assert.Equal(t, p.Rules, back.Rules)
	assert.Equal(t, p.AutoApproveThreshold, back.AutoApproveThreshold)
}
