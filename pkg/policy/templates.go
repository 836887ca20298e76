package policy

import (
	"time"

	"hivemind-backend/pkg/models"
)

// Template is a named privacy preset users can start a space from.
// The prompt text is handed to the model-backed evaluator as a custom
// transformation instruction.
type Template struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Prompt            string   `json:"prompt"`
	InclusionCriteria []string `json:"inclusion_criteria"`
	ExclusionCriteria []string `json:"exclusion_criteria"`
}

// privacyTemplates 预置隐私模板目录
var privacyTemplates = map[string]Template{
	"emotional_only": {
		ID:          "emotional_only",
		Name:        "Emotional State Only",
		Description: "Perfect for couples/partners. Share how you're feeling, nothing else.",
		Prompt: "Only share the emotional state. Remove all specific details (names, places, " +
			"companies, projects, events) and all context about what caused the emotion. " +
			"Preserve the intensity of the emotion. Keep it to 1-2 sentences maximum.",
		InclusionCriteria: []string{"emotional_state", "feelings", "mood"},
		ExclusionCriteria: []string{"work_details", "financial_specifics", "third_party_conversations"},
	},
	"patterns_and_insights": {
		ID:          "patterns_and_insights",
		Name:        "Patterns & Insights Only",
		Description: "For learning communities. Share what you learned, not what you did.",
		Prompt: "Extract the general pattern, insight, or learning. Remove all specific context " +
			"(people, companies, projects, technologies) and generalize the situation so it is " +
			"universally applicable.",
		InclusionCriteria: []string{"learning_discovery", "technical_insight", "creative_breakthrough"},
		ExclusionCriteria: []string{"proprietary_details", "work_details", "personal_relationships"},
	},
	"support_requests": {
		ID:          "support_requests",
		Name:        "Support Requests",
		Description: "For support groups. Share struggles and needs while protecting privacy.",
		Prompt: "Share the type of challenge in general terms. Remove identifying details but " +
			"preserve the emotional weight and urgency, keeping enough context for others to " +
			"offer relevant support.",
		InclusionCriteria: []string{"support_needed", "emotional_state", "help_needed"},
		ExclusionCriteria: []string{"third_party_conversations", "financial_specifics"},
	},
	"team_blockers": {
		ID:          "team_blockers",
		Name:        "Team Blockers & Progress",
		Description: "For work teams. Share what you're working on and what's blocking you.",
		Prompt: "Share high-level progress and blockers. Remove implementation details and " +
			"proprietary information, keep project names generic, preserve what help is needed.",
		InclusionCriteria: []string{"work_progress", "blockers", "help_needed"},
		ExclusionCriteria: []string{"proprietary_details", "financial_specifics"},
	},
	"context_with_privacy": {
		ID:          "context_with_privacy",
		Name:        "Full Context (Private Names)",
		Description: "For close friends. Keep context but anonymize people and organizations.",
		Prompt: "Keep the full story and context. Replace all names with generic placeholders " +
			"([Friend], [Colleague], [Partner]), company names with [Company], and specific " +
			"locations with general regions. Preserve everything else.",
		InclusionCriteria: []string{"relationship_topic", "shared_planning", "emotional_state"},
		ExclusionCriteria: []string{},
	},
	"minimal_filter": {
		ID:          "minimal_filter",
		Name:        "Minimal Filtering",
		Description: "For trusted circles. Only remove highly sensitive information.",
		Prompt: "Keep most details intact. Only remove financial specifics, proprietary trade " +
			"secrets and medical details.",
		InclusionCriteria: []string{"general"},
		ExclusionCriteria: []string{"financial_specifics", "proprietary_details"},
	},
}

// Catalog returns all privacy templates, for the template-picker surface.
func Catalog() map[string]Template {
	out := make(map[string]Template, len(privacyTemplates))
	for k, v := range privacyTemplates {
		out[k] = v
	}
	return out
}

// FromTemplate maps a template name to a fully populated Policy (minus
// ID/SpaceID bookkeeping filled by the caller via spaceID). The three
// primary presets are intimate_pair, team and public_feed; the privacy
// catalog above is also accepted by name. Unknown names fall back to a
// permissive custom policy with empty criteria.
func FromTemplate(name, spaceID string) models.Policy {
	now := time.Now()
	switch name {
	case "intimate_pair", "couples":
		return intimatePairPolicy(spaceID, now)
	case "team":
		return teamPolicy(spaceID, now)
	case "public_feed":
		return publicFeedPolicy(spaceID, now)
	}
	if t, ok := privacyTemplates[name]; ok {
		p := customPolicy(spaceID, now)
		p.InclusionCriteria = append([]string(nil), t.InclusionCriteria...)
		p.ExclusionCriteria = append([]string(nil), t.ExclusionCriteria...)
		p.Rules.CustomPrompt = t.Prompt
		return p
	}
	return customPolicy(spaceID, now)
}

// intimatePairPolicy 1:1 伴侣空间：低门槛共享情绪，强脱敏
func intimatePairPolicy(spaceID string, now time.Time) models.Policy {
	return models.Policy{
		ID:      models.NewID("pol"),
		SpaceID: spaceID,
		Version: 1,
		RelevancePrompt: "Is this content relevant to my relationship with my partner? " +
			"Does it involve emotional state, shared plans, or relationship dynamics?",
		InclusionCriteria: []string{"emotional_state", "relationship_topic", "shared_planning", "support_needed"},
		ExclusionCriteria: []string{"work_details", "third_party_conversations", "financial_specifics", "health_diagnoses"},
		Rules: models.TransformationRules{
			RemoveNames:           true,
			RemoveOrganizations:   true,
			GeneralizeSituations:  true,
			PreserveEmotionalTone: true,
			DetailLevel:           "medium",
			CustomPrompt:          "Preserve emotional context but generalize specific situations.",
		},
		AttributionLevel:      models.AttributionFull,
		TriggerKeywords:       []string{"partner", "wife", "husband", "relationship", "weekend", "plans together"},
		ContextWindow:         10,
		AutoApproveThreshold:  0.7,
		RequireApprovalIf:     []models.ApprovalRule{mustRule("sensitivity > 0.6")},
		HighSensitivityTopics: []string{"infidelity", "separation", "major_conflict"},
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// teamPolicy 团队空间：保留名字与公司上下文，高细节
func teamPolicy(spaceID string, now time.Time) models.Policy {
	return models.Policy{
		ID:      models.NewID("pol"),
		SpaceID: spaceID,
		Version: 1,
		RelevancePrompt: "Is this relevant to team coordination or collaboration? " +
			"What's being worked on, blockers, opportunities to help?",
		InclusionCriteria: []string{"work_progress", "blockers", "help_needed", "collaboration_opportunity", "learning"},
		ExclusionCriteria: []string{"proprietary_details", "personal_relationships", "health_info", "financial_details"},
		Rules: models.TransformationRules{
			RemoveNames:           false, // keep team member names
			RemoveOrganizations:   false, // keep company context
			PreserveEmotionalTone: true,
			DetailLevel:           "high",
			CustomPrompt:          "Keep technical details, remove sensitive business info.",
		},
		AttributionLevel:     models.AttributionFull,
		TriggerKeywords:      []string{"team", "project", "help", "blocker"},
		ContextWindow:        10,
		AutoApproveThreshold: 0.6,
		RequireApprovalIf:    []models.ApprovalRule{mustRule("sensitivity > 0.5")},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// publicFeedPolicy 公开频道：激进脱敏 + 高自动通过门槛
func publicFeedPolicy(spaceID string, now time.Time) models.Policy {
	return models.Policy{
		ID:      models.NewID("pol"),
		SpaceID: spaceID,
		Version: 1,
		RelevancePrompt: "Is this a generalizable insight that could help others? " +
			"Technical learning, career wisdom, life lessons, creative breakthroughs?",
		InclusionCriteria: []string{"technical_insight", "career_advice", "learning_discovery", "creative_breakthrough", "useful_pattern"},
		ExclusionCriteria: []string{"personal_details", "names", "companies", "locations", "financial_info", "health_info", "relationship_details"},
		Rules: models.TransformationRules{
			RemoveNames:          true,
			RemoveLocations:      true,
			RemoveOrganizations:  true,
			GeneralizeSituations: true,
			DetailLevel:          "low",
			CustomPrompt:         "Extract the general principle or insight. Remove all personal context.",
		},
		AttributionLevel:     models.AttributionAnonymous,
		TriggerKeywords:      []string{"team", "group", "learning", "exploring"},
		ContextWindow:        10,
		AutoApproveThreshold: 0.8,
		RequireApprovalIf:    []models.ApprovalRule{mustRule("sensitivity > 0.4")},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// customPolicy 兜底：空条件的宽松策略
func customPolicy(spaceID string, now time.Time) models.Policy {
	return models.Policy{
		ID:                   models.NewID("pol"),
		SpaceID:              spaceID,
		Version:              1,
		RelevancePrompt:      "Evaluate if this conversation is relevant to the space's policy.",
		InclusionCriteria:    []string{},
		ExclusionCriteria:    []string{},
		Rules:                DefaultRulesForCustom(),
		AttributionLevel:     models.AttributionFull,
		TriggerKeywords:      []string{},
		ContextWindow:        10,
		AutoApproveThreshold: 0.7,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// DefaultRulesForCustom exposes the conservative default rule set used
// by the custom template.
func DefaultRulesForCustom() models.TransformationRules {
	return models.DefaultTransformationRules()
}
