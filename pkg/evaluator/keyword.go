package evaluator

import (
	"context"
	"fmt"
	"strings"

	"hivemind-backend/pkg/models"
)

// KeywordEvaluator is the deterministic, dependency-free evaluator.
// It matches inclusion/exclusion criteria against keyword lists and
// applies the transformation rules mechanically. Useful for tests,
// local development and as a baseline when no model is configured.
type KeywordEvaluator struct{}

func NewKeywordEvaluator() *KeywordEvaluator {
	return &KeywordEvaluator{}
}

// keywordMap 内置的 criterion -> 关键词 映射；未命中的 criterion
// 退化为把下划线拆成单词后直接匹配
var keywordMap = map[string][]string{
	"emotional_state":           {"feeling", "feel", "emotion", "stress", "happy", "sad", "angry", "worried", "excited"},
	"relationship_topic":        {"partner", "relationship", "together", "us", "we"},
	"shared_planning":           {"plan", "weekend", "trip", "schedule", "appointment"},
	"support_needed":            {"help", "support", "advice", "struggling", "difficult"},
	"work_progress":             {"project", "working on", "progress", "shipped", "finished"},
	"blockers":                  {"blocked", "stuck", "waiting", "issue", "problem"},
	"help_needed":               {"help", "assistance", "question", "how do i"},
	"collaboration_opportunity": {"collaborate", "pair", "review", "feedback"},
	"technical_insight":         {"learned", "discovered", "realized", "pattern", "technique"},
	"career_advice":             {"career", "job", "interview", "promotion", "manager"},
	"learning_discovery":        {"learned", "til", "insight", "understanding"},
	"creative_breakthrough":     {"idea", "breakthrough", "created", "designed", "inspiration"},
}

// exclusionMap 排除条件对应的关键词
var exclusionMap = map[string][]string{
	"work_details":              {"salary", "confidential", "internal", "nda"},
	"third_party_conversations": {"he said", "she said", "they told me", "told me that"},
	"financial_specifics":       {"$", "salary", "income", "debt", "investment"},
	"proprietary_details":       {"proprietary", "confidential", "secret", "internal only"},
	"personal_relationships":    {"my wife", "my husband", "my partner", "my girlfriend", "my boyfriend"},
}

// 名字与组织花名册：确定性脱敏用
var nameRoster = []string{"andrew", "jamila", "novel", "alexis", "ron", "eugene"}

var orgRoster = []string{"flashbots", "anthropic", "openai", "google"}

// distressKeywords raise the sensitivity score when present.
var distressKeywords = []string{"stress", "conflict", "problem", "worried", "angry"}

func (e *KeywordEvaluator) Evaluate(_ context.Context, turn *models.RawConversationTurn, policy *models.Policy) Result {
	text := strings.ToLower(turn.UserMessage + " " + turn.AssistantMessage)

	// 排除条件优先：命中即不相关
	for _, criterion := range policy.ExclusionCriteria {
		if matchesCriterion(text, criterion, exclusionMap) {
			return Result{
				IsRelevant:         false,
				RelevanceReason:    fmt.Sprintf("matches exclusion criterion: %s", criterion),
				TransformedContent: turn.UserMessage,
				Topics:             []string{},
				ConfidenceScore:    0.8,
				SensitivityScore:   sensitivityOf(text),
			}
		}
	}

	var topics []string
	for _, criterion := range policy.InclusionCriteria {
		if matchesCriterion(text, criterion, keywordMap) {
			topics = append(topics, criterion)
		}
	}

	// 触发词或触发实体命中，都是相关性的替代路径
	triggerReason := ""
	for _, kw := range policy.TriggerKeywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			triggerReason = "matches trigger keywords"
			break
		}
	}
	if triggerReason == "" {
		for _, entity := range policy.TriggerEntities {
			if strings.Contains(text, strings.ToLower(entity)) {
				triggerReason = "matches trigger entities"
				break
			}
		}
	}

	if len(topics) == 0 && triggerReason == "" {
		return Result{
			IsRelevant:         false,
			RelevanceReason:    "does not match the space's inclusion criteria",
			TransformedContent: turn.UserMessage,
			Topics:             []string{},
			ConfidenceScore:    0.8,
			SensitivityScore:   sensitivityOf(text),
		}
	}

	reason := triggerReason
	if len(topics) > 0 {
		reason = fmt.Sprintf("matches criterion: %s", topics[0])
	}

	return Result{
		IsRelevant:         true,
		RelevanceReason:    reason,
		TransformedContent: transform(turn.UserMessage, policy.Rules),
		Topics:             topics,
		ConfidenceScore:    0.8,
		SensitivityScore:   sensitivityOf(text),
	}
}

// matchesCriterion 先查映射表，查不到时把 criterion 拆词直接匹配
func matchesCriterion(text, criterion string, table map[string][]string) bool {
	keywords, ok := table[criterion]
	if !ok {
		keywords = strings.Split(strings.ReplaceAll(criterion, "_", " "), " ")
	}
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func sensitivityOf(text string) float64 {
	for _, kw := range distressKeywords {
		if strings.Contains(text, kw) {
			return 0.6
		}
	}
	return 0.3
}

// transform applies the mechanical redaction/truncation rules.
func transform(content string, rules models.TransformationRules) string {
	out := content
	if rules.RemoveNames {
		for _, name := range nameRoster {
			out = strings.ReplaceAll(out, title(name), "[Person]")
			out = strings.ReplaceAll(out, name, "[person]")
		}
	}
	if rules.RemoveOrganizations {
		for _, org := range orgRoster {
			out = strings.ReplaceAll(out, title(org), "[Organization]")
			out = strings.ReplaceAll(out, org, "[organization]")
		}
	}
	switch rules.DetailLevel {
	case "low":
		out = "General context: " + truncateRunes(out, 100) + "..."
	case "medium":
		out = truncateRunes(out, 200)
	}
	return out
}

// truncateRunes 按码点截断，不把多字节字符劈成非法 UTF-8
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// title 把小写词首字母大写（花名册都是 ASCII）
func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
