package evaluator

import (
	"context"

	"hivemind-backend/pkg/models"
)

// Result is the outcome of evaluating one conversation turn against one
// space policy. Scores are always clamped to [0,1].
type Result struct {
	IsRelevant         bool     `json:"is_relevant"`
	RelevanceReason    string   `json:"relevance_reason"`
	TransformedContent string   `json:"transformed_content"`
	Topics             []string `json:"topics"`
	ConfidenceScore    float64  `json:"confidence_score"`
	SensitivityScore   float64  `json:"sensitivity_score"`
}

// Evaluator 对单条对话轮进行策略评估。实现不返回错误：
// 任何内部失败都必须降级为保守的不共享结果。
type Evaluator interface {
	Evaluate(ctx context.Context, turn *models.RawConversationTurn, policy *models.Policy) Result
}

// FallbackResult is the conservative result returned when an evaluator
// cannot produce a real evaluation. It never shares content.
func FallbackResult(turn *models.RawConversationTurn, reason string) Result {
	return Result{
		IsRelevant:         false,
		RelevanceReason:    reason,
		TransformedContent: turn.UserMessage,
		Topics:             []string{},
		ConfidenceScore:    0,
		SensitivityScore:   0.5,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
