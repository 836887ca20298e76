package evaluator

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hivemind-backend/pkg/metrics"
	"hivemind-backend/pkg/models"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ModelEvaluator performs relevance classification, transformation and
// scoring in a single model call. Any failure (transport, breaker open,
// timeout, unparseable output) degrades to the conservative fallback
// result instead of surfacing an error.
type ModelEvaluator struct {
	provider Provider
	timeout  time.Duration
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

// NewModelEvaluator 构造模型评估器；timeout<=0 时取 30s
func NewModelEvaluator(provider Provider, timeout time.Duration, logger *zap.Logger) *ModelEvaluator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "evaluator",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("evaluator breaker state change",
				zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return &ModelEvaluator{provider: provider, timeout: timeout, breaker: breaker, logger: logger}
}

func (e *ModelEvaluator) Evaluate(ctx context.Context, turn *models.RawConversationTurn, policy *models.Policy) Result {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	system := buildSystemPrompt(policy)
	user := fmt.Sprintf("User: %s\n\nAssistant: %s", turn.UserMessage, turn.AssistantMessage)

	raw, err := e.breaker.Execute(func() (interface{}, error) {
		return e.provider.Complete(ctx, system, user)
	})
	if err != nil {
		e.logger.Warn("evaluation failed, falling back",
			zap.String("turn_id", turn.ID),
			zap.String("space_id", policy.SpaceID),
			zap.Error(err))
		metrics.EvaluatorFallbacks.Inc()
		return FallbackResult(turn, "evaluation failed")
	}

	result, err := parseEvaluation(raw.(string), turn)
	if err != nil {
		e.logger.Warn("unparseable evaluation response, falling back",
			zap.String("turn_id", turn.ID), zap.Error(err))
		metrics.EvaluatorFallbacks.Inc()
		return FallbackResult(turn, "evaluation failed")
	}
	return result
}

// buildSystemPrompt renders the policy into evaluation instructions and
// pins the XML response format the parser expects.
func buildSystemPrompt(p *models.Policy) string {
	var b strings.Builder
	b.WriteString("You evaluate one conversation turn against a sharing policy for a private space.\n\n")

	b.WriteString("Relevance question: ")
	b.WriteString(p.RelevancePrompt)
	b.WriteString("\n\n")

	if len(p.InclusionCriteria) > 0 {
		b.WriteString("Content is relevant when it involves: ")
		b.WriteString(strings.Join(p.InclusionCriteria, ", "))
		b.WriteString("\n")
	}
	if len(p.ExclusionCriteria) > 0 {
		b.WriteString("Content must NEVER be shared when it involves: ")
		b.WriteString(strings.Join(p.ExclusionCriteria, ", "))
		b.WriteString("\n")
	}
	if len(p.TriggerKeywords) > 0 {
		b.WriteString("Trigger keywords that suggest relevance: ")
		b.WriteString(strings.Join(p.TriggerKeywords, ", "))
		b.WriteString("\n")
	}
	if len(p.TriggerEntities) > 0 {
		b.WriteString("Named entities that suggest relevance when mentioned: ")
		b.WriteString(strings.Join(p.TriggerEntities, ", "))
		b.WriteString("\n")
	}
	b.WriteString("\nIf relevant, rewrite the content for sharing:\n")
	for _, line := range transformationInstructions(p.Rules) {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	if p.Rules.CustomPrompt != "" {
		b.WriteString("- ")
		b.WriteString(p.Rules.CustomPrompt)
		b.WriteString("\n")
	}

	b.WriteString(`
Respond with exactly this XML and nothing else:
<evaluation>
<is_relevant>true|false</is_relevant>
<relevance_reason>why</relevance_reason>
<transformed_content>the rewritten content, empty if not relevant</transformed_content>
<topics><topic>one topic per tag</topic></topics>
<confidence_score>0.0-1.0</confidence_score>
<sensitivity_score>0.0-1.0</sensitivity_score>
</evaluation>`)
	return b.String()
}

func transformationInstructions(r models.TransformationRules) []string {
	var out []string
	if r.RemoveNames {
		out = append(out, "Replace personal names with generic placeholders like [Person].")
	}
	if r.RemoveLocations {
		out = append(out, "Replace specific locations with general regions.")
	}
	if r.RemoveOrganizations {
		out = append(out, "Replace company and organization names with [Organization].")
	}
	if r.RemoveFinancialDetails {
		out = append(out, "Remove all financial figures and specifics.")
	}
	if r.GeneralizeSituations {
		out = append(out, "Generalize specific situations so they are not identifying.")
	}
	if r.PreserveEmotionalTone {
		out = append(out, "Preserve the emotional tone and intensity.")
	}
	switch r.DetailLevel {
	case "low":
		out = append(out, "Keep only a brief general summary (one or two sentences).")
	case "medium":
		out = append(out, "Keep moderate detail without identifying specifics.")
	case "high":
		out = append(out, "Keep full detail.")
	}
	return out
}

// evaluationXML 模型响应的 XML 结构
type evaluationXML struct {
	XMLName            xml.Name `xml:"evaluation"`
	IsRelevant         string   `xml:"is_relevant"`
	RelevanceReason    string   `xml:"relevance_reason"`
	TransformedContent string   `xml:"transformed_content"`
	Topics             struct {
		Topic []string `xml:"topic"`
	} `xml:"topics"`
	ConfidenceScore  string `xml:"confidence_score"`
	SensitivityScore string `xml:"sensitivity_score"`
}

func parseEvaluation(raw string, turn *models.RawConversationTurn) (Result, error) {
	start := strings.Index(raw, "<evaluation>")
	end := strings.Index(raw, "</evaluation>")
	if start < 0 || end < 0 || end < start {
		return Result{}, fmt.Errorf("no <evaluation> block in response")
	}
	block := raw[start : end+len("</evaluation>")]

	var parsed evaluationXML
	if err := xml.Unmarshal([]byte(block), &parsed); err != nil {
		return Result{}, fmt.Errorf("failed to parse evaluation xml: %w", err)
	}

	relevant := false
	switch strings.ToLower(strings.TrimSpace(parsed.IsRelevant)) {
	case "true", "1", "yes":
		relevant = true
	}

	content := strings.TrimSpace(parsed.TransformedContent)
	if content == "" {
		content = turn.UserMessage
	}

	topics := parsed.Topics.Topic
	if topics == nil {
		topics = []string{}
	}
	for i, t := range topics {
		topics[i] = strings.TrimSpace(t)
	}

	return Result{
		IsRelevant:         relevant,
		RelevanceReason:    strings.TrimSpace(parsed.RelevanceReason),
		TransformedContent: content,
		Topics:             topics,
		ConfidenceScore:    clamp01(parseScore(parsed.ConfidenceScore)),
		SensitivityScore:   clamp01(parseScore(parsed.SensitivityScore)),
	}, nil
}

// parseScore 解析失败时给中性的 0.5
func parseScore(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0.5
	}
	return v
}
