package policy

import (
	"fmt"
	"strconv"
	"strings"

	"hivemind-backend/pkg/models"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ParseApprovalRule parses the policy-authored string form
// "<metric> <operator> <threshold>", e.g. "sensitivity > 0.6".
// Only the sensitivity metric and the > / >= operators are supported.
func ParseApprovalRule(s string) (models.ApprovalRule, error) {
	parts := strings.Fields(strings.TrimSpace(s))
	if len(parts) != 3 {
		return models.ApprovalRule{}, fmt.Errorf("approval rule %q: expected \"<metric> <operator> <threshold>\"", s)
	}
	metric := strings.ToLower(parts[0])
	if metric != "sensitivity" {
		return models.ApprovalRule{}, fmt.Errorf("approval rule %q: unsupported metric %q", s, parts[0])
	}
	op := parts[1]
	if op != ">" && op != ">=" {
		return models.ApprovalRule{}, fmt.Errorf("approval rule %q: unsupported operator %q", s, op)
	}
	threshold, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return models.ApprovalRule{}, fmt.Errorf("approval rule %q: bad threshold: %w", s, err)
	}
	if threshold < 0 || threshold > 1 {
		return models.ApprovalRule{}, fmt.Errorf("approval rule %q: threshold %v out of [0,1]", s, threshold)
	}
	return models.ApprovalRule{Metric: metric, Operator: op, Threshold: threshold}, nil
}

// ParseApprovalRules parses a list of rule strings, rejecting the whole
// list on the first malformed entry.
func ParseApprovalRules(in []string) ([]models.ApprovalRule, error) {
	rules := make([]models.ApprovalRule, 0, len(in))
	for _, s := range in {
		r, err := ParseApprovalRule(s)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// mustRule 模板内部使用：模板中的规则都是写死的合法表达式
func mustRule(s string) models.ApprovalRule {
	r, err := ParseApprovalRule(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Validate checks a policy before it is saved. Malformed approval rules
// or out-of-range thresholds are rejected here rather than silently
// ignored at evaluation time.
func Validate(p *models.Policy) error {
	if p.SpaceID == "" {
		return fmt.Errorf("policy: space_id is required")
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("policy validation failed: %w", err)
	}
	return nil
}
