package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 路由与评估的运行指标，经 /metrics 暴露

var (
	// RoutingDecisions counts routing outcomes by action
	// (shared / skipped / approval_needed).
	RoutingDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hivemind",
		Name:      "routing_decisions_total",
		Help:      "Routing decisions by action.",
	}, []string{"action"})

	// EvaluatorFallbacks counts evaluations that degraded to the
	// conservative fallback result.
	EvaluatorFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hivemind",
		Name:      "evaluator_fallbacks_total",
		Help:      "Evaluations that fell back to the conservative result.",
	})

	// ApprovalsSwept counts pending approvals marked expired by the sweeper.
	ApprovalsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hivemind",
		Name:      "approvals_swept_total",
		Help:      "Pending approvals marked expired by the background sweeper.",
	})
)
