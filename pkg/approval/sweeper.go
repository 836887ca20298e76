package approval

import (
	"time"

	"hivemind-backend/pkg/metrics"
	"hivemind-backend/pkg/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweep marks stale pending approvals as expired. Purely hygienic:
// correctness does not depend on it because expiry is also checked on
// every read.
func (s *Service) Sweep() {
	users, err := s.store.GetAllUsers()
	if err != nil {
		s.logger.Warn("sweep: failed to list users", zap.Error(err))
		return
	}

	now := time.Now()
	swept := 0
	for _, u := range users {
		approvals, err := s.store.GetPendingApprovals(u.ID)
		if err != nil {
			s.logger.Warn("sweep: failed to list approvals",
				zap.String("user_id", u.ID), zap.Error(err))
			continue
		}
		for _, a := range approvals {
			if a.Status == models.ApprovalPending && a.ExpiredAt(now) {
				if err := s.store.UpdateApprovalStatus(a.ID, models.ApprovalExpired); err != nil {
					s.logger.Warn("sweep: failed to expire approval",
						zap.String("approval_id", a.ID), zap.Error(err))
					continue
				}
				swept++
			}
		}
	}
	if swept > 0 {
		metrics.ApprovalsSwept.Add(float64(swept))
		s.logger.Info("expired approvals swept", zap.Int("count", swept))
	}
}

// StartSweeper 启动每小时一次的后台清扫；返回的 cron 由调用方 Stop
func (s *Service) StartSweeper() *cron.Cron {
	c := cron.New()
	if _, err := c.AddFunc("@hourly", s.Sweep); err != nil {
		s.logger.Error("failed to schedule approval sweeper", zap.Error(err))
		return c
	}
	c.Start()
	s.logger.Info("approval sweeper started")
	return c
}
