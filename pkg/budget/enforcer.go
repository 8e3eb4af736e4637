package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kakapo-ai/kakapo/pkg/config"
	"github.com/kakapo-ai/kakapo/pkg/models"
)

// ErrBudgetExceeded is returned when the token cap for the current period is spent.
var ErrBudgetExceeded = errors.New("budget exceeded")

// UsageSource reports tokens spent since a point in time.
type UsageSource interface {
	TotalTokensSince(ctx context.Context, since time.Time) (int64, error)
}

// Enforcer checks model token usage against a single per-period cap.
type Enforcer struct {
	cfg   config.BudgetConfig
	usage UsageSource
	now   func() time.Time
}

// New creates an Enforcer. A nil Enforcer or a disabled config never refuses.
func New(cfg config.BudgetConfig, usage UsageSource) *Enforcer {
	return &Enforcer{cfg: cfg, usage: usage, now: time.Now}
}

// Enabled reports whether the cap is enforced.
func (e *Enforcer) Enabled() bool {
	return e != nil && e.cfg.Enabled && e.usage != nil
}

// Check returns ErrBudgetExceeded once usage reaches the cap.
func (e *Enforcer) Check(ctx context.Context) error {
	if !e.Enabled() {
		return nil
	}
	used, err := e.usage.TotalTokensSince(ctx, periodStart(e.cfg.Period, e.now()))
	if err != nil {
		return fmt.Errorf("budget check: %w", err)
	}
	if used >= e.cfg.MaxTokens {
		return ErrBudgetExceeded
	}
	return nil
}

// Status returns usage for the current period.
func (e *Enforcer) Status(ctx context.Context) (models.BudgetStatus, error) {
	if e == nil {
		return models.BudgetStatus{}, nil
	}
	st := models.BudgetStatus{Period: e.cfg.Period, MaxTokens: e.cfg.MaxTokens}
	if !e.Enabled() {
		return st, nil
	}
	used, err := e.usage.TotalTokensSince(ctx, periodStart(e.cfg.Period, e.now()))
	if err != nil {
		return st, fmt.Errorf("budget status: %w", err)
	}
	st.Used = used
	st.Remaining = max(e.cfg.MaxTokens-used, 0)
	return st, nil
}

func periodStart(period models.BudgetPeriod, now time.Time) time.Time {
	now = now.UTC()
	switch period {
	case models.BudgetMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default: // daily
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
}
