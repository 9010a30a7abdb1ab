// Package usage enforces plan-based quotas over the append-only usage
// ledger, counted in a rolling calendar-month window (UTC).
package usage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/leadline-ai/bot-platform/internal/model"
	"github.com/leadline-ai/bot-platform/internal/store"
	"github.com/leadline-ai/bot-platform/pkg/logger"
	"github.com/leadline-ai/bot-platform/pkg/metrics"
)

// Unlimited is the sentinel limit for the enterprise plan.
const Unlimited = -1

// planLimits maps plan tiers to monthly message ceilings.
var planLimits = map[model.PlanTier]int{
	model.PlanFree:         100,
	model.PlanStarter:      2000,
	model.PlanProfessional: 10000,
	model.PlanExecutive:    50000,
	model.PlanEnterprise:   Unlimited,
}

// Decision is the gate's verdict plus the numbers behind it.
type Decision struct {
	Allowed bool `json:"allowed"`
	Current int  `json:"current"`
	Limit   int  `json:"limit"`
}

// Gate checks tenant usage against plan limits. The check is advisory:
// usage events are recorded by the caller only after the action succeeds,
// so failed turns are never billed.
type Gate struct {
	events  store.UsageEventRepository
	tenants store.TenantRepository
	logger  *logger.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewGate creates a usage gate.
func NewGate(events store.UsageEventRepository, tenants store.TenantRepository, log *logger.Logger) *Gate {
	return &Gate{
		events:  events,
		tenants: tenants,
		logger:  log,
		now:     time.Now,
	}
}

// LimitFor returns the monthly ceiling for a plan. Unknown plans get the
// free ceiling.
func LimitFor(plan model.PlanTier) int {
	if limit, ok := planLimits[plan]; ok {
		return limit
	}
	return planLimits[model.PlanFree]
}

// CheckAndAdmit decides whether the tenant may consume one more unit of
// the resource class this month. If the lookup itself fails the gate
// fails open with a logged warning: availability of the conversational
// path is preferred over strict quota precision.
func (g *Gate) CheckAndAdmit(ctx context.Context, tenantID string, class model.UsageEventType) (Decision, error) {
	d, err := g.Usage(ctx, tenantID, class)
	if err != nil {
		g.logger.Warn("usage lookup failed, admitting turn",
			zap.String("tenant_id", tenantID),
			zap.String("resource_class", string(class)),
			zap.Error(err),
		)
		return Decision{Allowed: true, Limit: Unlimited}, nil
	}

	if !d.Allowed {
		metrics.QuotaDenialsTotal.WithLabelValues(tenantID).Inc()
	}
	return d, nil
}

// Usage computes the tenant's current month consumption against its plan
// limit without admitting anything.
func (g *Gate) Usage(ctx context.Context, tenantID string, class model.UsageEventType) (Decision, error) {
	tenant, err := g.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return Decision{}, fmt.Errorf("tenant lookup failed: %w", err)
	}

	limit := LimitFor(tenant.Plan)
	if limit == Unlimited {
		return Decision{Allowed: true, Limit: Unlimited}, nil
	}

	current, err := g.events.CountSince(ctx, tenantID, class, monthStart(g.now()))
	if err != nil {
		return Decision{}, fmt.Errorf("usage count failed: %w", err)
	}

	return Decision{
		Allowed: current < limit,
		Current: current,
		Limit:   limit,
	}, nil
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
