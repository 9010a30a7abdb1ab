package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadline-ai/bot-platform/internal/model"
	"github.com/leadline-ai/bot-platform/internal/store"
	"github.com/leadline-ai/bot-platform/pkg/logger"
)

type fakeTenants struct {
	tenant *model.Tenant
	err    error
}

func (f *fakeTenants) GetByID(ctx context.Context, id string) (*model.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tenant, nil
}

type fakeEvents struct {
	count     int
	err       error
	lastSince time.Time
}

func (f *fakeEvents) Record(ctx context.Context, ev *model.UsageEvent) error { return nil }

func (f *fakeEvents) CountSince(ctx context.Context, tenantID string, typ model.UsageEventType, since time.Time) (int, error) {
	f.lastSince = since
	if f.err != nil {
		return 0, f.err
	}
	return f.count, nil
}

func newTestGate(t *testing.T, tenants store.TenantRepository, events store.UsageEventRepository) *Gate {
	t.Helper()
	log, err := logger.New("error")
	require.NoError(t, err)
	return NewGate(events, tenants, log)
}

func TestCheckAndAdmitBoundary(t *testing.T) {
	tenants := &fakeTenants{tenant: &model.Tenant{ID: "t1", Plan: model.PlanFree}}

	t.Run("one below limit allows", func(t *testing.T) {
		g := newTestGate(t, tenants, &fakeEvents{count: 99})
		d, err := g.CheckAndAdmit(context.Background(), "t1", model.UsageEventMessage)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 99, d.Current)
		assert.Equal(t, 100, d.Limit)
	})

	t.Run("at limit denies", func(t *testing.T) {
		g := newTestGate(t, tenants, &fakeEvents{count: 100})
		d, err := g.CheckAndAdmit(context.Background(), "t1", model.UsageEventMessage)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
	})
}

func TestCheckAndAdmitEnterpriseUnlimited(t *testing.T) {
	tenants := &fakeTenants{tenant: &model.Tenant{ID: "t1", Plan: model.PlanEnterprise}}
	events := &fakeEvents{count: 1_000_000}

	g := newTestGate(t, tenants, events)
	d, err := g.CheckAndAdmit(context.Background(), "t1", model.UsageEventMessage)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, Unlimited, d.Limit)
}

func TestCheckAndAdmitUnknownPlanGetsFreeLimit(t *testing.T) {
	tenants := &fakeTenants{tenant: &model.Tenant{ID: "t1", Plan: "legacy-gold"}}
	g := newTestGate(t, tenants, &fakeEvents{count: 100})

	d, err := g.CheckAndAdmit(context.Background(), "t1", model.UsageEventMessage)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 100, d.Limit)
}

func TestCheckAndAdmitFailsOpen(t *testing.T) {
	t.Run("tenant lookup failure", func(t *testing.T) {
		g := newTestGate(t, &fakeTenants{err: errors.New("store down")}, &fakeEvents{})
		d, err := g.CheckAndAdmit(context.Background(), "t1", model.UsageEventMessage)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})

	t.Run("count failure", func(t *testing.T) {
		tenants := &fakeTenants{tenant: &model.Tenant{ID: "t1", Plan: model.PlanStarter}}
		g := newTestGate(t, tenants, &fakeEvents{err: errors.New("store down")})
		d, err := g.CheckAndAdmit(context.Background(), "t1", model.UsageEventMessage)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})
}

func TestUsageWindowIsCalendarMonthUTC(t *testing.T) {
	tenants := &fakeTenants{tenant: &model.Tenant{ID: "t1", Plan: model.PlanFree}}
	events := &fakeEvents{count: 5}
	g := newTestGate(t, tenants, events)
	g.now = func() time.Time {
		return time.Date(2026, 8, 28, 23, 30, 0, 0, time.FixedZone("JST", 9*3600))
	}

	_, err := g.Usage(context.Background(), "t1", model.UsageEventMessage)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), events.lastSince)
}
