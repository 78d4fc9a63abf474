package refresher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexthint/internal/domain"
	"nexthint/internal/notify"
	"nexthint/internal/recurrence"
)

type memRepo struct {
	mu       sync.Mutex
	triggers map[string]domain.Trigger
}

func newMemRepo() *memRepo {
	return &memRepo{triggers: make(map[string]domain.Trigger)}
}

func (m *memRepo) Create(ctx context.Context, t domain.Trigger) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggers[t.ID] = t
	return t.ID, nil
}

func (m *memRepo) Get(ctx context.Context, id string) (domain.Trigger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.triggers[id], nil
}

func (m *memRepo) List(ctx context.Context) ([]domain.Trigger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Trigger
	for _, t := range m.triggers {
		out = append(out, t)
	}
	return out, nil
}

func (m *memRepo) Update(ctx context.Context, t domain.Trigger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggers[t.ID] = t
	return nil
}

func (m *memRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.triggers, id)
	return nil
}

func (m *memRepo) ListDue(ctx context.Context, now time.Time) ([]domain.Trigger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Trigger
	for _, t := range m.triggers {
		if t.Enabled && (t.NextTrigger == nil || !t.NextTrigger.After(now)) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memRepo) UpdateNextTrigger(ctx context.Context, id string, computedAt time.Time, next *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.triggers[id]
	t.NextTrigger = next
	t.LastComputedAt = &computedAt
	m.triggers[id] = t
	return nil
}

func TestProcessDueStoresNextTrigger(t *testing.T) {
	repo := newMemRepo()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	_, err := repo.Create(context.Background(), domain.Trigger{
		ID:      "trg_a",
		Enabled: true,
		Rule:    domain.ScheduleRule{Type: domain.RuleMinutes, MinutesInterval: 5},
	})
	require.NoError(t, err)

	svc := NewService(repo, recurrence.NewResolver(nil), notify.NewWebhook("", 0), 4, time.Minute)
	svc.processDue(context.Background(), now)

	got, err := repo.Get(context.Background(), "trg_a")
	require.NoError(t, err)
	require.NotNil(t, got.NextTrigger)
	assert.True(t, got.NextTrigger.Equal(now.Add(5*time.Minute)))
	require.NotNil(t, got.LastComputedAt)
	assert.True(t, got.LastComputedAt.Equal(now))
}

func TestProcessDueClearsUnresolvableRule(t *testing.T) {
	repo := newMemRepo()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	stale := now.Add(-time.Hour)

	_, err := repo.Create(context.Background(), domain.Trigger{
		ID:          "trg_b",
		Enabled:     true,
		NextTrigger: &stale,
		Rule:        domain.ScheduleRule{Type: domain.RuleWeeks, WeeksInterval: 1},
	})
	require.NoError(t, err)

	svc := NewService(repo, recurrence.NewResolver(nil), notify.NewWebhook("", 0), 1, time.Minute)
	svc.processDue(context.Background(), now)

	got, err := repo.Get(context.Background(), "trg_b")
	require.NoError(t, err)
	assert.Nil(t, got.NextTrigger)
}

func TestProcessDueSkipsFutureTriggers(t *testing.T) {
	repo := newMemRepo()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)

	_, err := repo.Create(context.Background(), domain.Trigger{
		ID:          "trg_c",
		Enabled:     true,
		NextTrigger: &future,
		Rule:        domain.ScheduleRule{Type: domain.RuleMinutes, MinutesInterval: 5},
	})
	require.NoError(t, err)

	svc := NewService(repo, recurrence.NewResolver(nil), notify.NewWebhook("", 0), 1, time.Minute)
	svc.processDue(context.Background(), now)

	got, err := repo.Get(context.Background(), "trg_c")
	require.NoError(t, err)
	require.NotNil(t, got.NextTrigger)
	assert.True(t, got.NextTrigger.Equal(future), "future trigger must not be recomputed")
	assert.Nil(t, got.LastComputedAt)
}
