package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"nexthint/internal/domain"
)

func newTestRepo(t *testing.T) Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, EnsureSchema(db))
	return NewSQLiteRepo(db)
}

func testTrigger() domain.Trigger {
	return domain.Trigger{
		WorkflowID: "wf_1",
		Name:       "nightly export",
		Enabled:    true,
		Rule: domain.ScheduleRule{
			Type:         domain.RuleDays,
			DaysInterval: 1,
			Hour:         2,
			Minute:       30,
			Timezone:     -5,
		},
	}
}

func TestTriggerRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, testTrigger())
	require.NoError(t, err)
	assert.Contains(t, id, "trg_")

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "nightly export", got.Name)
	assert.Equal(t, domain.RuleDays, got.Rule.Type)
	assert.Equal(t, 1, got.Rule.DaysInterval)
	assert.Equal(t, -5.0, got.Rule.Timezone)
	assert.Nil(t, got.NextTrigger)

	got.Name = "nightly export v2"
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "nightly export v2", got.Name)

	require.NoError(t, repo.Delete(ctx, id))
	_, err = repo.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateMissingTrigger(t *testing.T) {
	repo := newTestRepo(t)
	tr := testTrigger()
	tr.ID = "trg_missing"
	assert.ErrorIs(t, repo.Update(context.Background(), tr), ErrNotFound)
}

func TestListDue(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// Fresh trigger has no authoritative next-trigger yet, so it is due.
	id, err := repo.Create(ctx, testTrigger())
	require.NoError(t, err)

	due, err := repo.ListDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, id, due[0].ID)

	// With a future next-trigger it drops out of the due set.
	next := now.Add(time.Hour)
	require.NoError(t, repo.UpdateNextTrigger(ctx, id, now, &next))
	due, err = repo.ListDue(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, due)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.NextTrigger)
	assert.WithinDuration(t, next, *got.NextTrigger, time.Second)

	// Once that instant passes it is due again.
	due, err = repo.ListDue(ctx, next.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, due, 1)

	// Disabled triggers are never due.
	got.Enabled = false
	require.NoError(t, repo.Update(ctx, got))
	due, err = repo.ListDue(ctx, next.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, due)
}
