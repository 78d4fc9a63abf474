package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"nexthint/internal/domain"
)

var ErrNotFound = errors.New("trigger not found")

// EnsureSchema creates tables if they don't exist.
func EnsureSchema(db *sql.DB) error {
	schema := `
PRAGMA journal_mode=WAL;
CREATE TABLE IF NOT EXISTS triggers (
  id TEXT PRIMARY KEY,
  workflow_id TEXT NOT NULL,
  name TEXT NOT NULL,
  rule BLOB NOT NULL,
  enabled INTEGER NOT NULL DEFAULT 1,
  next_trigger DATETIME,
  last_computed_at DATETIME,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_triggers_due ON triggers(enabled, next_trigger);
CREATE INDEX IF NOT EXISTS idx_triggers_workflow ON triggers(workflow_id);
`
	_, err := db.Exec(schema)
	return err
}

type Repository interface {
	Create(ctx context.Context, t domain.Trigger) (string, error)
	Get(ctx context.Context, id string) (domain.Trigger, error)
	List(ctx context.Context) ([]domain.Trigger, error)
	Update(ctx context.Context, t domain.Trigger) error
	Delete(ctx context.Context, id string) error

	// ListDue returns enabled triggers whose authoritative next-trigger is
	// missing or already passed, i.e. the rows the refresher must recompute.
	ListDue(ctx context.Context, now time.Time) ([]domain.Trigger, error)
	UpdateNextTrigger(ctx context.Context, id string, computedAt time.Time, next *time.Time) error
}

type sqliteRepo struct{ db *sql.DB }

func NewSQLiteRepo(db *sql.DB) Repository { return &sqliteRepo{db: db} }

const triggerCols = `id,workflow_id,name,rule,enabled,next_trigger,last_computed_at,created_at,updated_at`

func (r *sqliteRepo) Create(ctx context.Context, t domain.Trigger) (string, error) {
	id := t.ID
	if id == "" {
		id = "trg_" + uuid.NewString()
	}
	rule, err := json.Marshal(t.Rule)
	if err != nil {
		return "", err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO triggers (id,workflow_id,name,rule,enabled,next_trigger,last_computed_at,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,CURRENT_TIMESTAMP,CURRENT_TIMESTAMP)
`, id, t.WorkflowID, t.Name, rule, t.Enabled, t.NextTrigger, t.LastComputedAt)
	return id, err
}

func (r *sqliteRepo) Get(ctx context.Context, id string) (domain.Trigger, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+triggerCols+` FROM triggers WHERE id=?`, id)
	t, err := scanTrigger(row)
	if err == sql.ErrNoRows {
		return domain.Trigger{}, ErrNotFound
	}
	return t, err
}

func (r *sqliteRepo) List(ctx context.Context) ([]domain.Trigger, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+triggerCols+` FROM triggers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTriggers(rows)
}

func (r *sqliteRepo) Update(ctx context.Context, t domain.Trigger) error {
	rule, err := json.Marshal(t.Rule)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE triggers SET workflow_id=?,name=?,rule=?,enabled=?,next_trigger=?,last_computed_at=?,updated_at=CURRENT_TIMESTAMP
WHERE id=?`, t.WorkflowID, t.Name, rule, t.Enabled, t.NextTrigger, t.LastComputedAt, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM triggers WHERE id=?", id)
	return err
}

func (r *sqliteRepo) ListDue(ctx context.Context, now time.Time) ([]domain.Trigger, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+triggerCols+` FROM triggers
WHERE enabled=1 AND (next_trigger IS NULL OR next_trigger <= ?)
ORDER BY next_trigger`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTriggers(rows)
}

func (r *sqliteRepo) UpdateNextTrigger(ctx context.Context, id string, computedAt time.Time, next *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE triggers SET next_trigger=?,last_computed_at=?,updated_at=CURRENT_TIMESTAMP WHERE id=?`,
		next, computedAt, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrigger(row rowScanner) (domain.Trigger, error) {
	var t domain.Trigger
	var rule []byte
	var next, computed sql.NullTime
	if err := row.Scan(&t.ID, &t.WorkflowID, &t.Name, &rule, &t.Enabled, &next, &computed, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return domain.Trigger{}, err
	}
	if err := json.Unmarshal(rule, &t.Rule); err != nil {
		return domain.Trigger{}, err
	}
	if next.Valid {
		v := next.Time
		t.NextTrigger = &v
	}
	if computed.Valid {
		v := computed.Time
		t.LastComputedAt = &v
	}
	return t, nil
}

func collectTriggers(rows *sql.Rows) ([]domain.Trigger, error) {
	var triggers []domain.Trigger
	for rows.Next() {
		t, err := scanTrigger(rows)
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, t)
	}
	return triggers, rows.Err()
}
