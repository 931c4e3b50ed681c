// Package executor applies migration plans to the target database.
package executor

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sqlshift/sqlshift/internal/debug"
	"github.com/sqlshift/sqlshift/migrate/history"
	"github.com/sqlshift/sqlshift/migrate/planner"
)

// Executor applies migration plans transactionally and records them in the
// history table.
type Executor struct {
	db       *sql.DB
	provider string
	history  *history.Manager
}

// New creates an executor for the target database.
func New(db *sql.DB, provider string) *Executor {
	return &Executor{
		db:       db,
		provider: provider,
		history:  history.NewManager(db, provider),
	}
}

// History exposes the underlying history manager.
func (e *Executor) History() *history.Manager {
	return e.history
}

// Execute applies a plan inside a single transaction. Each object gets its
// own history row keyed by its source checksum: objects already applied with
// an unchanged source are skipped, changed ones are re-applied and their row
// replaced. The history rows commit with the plan, so a failed step leaves no
// trace.
func (e *Executor) Execute(ctx context.Context, plan *planner.Plan) error {
	if err := e.history.InitTable(ctx); err != nil {
		return fmt.Errorf("ensure history table: %w", err)
	}

	var pending []planner.Step
	for _, step := range plan.Steps {
		previous, err := e.history.GetChecksum(ctx, step.Name)
		if err != nil {
			return err
		}
		if previous != "" && previous == step.Checksum {
			debug.Debug("object unchanged, skipping", "name", step.Name)
			continue
		}
		pending = append(pending, step)
	}
	if len(pending) == 0 {
		debug.Debug("migration already applied", "name", plan.Name)
		return nil
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	for i, step := range pending {
		debug.Debug("executing step", "plan", plan.Name, "step", step.Name)
		startTime := time.Now()
		if _, err := tx.ExecContext(ctx, step.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("step %d (%s): %w", i+1, step.Name, err)
		}
		record := &history.Record{
			Name:          step.Name,
			AppliedAt:     time.Now(),
			Checksum:      step.Checksum,
			ExecutionTime: time.Since(startTime).Milliseconds(),
		}
		if err := e.history.RecordTx(ctx, tx, record); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", step.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}

	debug.Debug("applied migration", "name", plan.Name,
		"applied", len(pending), "skipped", len(plan.Steps)-len(pending))
	return nil
}

// Applied returns the names of migrations already applied to the target.
func (e *Executor) Applied(ctx context.Context) ([]string, error) {
	return e.history.GetAppliedNames(ctx)
}

// Pending filters available plan names down to those not yet applied.
func (e *Executor) Pending(ctx context.Context, available []string) ([]string, error) {
	if err := e.history.InitTable(ctx); err != nil {
		return nil, fmt.Errorf("ensure history table: %w", err)
	}
	return e.history.GetPending(ctx, available)
}

// MarkRolledBack flags a migration as rolled back without undoing its DDL.
// Dropping the created objects is up to the caller.
func (e *Executor) MarkRolledBack(ctx context.Context, name string) error {
	return e.history.MarkRolledBack(ctx, name)
}
