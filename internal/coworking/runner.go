package coworking

import (
	"context"

	"github.com/VVKrauss/Hub-3-sub002/internal/observability"
)

// Runner makes the one-shot migration idempotent: applied migration ids are
// tracked in sh_schema_migrations and re-runs are skipped unless forced.
type Runner struct {
	store    *Store
	migrator *Migrator
	logger   observability.Logger
}

func NewRunner(store *Store, migrator *Migrator, logger observability.Logger) *Runner {
	return &Runner{store: store, migrator: migrator, logger: logger}
}

// Apply runs the full migration once. A previously applied migration returns
// a skipped result with OK set; force re-runs it regardless.
func (r *Runner) Apply(ctx context.Context, force bool) ([]StepResult, error) {
	applied, err := r.store.IsApplied(ctx, MigrationID)
	if err != nil {
		return nil, err
	}
	if applied && !force {
		r.logger.WithField("migration", MigrationID).Info("already applied, skipping")
		return []StepResult{{Step: "skip", OK: true, Issues: []string{MigrationID + " already applied"}}}, nil
	}

	results, err := r.migrator.Full(ctx)
	if err != nil {
		return results, err
	}
	for _, res := range results {
		if !res.OK {
			return results, nil
		}
	}

	if err := r.store.MarkApplied(ctx, MigrationID); err != nil {
		return results, err
	}
	r.logger.WithField("migration", MigrationID).Info("migration applied")
	return results, nil
}
