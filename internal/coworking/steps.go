package coworking

import (
	"context"
	"time"

	"github.com/VVKrauss/Hub-3-sub002/internal/observability"
)

// MigrationID identifies this one-shot migration in the ledger.
const MigrationID = "001_coworking_document"

// Migrator runs the individual migration steps. Every step returns a
// StepResult and an error; nothing is swallowed into logs alone.
type Migrator struct {
	store  *Store
	logger observability.Logger
}

func NewMigrator(store *Store, logger observability.Logger) *Migrator {
	return &Migrator{store: store, logger: logger}
}

// Backup copies the current legacy header and services verbatim into the
// backup blob of the new settings row.
func (m *Migrator) Backup(ctx context.Context) (StepResult, error) {
	res := StepResult{Step: "backup"}

	header, err := m.store.LoadOldHeader(ctx)
	if err != nil {
		return res, err
	}
	services, err := m.store.LoadOldServices(ctx)
	if err != nil {
		return res, err
	}
	if err := m.store.SaveBackup(ctx, Backup{
		Header:    header,
		Services:  services,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return res, err
	}

	m.logger.WithField("services", len(services)).Info("coworking backup stored")
	res.OK = true
	return res, nil
}

// Migrate reads the legacy shape, assembles the nested document and upserts
// it as the live settings row.
func (m *Migrator) Migrate(ctx context.Context) (StepResult, error) {
	res := StepResult{Step: "migrate"}

	header, err := m.store.LoadOldHeader(ctx)
	if err != nil {
		return res, err
	}
	services, err := m.store.LoadOldServices(ctx)
	if err != nil {
		return res, err
	}

	doc := BuildDocument(header, services, time.Now().UTC())
	if err := m.store.SaveDocument(ctx, doc); err != nil {
		return res, err
	}

	m.logger.WithField("services", len(doc.Services)).Info("coworking document migrated")
	res.OK = true
	return res, nil
}

// Validate structurally checks the live document.
func (m *Migrator) Validate(ctx context.Context) (StepResult, error) {
	res := StepResult{Step: "validate"}

	raw, err := m.store.LoadDocumentRaw(ctx)
	if err != nil {
		return res, err
	}
	ok, issues := ValidateRaw(raw)
	res.OK = ok
	res.Issues = issues
	return res, nil
}

// Full runs Backup, Migrate and Validate in order, reporting success only
// when all three succeed. Issues from every executed step are returned.
func (m *Migrator) Full(ctx context.Context) ([]StepResult, error) {
	var results []StepResult
	for _, step := range []func(context.Context) (StepResult, error){
		m.Backup, m.Migrate, m.Validate,
	} {
		res, err := step(ctx)
		results = append(results, res)
		if err != nil {
			return results, err
		}
		if !res.OK {
			return results, nil
		}
	}
	return results, nil
}

// Restore writes the backup back into the legacy tables for disaster
// recovery.
func (m *Migrator) Restore(ctx context.Context) (StepResult, error) {
	res := StepResult{Step: "restore"}

	backup, err := m.store.LoadBackup(ctx)
	if err != nil {
		return res, err
	}
	if err := m.store.RestoreOld(ctx, *backup); err != nil {
		return res, err
	}

	m.logger.WithField("services", len(backup.Services)).Warn("legacy coworking tables restored from backup")
	res.OK = true
	return res, nil
}

// Cleanup deactivates the legacy data after a verified migration. Rows are
// preserved, not deleted.
func (m *Migrator) Cleanup(ctx context.Context) (StepResult, error) {
	res := StepResult{Step: "cleanup"}
	if err := m.store.CleanupOld(ctx); err != nil {
		return res, err
	}
	res.OK = true
	return res, nil
}
