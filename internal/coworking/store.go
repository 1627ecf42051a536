package coworking

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VVKrauss/Hub-3-sub002/internal/domain"
)

// Store gives the migration steps access to the legacy tables
// (site_settings, coworking_info_table) and the new sh_site_settings row.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// LoadOldHeader returns nil when the legacy header was never set or has been
// cleaned up.
func (s *Store) LoadOldHeader(ctx context.Context) (*OldHeader, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		"SELECT coworking_header FROM site_settings WHERE key = $1", SettingsKey).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var header OldHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, errors.Wrap(err, "legacy header")
	}
	return &header, nil
}

func (s *Store) LoadOldServices(ctx context.Context) ([]OldService, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT COALESCE(id::text, ''), name, description, price, currency, period, active, sort_order, image_url
		FROM coworking_info_table ORDER BY sort_order ASC, name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []OldService
	for rows.Next() {
		var svc OldService
		err := rows.Scan(&svc.ID, &svc.Name, &svc.Description, &svc.Price,
			&svc.Currency, &svc.Period, &svc.Active, &svc.Order, &svc.ImageURL)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

func (s *Store) SaveBackup(ctx context.Context, b Backup) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO sh_site_settings (key, coworking_backup, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET coworking_backup = $2, updated_at = now()
	`, SettingsKey, data)
	return err
}

func (s *Store) LoadBackup(ctx context.Context) (*Backup, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		"SELECT coworking_backup FROM sh_site_settings WHERE key = $1", SettingsKey).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && len(raw) == 0) {
		return nil, errors.Wrap(domain.ErrNotFound, "coworking backup")
	}
	if err != nil {
		return nil, err
	}
	var b Backup
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// SaveDocument upserts the live new-shape document.
func (s *Store) SaveDocument(ctx context.Context, doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO sh_site_settings (key, coworking, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET coworking = $2, updated_at = now()
	`, SettingsKey, data)
	return err
}

func (s *Store) LoadDocumentRaw(ctx context.Context) ([]byte, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		"SELECT coworking FROM sh_site_settings WHERE key = $1", SettingsKey).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && len(raw) == 0) {
		return nil, errors.Wrap(domain.ErrNotFound, "live coworking document")
	}
	return raw, err
}

// RestoreOld writes the backup back into the legacy tables: services are
// cleared then bulk-inserted, the header is upserted.
func (s *Store) RestoreOld(ctx context.Context, b Backup) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM coworking_info_table"); err != nil {
		return err
	}
	for _, svc := range b.Services {
		_, err := tx.Exec(ctx, `
			INSERT INTO coworking_info_table (id, name, description, price, currency, period, active, sort_order, image_url)
			VALUES (NULLIF($1, '')::uuid, $2, $3, $4, $5, $6, $7, $8, $9)
		`, svc.ID, svc.Name, svc.Description, svc.Price, svc.Currency, svc.Period, svc.Active, svc.Order, svc.ImageURL)
		if err != nil {
			return err
		}
	}

	var headerData []byte
	if b.Header != nil {
		headerData, err = json.Marshal(b.Header)
		if err != nil {
			return err
		}
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO site_settings (key, coworking_header)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET coworking_header = $2
	`, SettingsKey, headerData)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// CleanupOld nulls the legacy header and deactivates the legacy service rows
// without deleting them.
func (s *Store) CleanupOld(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		"UPDATE site_settings SET coworking_header = NULL WHERE key = $1", SettingsKey); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "UPDATE coworking_info_table SET active = false"); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Migration ledger.

func (s *Store) IsApplied(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM sh_schema_migrations WHERE id = $1)", id).Scan(&exists)
	return exists, err
}

func (s *Store) MarkApplied(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sh_schema_migrations (id, applied_at) VALUES ($1, now())
		ON CONFLICT (id) DO NOTHING
	`, id)
	return err
}
