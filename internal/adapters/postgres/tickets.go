package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/VVKrauss/Hub-3-sub002/internal/domain"
)

func insertTicket(ctx context.Context, tx pgx.Tx, t domain.Ticket) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO sh_registration_tickets (
			id, registration_id, name, quantity, unit_price, total_price,
			currency, status, qr_codes, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, t.ID, t.RegistrationID, t.Name, t.Quantity, t.UnitPrice, t.TotalPrice,
		t.Currency, t.Status, t.QRCodes, t.CreatedAt)
	return err
}

func cascadeTicketStatus(ctx context.Context, tx pgx.Tx, registrationIDs []uuid.UUID, status domain.TicketStatus) error {
	_, err := tx.Exec(ctx, `
		UPDATE sh_registration_tickets SET status = $2
		WHERE registration_id = ANY($1)
	`, registrationIDs, status)
	return err
}

func (r *Repository) ticketsFor(ctx context.Context, q Querier, registrationIDs []uuid.UUID) (map[uuid.UUID][]domain.Ticket, error) {
	rows, err := q.Query(ctx, `
		SELECT id, registration_id, name, quantity, unit_price, total_price,
		       currency, status, qr_codes, created_at
		FROM sh_registration_tickets
		WHERE registration_id = ANY($1)
		ORDER BY created_at ASC
	`, registrationIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byReg := make(map[uuid.UUID][]domain.Ticket)
	for rows.Next() {
		var t domain.Ticket
		err := rows.Scan(&t.ID, &t.RegistrationID, &t.Name, &t.Quantity, &t.UnitPrice,
			&t.TotalPrice, &t.Currency, &t.Status, &t.QRCodes, &t.CreatedAt)
		if err != nil {
			return nil, err
		}
		byReg[t.RegistrationID] = append(byReg[t.RegistrationID], t)
	}
	return byReg, rows.Err()
}

// AddTicket inserts a ticket and bumps the parent registration's cached
// total_amount by a server-side expression in the same transaction, keeping
// the denormalized total in step with the ticket rows.
func (r *Repository) AddTicket(ctx context.Context, tx pgx.Tx, t domain.Ticket) error {
	if err := insertTicket(ctx, tx, t); err != nil {
		return err
	}
	result, err := tx.Exec(ctx, `
		UPDATE sh_registrations
		SET total_amount = total_amount + $2, updated_at = now()
		WHERE id = $1
	`, t.RegistrationID, t.TotalPrice)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return errors.Wrap(domain.ErrNotFound, "parent registration")
	}
	return nil
}

// RemoveTicket deletes a ticket and decrements the parent total by the
// removed ticket's total_price, both inside tx.
func (r *Repository) RemoveTicket(ctx context.Context, tx pgx.Tx, ticketID uuid.UUID) error {
	var registrationID uuid.UUID
	var totalPrice float64
	err := tx.QueryRow(ctx, `
		DELETE FROM sh_registration_tickets WHERE id = $1
		RETURNING registration_id, total_price
	`, ticketID).Scan(&registrationID, &totalPrice)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE sh_registrations
		SET total_amount = total_amount - $2, updated_at = now()
		WHERE id = $1
	`, registrationID, totalPrice)
	return err
}

// SetTicketQRCodes replaces the ticket's per-seat token list wholesale.
func (r *Repository) SetTicketQRCodes(ctx context.Context, ticketID uuid.UUID, codes []string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE sh_registration_tickets SET qr_codes = $2 WHERE id = $1
	`, ticketID, codes)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
