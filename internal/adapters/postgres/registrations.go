package postgres

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/VVKrauss/Hub-3-sub002/internal/domain"
)

const registrationColumns = `
	r.id, r.event_id, r.user_id, r.external_id, r.qr_code,
	r.full_name, r.email, r.phone, r.adult_tickets, r.child_tickets,
	r.total_amount, r.currency, r.notes, r.special_requirements,
	r.registration_status, r.payment_status, r.registration_type,
	r.created_at, r.updated_at, r.confirmed_at, r.attended_at,
	COALESCE(e.title, ''), e.start_at, COALESCE(u.name, ''), COALESCE(u.email, '')`

const registrationJoins = `
	FROM sh_registrations r
	LEFT JOIN sh_events e ON e.id = r.event_id
	LEFT JOIN sh_users u ON u.id = r.user_id`

func scanRegistration(row pgx.Row) (*domain.Registration, error) {
	var reg domain.Registration
	err := row.Scan(
		&reg.ID, &reg.EventID, &reg.UserID, &reg.ExternalID, &reg.QRCode,
		&reg.FullName, &reg.Email, &reg.Phone, &reg.AdultTickets, &reg.ChildTickets,
		&reg.TotalAmount, &reg.Currency, &reg.Notes, &reg.SpecialRequirements,
		&reg.RegistrationStatus, &reg.PaymentStatus, &reg.RegistrationType,
		&reg.CreatedAt, &reg.UpdatedAt, &reg.ConfirmedAt, &reg.AttendedAt,
		&reg.EventTitle, &reg.EventDate, &reg.UserName, &reg.UserEmail,
	)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *Repository) getBy(ctx context.Context, q Querier, where string, arg any) (*domain.Registration, error) {
	reg, err := scanRegistration(q.QueryRow(ctx,
		"SELECT"+registrationColumns+registrationJoins+" WHERE "+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	tickets, err := r.ticketsFor(ctx, q, []uuid.UUID{reg.ID})
	if err != nil {
		return nil, err
	}
	reg.Tickets = tickets[reg.ID]
	return reg, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Registration, error) {
	return r.getBy(ctx, r.pool, "r.id = $1", id)
}

// GetByQRCode is the check-in lookup. Possession of the token is the only
// check performed.
func (r *Repository) GetByQRCode(ctx context.Context, code string) (*domain.Registration, error) {
	return r.getBy(ctx, r.pool, "r.qr_code = $1", code)
}

// Create inserts the registration and its tickets inside the given
// transaction, so a ticket failure rolls the registration back with it.
func (r *Repository) Create(ctx context.Context, tx pgx.Tx, reg domain.Registration, tickets []domain.Ticket) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO sh_registrations (
			id, event_id, user_id, external_id, qr_code,
			full_name, email, phone, adult_tickets, child_tickets,
			total_amount, currency, notes, special_requirements,
			registration_status, payment_status, registration_type,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`, reg.ID, reg.EventID, reg.UserID, reg.ExternalID, reg.QRCode,
		reg.FullName, reg.Email, reg.Phone, reg.AdultTickets, reg.ChildTickets,
		reg.TotalAmount, reg.Currency, reg.Notes, reg.SpecialRequirements,
		reg.RegistrationStatus, reg.PaymentStatus, reg.RegistrationType,
		reg.CreatedAt, reg.UpdatedAt)
	if err != nil {
		return err
	}
	for _, t := range tickets {
		if err := insertTicket(ctx, tx, t); err != nil {
			return err
		}
	}
	return nil
}

// Update applies a partial field update. The id, created_at and qr_code are
// immutable; updated_at is always stamped.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, patch RegistrationPatch) error {
	set, args := patch.setClauses()
	args = append([]any{id}, args...)
	result, err := r.pool.Exec(ctx,
		"UPDATE sh_registrations SET "+set+" WHERE id = $1", args...)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// appendNote folds a reason into the notes column without clobbering what is
// already there.
const appendNote = `notes = CASE WHEN notes = '' THEN $2 ELSE notes || E'\n' || $2 END`

// Cancel flips the registration and every ticket it owns to cancelled inside
// one transaction.
func (r *Repository) Cancel(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string) error {
	if reason == "" {
		reason = "Cancelled by administrator"
	}
	result, err := tx.Exec(ctx, `
		UPDATE sh_registrations
		SET registration_status = 'cancelled', `+appendNote+`, updated_at = now()
		WHERE id = $1
	`, id, reason)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return cascadeTicketStatus(ctx, tx, []uuid.UUID{id}, domain.TicketCancelled)
}

// Restore brings a cancelled registration and its tickets back to active.
// Capacity must be re-reserved by the caller before this runs, in the same
// transaction, so restores cannot oversell the event.
func (r *Repository) Restore(ctx context.Context, tx pgx.Tx, id uuid.UUID, note string) error {
	if note == "" {
		note = "Restored by administrator"
	}
	result, err := tx.Exec(ctx, `
		UPDATE sh_registrations
		SET registration_status = 'active', `+appendNote+`, updated_at = now()
		WHERE id = $1
	`, id, note)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return cascadeTicketStatus(ctx, tx, []uuid.UUID{id}, domain.TicketActive)
}

// ConfirmPayment touches payment state only; registration_status is left as
// is.
func (r *Repository) ConfirmPayment(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE sh_registrations
		SET payment_status = 'confirmed', confirmed_at = now(), updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkAttendance stamps attended_at. Re-marking overwrites the timestamp; any
// registration can be checked in regardless of status.
func (r *Repository) MarkAttendance(ctx context.Context, id uuid.UUID, note string) error {
	var result pgconn.CommandTag
	var err error
	if note != "" {
		result, err = r.pool.Exec(ctx, `
			UPDATE sh_registrations
			SET attended_at = now(), `+appendNote+`, updated_at = now()
			WHERE id = $1
		`, id, note)
	} else {
		result, err = r.pool.Exec(ctx, `
			UPDATE sh_registrations
			SET attended_at = now(), updated_at = now()
			WHERE id = $1
		`, id)
	}
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// BulkUpdateStatus applies one status to all ids in a single batched write
// and cascades it to the owned tickets, mirroring single-record Cancel and
// Restore. Returns the number of registrations affected.
func (r *Repository) BulkUpdateStatus(ctx context.Context, tx pgx.Tx, ids []uuid.UUID, status domain.RegistrationStatus, note string) (int64, error) {
	if !domain.ValidRegistrationStatus(status) {
		return 0, errors.Wrapf(domain.ErrInvalidInput, "registration status %q", status)
	}
	var result pgconn.CommandTag
	var err error
	if note != "" {
		result, err = tx.Exec(ctx, `
			UPDATE sh_registrations
			SET registration_status = $2, `+bulkAppendNote+`, updated_at = now()
			WHERE id = ANY($1)
		`, ids, status, note)
	} else {
		result, err = tx.Exec(ctx, `
			UPDATE sh_registrations
			SET registration_status = $2, updated_at = now()
			WHERE id = ANY($1)
		`, ids, status)
	}
	if err != nil {
		return 0, err
	}
	switch status {
	case domain.RegistrationCancelled:
		err = cascadeTicketStatus(ctx, tx, ids, domain.TicketCancelled)
	case domain.RegistrationActive:
		err = cascadeTicketStatus(ctx, tx, ids, domain.TicketActive)
	}
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const bulkAppendNote = `notes = CASE WHEN notes = '' THEN $3 ELSE notes || E'\n' || $3 END`

// RegistrationPatch is a partial update; nil fields are left untouched.
type RegistrationPatch struct {
	EventID             *uuid.UUID
	UserID              *uuid.UUID
	ExternalID          *string
	FullName            *string
	Email               *string
	Phone               *string
	AdultTickets        *int
	ChildTickets        *int
	TotalAmount         *float64
	Currency            *string
	Notes               *string
	SpecialRequirements *string
	RegistrationStatus  *domain.RegistrationStatus
	PaymentStatus       *domain.PaymentStatus
	RegistrationType    *domain.RegistrationType
}

func (p RegistrationPatch) setClauses() (string, []any) {
	set := "updated_at = now()"
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		// $1 is the row id in Update
		set += ", " + col + " = $" + strconv.Itoa(len(args)+1)
	}
	if p.EventID != nil {
		add("event_id", *p.EventID)
	}
	if p.UserID != nil {
		add("user_id", *p.UserID)
	}
	if p.ExternalID != nil {
		add("external_id", *p.ExternalID)
	}
	if p.FullName != nil {
		add("full_name", *p.FullName)
	}
	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.Phone != nil {
		add("phone", *p.Phone)
	}
	if p.AdultTickets != nil {
		add("adult_tickets", *p.AdultTickets)
	}
	if p.ChildTickets != nil {
		add("child_tickets", *p.ChildTickets)
	}
	if p.TotalAmount != nil {
		add("total_amount", *p.TotalAmount)
	}
	if p.Currency != nil {
		add("currency", *p.Currency)
	}
	if p.Notes != nil {
		add("notes", *p.Notes)
	}
	if p.SpecialRequirements != nil {
		add("special_requirements", *p.SpecialRequirements)
	}
	if p.RegistrationStatus != nil {
		add("registration_status", *p.RegistrationStatus)
	}
	if p.PaymentStatus != nil {
		add("payment_status", *p.PaymentStatus)
	}
	if p.RegistrationType != nil {
		add("registration_type", *p.RegistrationType)
	}
	return set, args
}

