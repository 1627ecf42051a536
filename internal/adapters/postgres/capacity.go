package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/VVKrauss/Hub-3-sub002/internal/domain"
)

// EventCapacity reads the event's max_attendees; nil means unlimited.
func (r *Repository) EventCapacity(ctx context.Context, q Querier, eventID uuid.UUID) (*int, error) {
	var max *int
	err := q.QueryRow(ctx,
		"SELECT max_attendees FROM sh_events WHERE id = $1", eventID).Scan(&max)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrap(domain.ErrNotFound, "event")
	}
	if err != nil {
		return nil, err
	}
	return max, nil
}

// CountActiveSeats sums adult and child ticket counts over the event's active
// registrations.
func (r *Repository) CountActiveSeats(ctx context.Context, q Querier, eventID uuid.UUID) (int, error) {
	var seats int
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(adult_tickets + child_tickets), 0)
		FROM sh_registrations
		WHERE event_id = $1 AND registration_status = 'active'
	`, eventID).Scan(&seats)
	return seats, err
}

// CheckAvailability is the lock-free read used for display. The write paths
// go through ReserveCapacity instead.
func (r *Repository) CheckAvailability(ctx context.Context, eventID uuid.UUID, requested int) (domain.Availability, error) {
	max, err := r.EventCapacity(ctx, r.pool, eventID)
	if err != nil {
		return domain.Availability{}, err
	}
	current, err := r.CountActiveSeats(ctx, r.pool, eventID)
	if err != nil {
		return domain.Availability{}, err
	}
	return domain.ComputeAvailability(max, current, requested), nil
}

// EventSlug resolves the URL slug used for the event's media paths.
func (r *Repository) EventSlug(ctx context.Context, eventID uuid.UUID) (string, error) {
	var slug string
	err := r.pool.QueryRow(ctx,
		"SELECT slug FROM sh_events WHERE id = $1", eventID).Scan(&slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", errors.Wrap(domain.ErrNotFound, "event")
	}
	return slug, err
}

// PromoteFromWaitlist flips one waitlisted registration to active, but only
// when its own seat count still fits. The row is locked first so the check
// and the flip cannot interleave with a concurrent registration.
func (r *Repository) PromoteFromWaitlist(ctx context.Context, tx pgx.Tx, id uuid.UUID, note string) (*domain.Registration, error) {
	var eventID uuid.UUID
	var status domain.RegistrationStatus
	var adults, children int
	err := tx.QueryRow(ctx, `
		SELECT event_id, registration_status, adult_tickets, child_tickets
		FROM sh_registrations WHERE id = $1 FOR UPDATE
	`, id).Scan(&eventID, &status, &adults, &children)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrap(domain.ErrNotFound, "registration")
	}
	if err != nil {
		return nil, err
	}
	if status != domain.RegistrationWaitlist {
		return nil, errors.Wrapf(domain.ErrInvalidInput, "registration is %s, not waitlisted", status)
	}

	if _, err := r.ReserveCapacity(ctx, tx, eventID, adults+children); err != nil {
		return nil, err
	}

	if note == "" {
		note = "Promoted from waitlist"
	}
	_, err = tx.Exec(ctx, `
		UPDATE sh_registrations
		SET registration_status = 'active', `+appendNote+`, updated_at = now()
		WHERE id = $1
	`, id, note)
	if err != nil {
		return nil, err
	}
	if err := cascadeTicketStatus(ctx, tx, []uuid.UUID{id}, domain.TicketActive); err != nil {
		return nil, err
	}
	return &domain.Registration{ID: id, EventID: eventID, AdultTickets: adults, ChildTickets: children}, nil
}

// WaitlistedIDs returns waitlisted registrations oldest first, for the
// promoter worker's scan.
func (r *Repository) WaitlistedIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM sh_registrations
		WHERE registration_status = 'waitlist'
		ORDER BY created_at ASC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ReserveCapacity checks headroom for the requested seats inside tx, taking a
// row lock on the event so concurrent reservations serialize instead of both
// passing a stale read. Returns ErrCapacityExceeded when the seats do not fit.
func (r *Repository) ReserveCapacity(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, seats int) (domain.Availability, error) {
	var max *int
	err := tx.QueryRow(ctx,
		"SELECT max_attendees FROM sh_events WHERE id = $1 FOR UPDATE", eventID).Scan(&max)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Availability{}, errors.Wrap(domain.ErrNotFound, "event")
	}
	if err != nil {
		return domain.Availability{}, err
	}

	current, err := r.CountActiveSeats(ctx, tx, eventID)
	if err != nil {
		return domain.Availability{}, err
	}

	av := domain.ComputeAvailability(max, current, seats)
	if !av.Available {
		return av, errors.Wrapf(domain.ErrCapacityExceeded,
			"requested %d, remaining %d", seats, av.RemainingSpots)
	}
	return av, nil
}
