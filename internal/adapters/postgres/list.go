package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/VVKrauss/Hub-3-sub002/internal/domain"
)

// buildListWhere renders the filter as an AND-combined WHERE clause with
// numbered placeholders. Search is a case-insensitive substring match,
// OR-combined over name, email, phone and external id.
func buildListWhere(f domain.ListFilter) (string, []any) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.EventID != nil {
		conds = append(conds, "r.event_id = "+arg(*f.EventID))
	}
	if f.UserID != nil {
		conds = append(conds, "r.user_id = "+arg(*f.UserID))
	}
	if len(f.RegistrationStatuses) > 0 {
		conds = append(conds, "r.registration_status = ANY("+arg(f.RegistrationStatuses)+")")
	}
	if len(f.PaymentStatuses) > 0 {
		conds = append(conds, "r.payment_status = ANY("+arg(f.PaymentStatuses)+")")
	}
	if len(f.RegistrationTypes) > 0 {
		conds = append(conds, "r.registration_type = ANY("+arg(f.RegistrationTypes)+")")
	}
	if f.CreatedFrom != nil {
		conds = append(conds, "r.created_at >= "+arg(*f.CreatedFrom))
	}
	if f.CreatedTo != nil {
		conds = append(conds, "r.created_at <= "+arg(*f.CreatedTo))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		conds = append(conds, "(r.full_name ILIKE "+p+
			" OR r.email ILIKE "+p+
			" OR r.phone ILIKE "+p+
			" OR r.external_id ILIKE "+p+")")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns one page of registrations, newest first, with an exact total
// count. The count and page queries run concurrently on the pool.
func (r *Repository) List(ctx context.Context, f domain.ListFilter, page, limit int) (*domain.Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	where, args := buildListWhere(f)

	result := &domain.Page{Page: page, Limit: limit}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.pool.QueryRow(gctx,
			"SELECT count(*) FROM sh_registrations r"+where, args...).Scan(&result.Total)
	})
	g.Go(func() error {
		pageArgs := append(append([]any{}, args...), limit, (page-1)*limit)
		n := len(args)
		rows, err := r.pool.Query(gctx,
			"SELECT"+registrationColumns+registrationJoins+where+
				" ORDER BY r.created_at DESC LIMIT $"+strconv.Itoa(n+1)+" OFFSET $"+strconv.Itoa(n+2),
			pageArgs...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			reg, err := scanRegistration(rows)
			if err != nil {
				return err
			}
			result.Items = append(result.Items, *reg)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(result.Items) > 0 {
		ids := make([]uuid.UUID, len(result.Items))
		for i := range result.Items {
			ids[i] = result.Items[i].ID
		}
		tickets, err := r.ticketsFor(ctx, r.pool, ids)
		if err != nil {
			return nil, err
		}
		for i := range result.Items {
			result.Items[i].Tickets = tickets[result.Items[i].ID]
		}
	}

	return result, nil
}

// ListForExport fetches every registration of one event with the summary
// fields the CSV export needs, oldest first so exports read chronologically.
func (r *Repository) ListForExport(ctx context.Context, eventID uuid.UUID) ([]domain.Registration, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT"+registrationColumns+registrationJoins+
			" WHERE r.event_id = $1 ORDER BY r.created_at ASC", eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []domain.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}
