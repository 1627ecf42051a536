package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/VVKrauss/Hub-3-sub002/internal/adapters/postgres"
	"github.com/VVKrauss/Hub-3-sub002/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS sh_events (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		slug TEXT NOT NULL DEFAULT '',
		start_at TIMESTAMPTZ,
		max_attendees INT
	);
	CREATE TABLE IF NOT EXISTS sh_users (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS sh_registrations (
		id UUID PRIMARY KEY,
		event_id UUID NOT NULL,
		user_id UUID,
		external_id TEXT NOT NULL DEFAULT '',
		qr_code TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		adult_tickets INT NOT NULL DEFAULT 0,
		child_tickets INT NOT NULL DEFAULT 0,
		total_amount NUMERIC NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT 'EUR',
		notes TEXT NOT NULL DEFAULT '',
		special_requirements TEXT NOT NULL DEFAULT '',
		registration_status TEXT NOT NULL CHECK (registration_status IN ('active', 'cancelled', 'waitlist')),
		payment_status TEXT NOT NULL CHECK (payment_status IN ('pending', 'confirmed', 'failed', 'refunded')),
		registration_type TEXT NOT NULL CHECK (registration_type IN ('user', 'admin', 'import')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		confirmed_at TIMESTAMPTZ,
		attended_at TIMESTAMPTZ
	);
	CREATE TABLE IF NOT EXISTS sh_registration_tickets (
		id UUID PRIMARY KEY,
		registration_id UUID NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		quantity INT NOT NULL DEFAULT 1,
		unit_price NUMERIC NOT NULL DEFAULT 0,
		total_price NUMERIC NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT 'EUR',
		status TEXT NOT NULL CHECK (status IN ('active', 'cancelled')),
		qr_codes TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS sh_outbox (
		id UUID PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id UUID NOT NULL,
		event_type TEXT NOT NULL,
		payload_json BYTEA,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		published_at TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'NEW',
		dedupe_key TEXT NOT NULL DEFAULT ''
	);
`

func setupRepo(t *testing.T) (*postgres.Repository, *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			Env:          map[string]string{"POSTGRES_USER": "hub", "POSTGRES_PASSWORD": "hub", "POSTGRES_DB": "hub"},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, fmt.Sprintf("postgresql://hub:hub@%s:%s/hub?sslmode=disable", host, port.Port()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, schema); err != nil {
		t.Fatal(err)
	}
	return postgres.NewRepository(pool), pool
}

func seedEvent(t *testing.T, pool *pgxpool.Pool, maxAttendees *int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		"INSERT INTO sh_events (id, title, slug, start_at, max_attendees) VALUES ($1, 'Science Friday', 'science-friday', now(), $2)",
		id, maxAttendees)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func createRegistration(t *testing.T, repo *postgres.Repository, eventID uuid.UUID, adults, children int, tickets []domain.Ticket) domain.Registration {
	t.Helper()
	reg := domain.NewRegistration(domain.Registration{
		EventID:      eventID,
		FullName:     "Anna Petrova",
		Email:        "anna@example.com",
		Phone:        "+49123456789",
		AdultTickets: adults,
		ChildTickets: children,
	})
	built := make([]domain.Ticket, 0, len(tickets))
	for _, tk := range tickets {
		b := domain.NewTicket(reg.ID, tk)
		built = append(built, b)
		reg.TotalAmount += b.TotalPrice
	}
	err := repo.WithTx(context.Background(), func(tx pgx.Tx) error {
		if _, err := repo.ReserveCapacity(context.Background(), tx, eventID, reg.Seats()); err != nil {
			return err
		}
		return repo.Create(context.Background(), tx, reg, built)
	})
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestRepository_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	repo, pool := setupRepo(t)
	ctx := context.Background()
	maxAttendees := 10
	eventID := seedEvent(t, pool, &maxAttendees)

	reg := createRegistration(t, repo, eventID, 2, 1, []domain.Ticket{
		{Name: "Adult", Quantity: 2, UnitPrice: 50},
		{Name: "Child", Quantity: 1, UnitPrice: 50},
	})

	fetched, err := repo.GetByID(ctx, reg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.QRCode != reg.QRCode || len(fetched.Tickets) != 2 {
		t.Errorf("unexpected fetch: qr=%s tickets=%d", fetched.QRCode, len(fetched.Tickets))
	}
	if fetched.EventTitle != "Science Friday" {
		t.Errorf("event title join missing: %q", fetched.EventTitle)
	}
	if fetched.TotalAmount != 150 {
		t.Errorf("total = %v, want 150", fetched.TotalAmount)
	}

	byQR, err := repo.GetByQRCode(ctx, reg.QRCode)
	if err != nil {
		t.Fatal(err)
	}
	if byQR.ID != reg.ID {
		t.Error("qr lookup returned wrong registration")
	}

	if _, err := repo.GetByID(ctx, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRepository_CancelCascadesTickets(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	repo, pool := setupRepo(t)
	ctx := context.Background()
	eventID := seedEvent(t, pool, nil)

	reg := createRegistration(t, repo, eventID, 1, 2, []domain.Ticket{
		{Name: "Family", Quantity: 3, UnitPrice: 20},
	})

	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.Cancel(ctx, tx, reg.ID, "duplicate booking")
	})
	if err != nil {
		t.Fatal(err)
	}

	fetched, err := repo.GetByID(ctx, reg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.RegistrationStatus != domain.RegistrationCancelled {
		t.Errorf("status = %s, want cancelled", fetched.RegistrationStatus)
	}
	if fetched.Notes != "duplicate booking" {
		t.Errorf("reason not appended: %q", fetched.Notes)
	}
	for _, tk := range fetched.Tickets {
		if tk.Status != domain.TicketCancelled {
			t.Errorf("ticket %s still %s", tk.ID, tk.Status)
		}
	}

	// Restore flips everything back and re-reserves capacity.
	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := repo.ReserveCapacity(ctx, tx, eventID, fetched.Seats()); err != nil {
			return err
		}
		return repo.Restore(ctx, tx, reg.ID, "")
	})
	if err != nil {
		t.Fatal(err)
	}
	restored, err := repo.GetByID(ctx, reg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if restored.RegistrationStatus != domain.RegistrationActive {
		t.Errorf("status = %s, want active", restored.RegistrationStatus)
	}
	for _, tk := range restored.Tickets {
		if tk.Status != domain.TicketActive {
			t.Errorf("ticket %s still %s", tk.ID, tk.Status)
		}
	}
}

func TestRepository_CapacityGuard(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	repo, pool := setupRepo(t)
	ctx := context.Background()
	maxAttendees := 10
	eventID := seedEvent(t, pool, &maxAttendees)

	// Fill 8 of 10 seats.
	createRegistration(t, repo, eventID, 5, 0, nil)
	createRegistration(t, repo, eventID, 2, 1, nil)

	seats, err := repo.CountActiveSeats(ctx, repo.Pool(), eventID)
	if err != nil {
		t.Fatal(err)
	}
	if seats != 8 {
		t.Fatalf("active seats = %d, want 8", seats)
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		av, err := repo.ReserveCapacity(ctx, tx, eventID, 3)
		if err == nil {
			t.Error("expected capacity error for 3 seats with 2 remaining")
		}
		if av.RemainingSpots != 2 {
			t.Errorf("remaining = %d, want 2", av.RemainingSpots)
		}
		return err
	})
	if !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Errorf("expected ErrCapacityExceeded, got %v", err)
	}

	// Two seats still fit.
	createRegistration(t, repo, eventID, 2, 0, nil)
}

func TestRepository_TicketAmountAdjustment(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	repo, pool := setupRepo(t)
	ctx := context.Background()
	eventID := seedEvent(t, pool, nil)

	reg := createRegistration(t, repo, eventID, 1, 0, []domain.Ticket{
		{Name: "Standard", Quantity: 1, UnitPrice: 100},
	})

	extra := domain.NewTicket(reg.ID, domain.Ticket{Name: "Workshop", Quantity: 1, UnitPrice: 35.5})
	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.AddTicket(ctx, tx, extra)
	})
	if err != nil {
		t.Fatal(err)
	}
	fetched, _ := repo.GetByID(ctx, reg.ID)
	if fetched.TotalAmount != 135.5 {
		t.Errorf("total after add = %v, want 135.5", fetched.TotalAmount)
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.RemoveTicket(ctx, tx, extra.ID)
	})
	if err != nil {
		t.Fatal(err)
	}
	fetched, _ = repo.GetByID(ctx, reg.ID)
	if fetched.TotalAmount != 100 {
		t.Errorf("total after remove = %v, want 100", fetched.TotalAmount)
	}
	if len(fetched.Tickets) != 1 {
		t.Errorf("tickets = %d, want 1", len(fetched.Tickets))
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.RemoveTicket(ctx, tx, uuid.New())
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown ticket, got %v", err)
	}
}

func TestRepository_ListFiltersAndPaging(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	repo, pool := setupRepo(t)
	ctx := context.Background()
	eventID := seedEvent(t, pool, nil)
	otherEvent := seedEvent(t, pool, nil)

	for i := 0; i < 3; i++ {
		createRegistration(t, repo, eventID, 1, 0, nil)
	}
	waitlisted := domain.NewRegistration(domain.Registration{
		EventID:            eventID,
		FullName:           "Boris Waitlisted",
		Email:              "boris@example.com",
		RegistrationStatus: domain.RegistrationWaitlist,
		AdultTickets:       1,
	})
	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.Create(ctx, tx, waitlisted, nil)
	})
	if err != nil {
		t.Fatal(err)
	}
	createRegistration(t, repo, otherEvent, 1, 0, nil)

	page, err := repo.List(ctx, domain.ListFilter{EventID: &eventID}, 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 4 {
		t.Errorf("total = %d, want 4", page.Total)
	}
	if len(page.Items) != 3 {
		t.Errorf("page items = %d, want 3", len(page.Items))
	}
	for i := 1; i < len(page.Items); i++ {
		if page.Items[i].CreatedAt.After(page.Items[i-1].CreatedAt) {
			t.Error("expected newest-first ordering")
		}
	}

	page, err = repo.List(ctx, domain.ListFilter{
		EventID:              &eventID,
		RegistrationStatuses: []domain.RegistrationStatus{domain.RegistrationWaitlist},
	}, 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Items[0].FullName != "Boris Waitlisted" {
		t.Errorf("status filter failed: total=%d", page.Total)
	}

	page, err = repo.List(ctx, domain.ListFilter{Search: "BORIS"}, 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 {
		t.Errorf("case-insensitive search failed: total=%d", page.Total)
	}
}

func TestRepository_BulkUpdateStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	repo, pool := setupRepo(t)
	ctx := context.Background()
	eventID := seedEvent(t, pool, nil)

	a := createRegistration(t, repo, eventID, 1, 0, []domain.Ticket{{Name: "A", UnitPrice: 10}})
	b := createRegistration(t, repo, eventID, 1, 0, []domain.Ticket{{Name: "B", UnitPrice: 10}})

	var affected int64
	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		affected, err = repo.BulkUpdateStatus(ctx, tx, []uuid.UUID{a.ID, b.ID, uuid.New()}, domain.RegistrationCancelled, "season closed")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if affected != 2 {
		t.Errorf("affected = %d, want 2", affected)
	}
	for _, id := range []uuid.UUID{a.ID, b.ID} {
		reg, err := repo.GetByID(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if reg.RegistrationStatus != domain.RegistrationCancelled {
			t.Errorf("registration %s not cancelled", id)
		}
		for _, tk := range reg.Tickets {
			if tk.Status != domain.TicketCancelled {
				t.Errorf("ticket %s not cascaded", tk.ID)
			}
		}
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := repo.BulkUpdateStatus(ctx, tx, []uuid.UUID{a.ID}, "archived", "")
		return err
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for bad status, got %v", err)
	}
}

func TestRepository_UpdatePatch(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	repo, pool := setupRepo(t)
	ctx := context.Background()
	eventID := seedEvent(t, pool, nil)
	reg := createRegistration(t, repo, eventID, 1, 0, nil)

	name := "Renamed Attendee"
	phone := "+49 30 9876543"
	err := repo.Update(ctx, reg.ID, postgres.RegistrationPatch{FullName: &name, Phone: &phone})
	if err != nil {
		t.Fatal(err)
	}

	fetched, err := repo.GetByID(ctx, reg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.FullName != name || fetched.Phone != phone {
		t.Errorf("patch not applied: %q / %q", fetched.FullName, fetched.Phone)
	}
	if fetched.Email != reg.Email {
		t.Error("untouched field changed")
	}
	if fetched.QRCode != reg.QRCode {
		t.Error("qr_code must be immutable")
	}
	if !fetched.UpdatedAt.After(reg.UpdatedAt) {
		t.Error("updated_at not stamped")
	}

	err = repo.Update(ctx, uuid.New(), postgres.RegistrationPatch{FullName: &name})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRepository_PromoteFromWaitlist(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	repo, pool := setupRepo(t)
	ctx := context.Background()
	maxAttendees := 10
	eventID := seedEvent(t, pool, &maxAttendees)

	// 8 of 10 seats taken, waitlisted party wants 3.
	createRegistration(t, repo, eventID, 8, 0, nil)
	waitlisted := domain.NewRegistration(domain.Registration{
		EventID:            eventID,
		FullName:           "Olga Waiting",
		RegistrationStatus: domain.RegistrationWaitlist,
		AdultTickets:       2,
		ChildTickets:       1,
	})
	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.Create(ctx, tx, waitlisted, nil)
	})
	if err != nil {
		t.Fatal(err)
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := repo.PromoteFromWaitlist(ctx, tx, waitlisted.ID, "")
		return err
	})
	if !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	reg, _ := repo.GetByID(ctx, waitlisted.ID)
	if reg.RegistrationStatus != domain.RegistrationWaitlist {
		t.Errorf("failed promotion must leave status at waitlist, got %s", reg.RegistrationStatus)
	}

	// Free up seats, then promotion succeeds.
	_, err = pool.Exec(ctx, "UPDATE sh_registrations SET adult_tickets = 5 WHERE registration_status = 'active'")
	if err != nil {
		t.Fatal(err)
	}
	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := repo.PromoteFromWaitlist(ctx, tx, waitlisted.ID, "seat freed")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	reg, _ = repo.GetByID(ctx, waitlisted.ID)
	if reg.RegistrationStatus != domain.RegistrationActive {
		t.Errorf("status = %s, want active", reg.RegistrationStatus)
	}

	// A second promote is rejected: no longer waitlisted.
	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := repo.PromoteFromWaitlist(ctx, tx, waitlisted.ID, "")
		return err
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRepository_ConfirmAndAttend(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	repo, pool := setupRepo(t)
	ctx := context.Background()
	eventID := seedEvent(t, pool, nil)
	reg := createRegistration(t, repo, eventID, 1, 0, nil)

	if err := repo.ConfirmPayment(ctx, reg.ID); err != nil {
		t.Fatal(err)
	}
	fetched, _ := repo.GetByID(ctx, reg.ID)
	if fetched.PaymentStatus != domain.PaymentConfirmed || fetched.ConfirmedAt == nil {
		t.Error("payment confirmation not recorded")
	}
	if fetched.RegistrationStatus != domain.RegistrationActive {
		t.Error("confirm must not touch registration_status")
	}

	if err := repo.MarkAttendance(ctx, reg.ID, "main entrance"); err != nil {
		t.Fatal(err)
	}
	fetched, _ = repo.GetByID(ctx, reg.ID)
	if fetched.AttendedAt == nil {
		t.Error("attendance not stamped")
	}
	first := *fetched.AttendedAt

	time.Sleep(10 * time.Millisecond)
	if err := repo.MarkAttendance(ctx, reg.ID, ""); err != nil {
		t.Fatal(err)
	}
	fetched, _ = repo.GetByID(ctx, reg.ID)
	if !fetched.AttendedAt.After(first) {
		t.Error("re-marking should overwrite the timestamp")
	}
}
