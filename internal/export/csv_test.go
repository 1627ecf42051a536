package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/VVKrauss/Hub-3-sub002/internal/domain"
)

func TestRegistrationsRoundTrip(t *testing.T) {
	confirmed := time.Date(2025, 3, 15, 18, 30, 0, 0, time.UTC)
	regs := []domain.Registration{
		{
			ID:                 uuid.New(),
			ExternalID:         "EXT-001",
			QRCode:             "reg_1742058600000_ab12cd",
			FullName:           `Petrov, Ivan "Vanya"`,
			Email:              "ivan@example.com",
			Phone:              "+49 151 1234567",
			AdultTickets:       2,
			ChildTickets:       1,
			TotalAmount:        150,
			Currency:           "EUR",
			RegistrationStatus: domain.RegistrationActive,
			PaymentStatus:      domain.PaymentConfirmed,
			CreatedAt:          time.Date(2025, 3, 10, 9, 5, 0, 0, time.UTC),
			ConfirmedAt:        &confirmed,
			Notes:              "line one\nline two",
		},
		{
			ID:                 uuid.New(),
			QRCode:             "reg_1742058600001_ef34gh",
			FullName:           "Maria Schmidt",
			RegistrationStatus: domain.RegistrationWaitlist,
			PaymentStatus:      domain.PaymentPending,
			Currency:           "EUR",
			CreatedAt:          time.Date(2025, 3, 11, 12, 0, 0, 0, time.UTC),
		},
	}

	out, err := Registrations(regs)
	if err != nil {
		t.Fatal(err)
	}

	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("produced CSV does not parse: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if len(row) != 17 {
			t.Errorf("row %d has %d columns, want 17", i, len(row))
		}
	}

	first := rows[1]
	if first[2] != `Petrov, Ivan "Vanya"` {
		t.Errorf("quoted name mangled: %q", first[2])
	}
	if first[12] != "10.03.2025 09:05" {
		t.Errorf("created-at format = %q", first[12])
	}
	if first[13] != "15.03.2025 18:30" {
		t.Errorf("confirmed-at format = %q", first[13])
	}
	if first[15] != "line one\nline two" {
		t.Errorf("embedded newline lost: %q", first[15])
	}
	if first[7] != "150.00" {
		t.Errorf("amount = %q", first[7])
	}

	second := rows[2]
	if second[13] != "" || second[14] != "" {
		t.Errorf("nil timestamps must render blank: %q / %q", second[13], second[14])
	}

	// Raw text check: the quoted field doubles embedded quotes.
	if !strings.Contains(string(out), `"Petrov, Ivan ""Vanya"""`) {
		t.Error("expected RFC 4180 quote doubling in raw output")
	}
}
