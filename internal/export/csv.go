// Package export renders registration result sets as delimited text for
// admin downloads.
package export

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/VVKrauss/Hub-3-sub002/internal/domain"
)

// Column order is fixed; admin spreadsheets are built around it.
var header = []string{
	"ID", "External ID", "Name", "Email", "Phone",
	"Adult Tickets", "Child Tickets", "Total Amount", "Currency",
	"Registration Status", "Payment Status", "QR Code",
	"Created At", "Confirmed At", "Attended At",
	"Notes", "Special Requirements",
}

// Dates are rendered the way the admin panel shows them, day first.
const dateLayout = "02.01.2006 15:04"

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

// Registrations renders one CSV row per registration in the fixed 17-column
// order. Fields containing commas, quotes or newlines are quoted with doubled
// embedded quotes per RFC 4180; encoding/csv handles the escaping.
func Registrations(regs []domain.Registration) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range regs {
		created := r.CreatedAt
		row := []string{
			r.ID.String(),
			r.ExternalID,
			r.FullName,
			r.Email,
			r.Phone,
			strconv.Itoa(r.AdultTickets),
			strconv.Itoa(r.ChildTickets),
			strconv.FormatFloat(r.TotalAmount, 'f', 2, 64),
			r.Currency,
			string(r.RegistrationStatus),
			string(r.PaymentStatus),
			r.QRCode,
			formatDate(&created),
			formatDate(r.ConfirmedAt),
			formatDate(r.AttendedAt),
			r.Notes,
			r.SpecialRequirements,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
