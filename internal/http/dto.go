package http

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/VVKrauss/Hub-3-sub002/internal/domain"
)

type ticketJSON struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	UnitPrice  float64   `json:"unit_price"`
	TotalPrice float64   `json:"total_price"`
	Currency   string    `json:"currency"`
	Status     string    `json:"status"`
	QRCodes    []string  `json:"qr_codes"`
}

type registrationJSON struct {
	ID                  uuid.UUID    `json:"id"`
	EventID             uuid.UUID    `json:"event_id"`
	UserID              *uuid.UUID   `json:"user_id,omitempty"`
	ExternalID          string       `json:"external_id,omitempty"`
	QRCode              string       `json:"qr_code"`
	FullName            string       `json:"full_name"`
	Email               string       `json:"email"`
	Phone               string       `json:"phone"`
	AdultTickets        int          `json:"adult_tickets"`
	ChildTickets        int          `json:"child_tickets"`
	TotalAmount         float64      `json:"total_amount"`
	Currency            string       `json:"currency"`
	Notes               string       `json:"notes,omitempty"`
	SpecialRequirements string       `json:"special_requirements,omitempty"`
	RegistrationStatus  string       `json:"registration_status"`
	PaymentStatus       string       `json:"payment_status"`
	RegistrationType    string       `json:"registration_type"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
	ConfirmedAt         *time.Time   `json:"confirmed_at,omitempty"`
	AttendedAt          *time.Time   `json:"attended_at,omitempty"`
	EventTitle          string       `json:"event_title,omitempty"`
	EventDate           *time.Time   `json:"event_date,omitempty"`
	UserName            string       `json:"user_name,omitempty"`
	UserEmail           string       `json:"user_email,omitempty"`
	Tickets             []ticketJSON `json:"tickets"`
}

func toRegistrationJSON(reg domain.Registration) registrationJSON {
	out := registrationJSON{
		ID:                  reg.ID,
		EventID:             reg.EventID,
		UserID:              reg.UserID,
		ExternalID:          reg.ExternalID,
		QRCode:              reg.QRCode,
		FullName:            reg.FullName,
		Email:               reg.Email,
		Phone:               reg.Phone,
		AdultTickets:        reg.AdultTickets,
		ChildTickets:        reg.ChildTickets,
		TotalAmount:         reg.TotalAmount,
		Currency:            reg.Currency,
		Notes:               reg.Notes,
		SpecialRequirements: reg.SpecialRequirements,
		RegistrationStatus:  string(reg.RegistrationStatus),
		PaymentStatus:       string(reg.PaymentStatus),
		RegistrationType:    string(reg.RegistrationType),
		CreatedAt:           reg.CreatedAt,
		UpdatedAt:           reg.UpdatedAt,
		ConfirmedAt:         reg.ConfirmedAt,
		AttendedAt:          reg.AttendedAt,
		EventTitle:          reg.EventTitle,
		EventDate:           reg.EventDate,
		UserName:            reg.UserName,
		UserEmail:           reg.UserEmail,
		Tickets:             make([]ticketJSON, 0, len(reg.Tickets)),
	}
	for _, t := range reg.Tickets {
		out.Tickets = append(out.Tickets, ticketJSON{
			ID:         t.ID,
			Name:       t.Name,
			Quantity:   t.Quantity,
			UnitPrice:  t.UnitPrice,
			TotalPrice: t.TotalPrice,
			Currency:   t.Currency,
			Status:     string(t.Status),
			QRCodes:    t.QRCodes,
		})
	}
	return out
}

// parseListFilter translates query parameters into the repository filter.
// Multi-value filters accept comma-separated lists; dates are RFC 3339.
func parseListFilter(q url.Values) (domain.ListFilter, int, int, error) {
	var f domain.ListFilter

	if v := q.Get("event_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, 0, 0, errors.Wrap(domain.ErrInvalidInput, "event_id")
		}
		f.EventID = &id
	}
	if v := q.Get("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, 0, 0, errors.Wrap(domain.ErrInvalidInput, "user_id")
		}
		f.UserID = &id
	}
	for _, v := range splitCSV(q.Get("status")) {
		s := domain.RegistrationStatus(v)
		if !domain.ValidRegistrationStatus(s) {
			return f, 0, 0, errors.Wrapf(domain.ErrInvalidInput, "status %q", v)
		}
		f.RegistrationStatuses = append(f.RegistrationStatuses, s)
	}
	for _, v := range splitCSV(q.Get("payment_status")) {
		s := domain.PaymentStatus(v)
		if !domain.ValidPaymentStatus(s) {
			return f, 0, 0, errors.Wrapf(domain.ErrInvalidInput, "payment_status %q", v)
		}
		f.PaymentStatuses = append(f.PaymentStatuses, s)
	}
	for _, v := range splitCSV(q.Get("type")) {
		f.RegistrationTypes = append(f.RegistrationTypes, domain.RegistrationType(v))
	}
	if v := q.Get("created_from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, 0, 0, errors.Wrap(domain.ErrInvalidInput, "created_from")
		}
		f.CreatedFrom = &t
	}
	if v := q.Get("created_to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, 0, 0, errors.Wrap(domain.ErrInvalidInput, "created_to")
		}
		f.CreatedTo = &t
	}
	f.Search = strings.TrimSpace(q.Get("search"))

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}

	return f, page, limit, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
