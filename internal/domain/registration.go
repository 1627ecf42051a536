package domain

import (
	"time"

	"github.com/google/uuid"
)

type RegistrationStatus string

const (
	RegistrationActive    RegistrationStatus = "active"
	RegistrationCancelled RegistrationStatus = "cancelled"
	RegistrationWaitlist  RegistrationStatus = "waitlist"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// RegistrationType records provenance, not lifecycle.
type RegistrationType string

const (
	TypeUser   RegistrationType = "user"
	TypeAdmin  RegistrationType = "admin"
	TypeImport RegistrationType = "import"
)

type TicketStatus string

const (
	TicketActive    TicketStatus = "active"
	TicketCancelled TicketStatus = "cancelled"
)

// Registration is one party's intent to attend an event. The QR code is
// generated at creation and immutable afterwards.
type Registration struct {
	ID                  uuid.UUID
	EventID             uuid.UUID
	UserID              *uuid.UUID
	ExternalID          string
	QRCode              string
	FullName            string
	Email               string
	Phone               string
	AdultTickets        int
	ChildTickets        int
	TotalAmount         float64
	Currency            string
	Notes               string
	SpecialRequirements string
	RegistrationStatus  RegistrationStatus
	PaymentStatus       PaymentStatus
	RegistrationType    RegistrationType
	CreatedAt           time.Time
	UpdatedAt           time.Time
	ConfirmedAt         *time.Time
	AttendedAt          *time.Time

	Tickets []Ticket

	// Summary fields populated on joined reads.
	EventTitle string
	EventDate  *time.Time
	UserName   string
	UserEmail  string
}

// Ticket is a line item owned by exactly one registration.
type Ticket struct {
	ID             uuid.UUID
	RegistrationID uuid.UUID
	Name           string
	Quantity       int
	UnitPrice      float64
	TotalPrice     float64
	Currency       string
	Status         TicketStatus
	QRCodes        []string
	CreatedAt      time.Time
}

// Seats returns the number of attendees this registration occupies.
func (r *Registration) Seats() int {
	return r.AdultTickets + r.ChildTickets
}

func ValidRegistrationStatus(s RegistrationStatus) bool {
	switch s {
	case RegistrationActive, RegistrationCancelled, RegistrationWaitlist:
		return true
	}
	return false
}

func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentPending, PaymentConfirmed, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// NewRegistration fills server-generated fields for an incoming registration.
// Status defaults preserve what admin imports send explicitly.
func NewRegistration(reg Registration) Registration {
	reg.ID = uuid.New()
	reg.QRCode = NewRegistrationQR()
	if reg.RegistrationStatus == "" {
		reg.RegistrationStatus = RegistrationActive
	}
	if reg.PaymentStatus == "" {
		reg.PaymentStatus = PaymentPending
	}
	if reg.RegistrationType == "" {
		reg.RegistrationType = TypeUser
	}
	if reg.Currency == "" {
		reg.Currency = "EUR"
	}
	now := time.Now().UTC()
	reg.CreatedAt = now
	reg.UpdatedAt = now
	return reg
}

// NewTicket fills server-generated fields for a ticket attached to a
// registration. TotalPrice is derived when the caller left it zero.
func NewTicket(registrationID uuid.UUID, t Ticket) Ticket {
	t.ID = uuid.New()
	t.RegistrationID = registrationID
	if t.Status == "" {
		t.Status = TicketActive
	}
	if t.Quantity <= 0 {
		t.Quantity = 1
	}
	if t.TotalPrice == 0 {
		t.TotalPrice = t.UnitPrice * float64(t.Quantity)
	}
	t.CreatedAt = time.Now().UTC()
	return t
}
