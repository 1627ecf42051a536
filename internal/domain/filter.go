package domain

import (
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows a registration listing. All set fields are AND-combined;
// Search matches case-insensitively against name, email, phone and the
// external registration id, OR-combined.
type ListFilter struct {
	EventID               *uuid.UUID
	UserID                *uuid.UUID
	RegistrationStatuses  []RegistrationStatus
	PaymentStatuses       []PaymentStatus
	RegistrationTypes     []RegistrationType
	CreatedFrom           *time.Time
	CreatedTo             *time.Time
	Search                string
}

// Page is the listing envelope. Total is the exact server-side count of rows
// matching the filter, not the length of Items.
type Page struct {
	Items []Registration
	Total int64
	Page  int
	Limit int
}

// Availability is the result of a capacity check. Remaining is clamped at
// zero for display; the raw headroom drives Available.
type Availability struct {
	Available      bool
	MaxAttendees   *int
	CurrentSeats   int
	RemainingSpots int
}

// ComputeAvailability answers whether requested more seats fit under max.
// A nil max means the event is unbounded.
func ComputeAvailability(max *int, current, requested int) Availability {
	if max == nil {
		return Availability{Available: true, CurrentSeats: current}
	}
	remaining := *max - current
	av := Availability{
		Available:      remaining >= requested,
		MaxAttendees:   max,
		CurrentSeats:   current,
		RemainingSpots: remaining,
	}
	if av.RemainingSpots < 0 {
		av.RemainingSpots = 0
	}
	return av
}
