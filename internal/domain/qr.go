package domain

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

const qrAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = qrAlphabet[rand.Intn(len(qrAlphabet))]
	}
	return string(b)
}

// NewRegistrationQR produces the check-in token for a registration:
// reg_<epoch-ms>_<6-char-random>. Opaque, not cryptographically signed;
// possession of the string is the only check performed at lookup.
func NewRegistrationQR() string {
	return fmt.Sprintf("reg_%d_%s", time.Now().UnixMilli(), randomSuffix(6))
}

// NewTicketQRCodes produces n per-seat tokens for a ticket:
// ticket_<ticketId>_<epoch-ms>_<index>_<6-char-random>.
func NewTicketQRCodes(ticketID uuid.UUID, n int) []string {
	now := time.Now().UnixMilli()
	codes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		codes = append(codes, fmt.Sprintf("ticket_%s_%d_%d_%s", ticketID, now, i, randomSuffix(6)))
	}
	return codes
}
