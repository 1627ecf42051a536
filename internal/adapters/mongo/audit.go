package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/VVKrauss/Hub-3-sub002/internal/domain"
	"github.com/VVKrauss/Hub-3-sub002/internal/observability"
)

// AuditLogger records who did what to which registration. Writes are
// best-effort: a failed audit insert is logged, never surfaced to the admin
// action that triggered it.
type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("registration_audit"),
		logger: logger,
	}
}

type AuditEntry struct {
	ID             uuid.UUID `bson:"_id"`
	Action         string    `bson:"action"`
	RegistrationID uuid.UUID `bson:"registration_id"`
	Actor          string    `bson:"actor"`
	Timestamp      time.Time `bson:"timestamp"`
	Data           bson.M    `bson:"data"`
}

func (a *AuditLogger) Log(ctx context.Context, action string, registrationID uuid.UUID, actor string, data map[string]interface{}) {
	entry := AuditEntry{
		ID:             uuid.New(),
		Action:         action,
		RegistrationID: registrationID,
		Actor:          actor,
		Timestamp:      time.Now(),
		Data:           bson.M(data),
	}
	if _, err := a.coll.InsertOne(ctx, entry); err != nil {
		a.logger.WithError(err).Error("failed to insert audit entry")
	}
}

func (a *AuditLogger) LogCreated(ctx context.Context, reg domain.Registration, actor string) {
	a.Log(ctx, "registration.created", reg.ID, actor, map[string]interface{}{
		"event_id":     reg.EventID,
		"status":       reg.RegistrationStatus,
		"seats":        reg.Seats(),
		"total_amount": reg.TotalAmount,
	})
}

func (a *AuditLogger) LogStatusChange(ctx context.Context, registrationID uuid.UUID, actor string, status domain.RegistrationStatus, reason string) {
	a.Log(ctx, "registration.status_changed", registrationID, actor, map[string]interface{}{
		"status": status,
		"reason": reason,
	})
}
