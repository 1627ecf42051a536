package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VVKrauss/Hub-3-sub002/internal/adapters/postgres"
	"github.com/VVKrauss/Hub-3-sub002/internal/config"
	"github.com/VVKrauss/Hub-3-sub002/internal/domain"
	"github.com/VVKrauss/Hub-3-sub002/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	repo := postgres.NewRepository(pool)

	worker := NewWaitlistWorker(repo, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Run(ctx, time.Minute)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown waitlist worker")
}

// WaitlistWorker promotes waitlisted registrations into freed capacity,
// oldest first. A registration whose event is still full is skipped and
// retried on the next tick.
type WaitlistWorker struct {
	repo   *postgres.Repository
	logger observability.Logger
}

func NewWaitlistWorker(repo *postgres.Repository, logger observability.Logger) *WaitlistWorker {
	return &WaitlistWorker{repo: repo, logger: logger}
}

func (w *WaitlistWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ids, err := w.repo.WaitlistedIDs(ctx, 100)
			if err != nil {
				w.logger.Error("failed to list waitlisted registrations", err)
				continue
			}
			for _, id := range ids {
				if err := w.promoteWithRetry(ctx, id); err != nil {
					if errors.Is(err, domain.ErrCapacityExceeded) {
						continue
					}
					w.logger.Error("failed to promote registration", err)
				}
			}
		}
	}
}

func (w *WaitlistWorker) promoteWithRetry(ctx context.Context, id uuid.UUID) error {
	maxRetries := 3
	var err error
	for i := 0; i < maxRetries; i++ {
		err = w.repo.WithTx(ctx, func(tx pgx.Tx) error {
			reg, err := w.repo.PromoteFromWaitlist(ctx, tx, id, "Promoted from waitlist")
			if err != nil {
				return err
			}
			payload, _ := json.Marshal(map[string]interface{}{
				"registration_id": reg.ID,
				"event_id":        reg.EventID,
			})
			return w.repo.InsertOutbox(ctx, tx, postgres.NewOutboxRecord(reg.ID, "waitlist.promoted", payload))
		})
		if err == nil || !errors.Is(err, domain.ErrSerializationFailure) {
			return err
		}
		backoff := time.Duration(1<<i) * time.Second
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}
