package service

import (
	"context"
	"time"

	"github.com/dcm-project/hpc-marketplace/internal/events"
	"github.com/dcm-project/hpc-marketplace/internal/store"
	"go.uber.org/zap"
)

// Services bundles the marketplace components sharing one store.
type Services struct {
	Catalog   *CatalogService
	Ledger    *LedgerService
	Matching  *MatchingEngine
	Execution *ExecutionGateway
}

func NewServices(st store.Store, publisher events.Publisher) *Services {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Services{
		Catalog:   NewCatalogService(st),
		Ledger:    NewLedgerService(st, publisher),
		Matching:  NewMatchingEngine(st, publisher),
		Execution: NewExecutionGateway(st),
	}
}

// notify publishes a lifecycle event after its transaction committed.
// Delivery failures are logged and never reach the caller.
func notify(ctx context.Context, publisher events.Publisher, event events.LifecycleEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := publisher.Publish(ctx, event); err != nil {
		zap.S().Named("events").Warnw("failed to publish lifecycle event",
			"request-id", event.RequestID,
			"transition", event.Transition,
			"error", err)
	}
}
