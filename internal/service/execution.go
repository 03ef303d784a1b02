package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dcm-project/hpc-marketplace/internal/store"
	"github.com/dcm-project/hpc-marketplace/internal/store/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PendingJob is a scheduled request handed to an execution worker.
type PendingJob struct {
	RequestID  uint
	ProviderID uint
	CodeText   string
}

// ProviderState is what a worker needs to resume after a restart.
type ProviderState struct {
	Provider   model.Provider
	CurrentJob *model.Request
}

// ExecutionGateway is the boundary with the external execution workers.
type ExecutionGateway struct {
	store  store.Store
	logger *zap.SugaredLogger
}

func NewExecutionGateway(st store.Store) *ExecutionGateway {
	return &ExecutionGateway{store: st, logger: zap.S().Named("execution")}
}

// PendingJobs lists every SCHEDULED request with the provider that won it.
// A job stays listed until its result is reported.
func (e *ExecutionGateway) PendingJobs(ctx context.Context) ([]PendingJob, error) {
	scheduled, err := e.store.Requests().ListByStatus(ctx, model.StatusScheduled)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled requests: %w", err)
	}

	ids := make([]uint, 0, len(scheduled))
	for _, req := range scheduled {
		ids = append(ids, req.ID)
	}
	accepted, err := e.store.Bids().AcceptedByRequest(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load accepted bids: %w", err)
	}

	jobs := make([]PendingJob, 0, len(scheduled))
	for _, req := range scheduled {
		bid, ok := accepted[req.ID]
		if !ok {
			e.logger.Warnw("scheduled request has no accepted bid, skipping", "request-id", req.ID)
			continue
		}
		jobs = append(jobs, PendingJob{
			RequestID:  req.ID,
			ProviderID: bid.ProviderID,
			CodeText:   req.CodeText,
		})
	}
	return jobs, nil
}

// ProviderStatus returns the provider's availability and its most recent
// scheduled job, if any.
func (e *ExecutionGateway) ProviderStatus(ctx context.Context, providerID uint) (*ProviderState, error) {
	provider, err := e.store.Providers().Get(ctx, providerID)
	if err != nil {
		return nil, lookup(err, "provider", providerID)
	}

	state := &ProviderState{Provider: *provider}
	job, err := e.store.Requests().LatestScheduledForProvider(ctx, providerID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to load current job of provider %d: %w", providerID, err)
	default:
		state.CurrentJob = job
	}
	return state, nil
}

// Logout withdraws the provider from bidding regardless of its job state.
func (e *ExecutionGateway) Logout(ctx context.Context, providerID uint) error {
	if err := e.store.Providers().SetAvailable(ctx, providerID, false); err != nil {
		return lookup(err, "provider", providerID)
	}
	e.logger.Infow("provider logged out", "provider-id", providerID)
	return nil
}
