package service

import (
	"context"
	"fmt"

	"github.com/dcm-project/hpc-marketplace/internal/events"
	"github.com/dcm-project/hpc-marketplace/internal/store"
	"github.com/dcm-project/hpc-marketplace/internal/store/model"
	"go.uber.org/zap"
)

// LedgerService owns the request and bid records as seen by clients.
type LedgerService struct {
	store     store.Store
	publisher events.Publisher
	logger    *zap.SugaredLogger
}

func NewLedgerService(st store.Store, publisher events.Publisher) *LedgerService {
	return &LedgerService{store: st, publisher: publisher, logger: zap.S().Named("ledger")}
}

// CreateRequest records a new OPEN request for the client.
func (l *LedgerService) CreateRequest(ctx context.Context, clientID uint, demand Demand, codeText string) (*model.Request, error) {
	if err := validateStruct(submission{ClientID: clientID, Demand: demand, CodeText: codeText}); err != nil {
		return nil, err
	}

	if _, err := l.store.Clients().Get(ctx, clientID); err != nil {
		return nil, lookup(err, "client", clientID)
	}

	req, err := l.store.Requests().Create(ctx, model.Request{
		ClientID:   clientID,
		Cores:      demand.Cores,
		ClockSpeed: demand.ClockSpeed,
		Memory:     demand.Memory,
		CodeText:   codeText,
		Status:     model.StatusOpen,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create request for client %d: %w", clientID, err)
	}

	l.logger.Infow("request created", "request-id", req.ID, "client-id", clientID)
	notify(ctx, l.publisher, events.LifecycleEvent{
		RequestID:  req.ID,
		ClientID:   clientID,
		Transition: events.TransitionCreated,
		Status:     req.Status.String(),
	})
	return req, nil
}

// ListRequestsForClient returns the client's requests in creation order.
func (l *LedgerService) ListRequestsForClient(ctx context.Context, clientID uint) (model.RequestList, error) {
	if _, err := l.store.Clients().Get(ctx, clientID); err != nil {
		return nil, lookup(err, "client", clientID)
	}
	reqs, err := l.store.Requests().ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests of client %d: %w", clientID, err)
	}
	return reqs, nil
}

func (l *LedgerService) GetRequest(ctx context.Context, id uint) (*model.Request, error) {
	req, err := l.store.Requests().Get(ctx, id)
	if err != nil {
		return nil, lookup(err, "request", id)
	}
	return req, nil
}

// ListBids returns every bid placed on a request owned by the client, in creation order.
func (l *LedgerService) ListBids(ctx context.Context, clientID, requestID uint) (model.BidList, error) {
	if _, err := l.store.Clients().Get(ctx, clientID); err != nil {
		return nil, lookup(err, "client", clientID)
	}
	req, err := l.store.Requests().Get(ctx, requestID)
	if err != nil {
		return nil, lookup(err, "request", requestID)
	}
	if req.ClientID != clientID {
		return nil, notFound("request %d not found for client %d", requestID, clientID)
	}

	bids, err := l.store.Bids().ListByRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids of request %d: %w", requestID, err)
	}
	return bids, nil
}
