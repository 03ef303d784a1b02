package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dcm-project/hpc-marketplace/internal/events"
	"github.com/dcm-project/hpc-marketplace/internal/store"
	"github.com/dcm-project/hpc-marketplace/internal/store/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Eligible reports whether the provider may see and bid on the request: the
// request must still be biddable and fit the provider on every dimension.
// A provider that never published specs is eligible for nothing.
func Eligible(provider model.Provider, req model.Request) bool {
	if !req.Status.Biddable() || !provider.HasSpecs() {
		return false
	}
	return req.Cores <= *provider.Cores &&
		req.ClockSpeed <= *provider.ClockSpeed &&
		req.Memory <= *provider.Memory
}

// MatchingEngine drives a request through OPEN -> BIDDING -> SCHEDULED -> DONE.
// Every transition runs in one store transaction.
type MatchingEngine struct {
	store     store.Store
	publisher events.Publisher
	logger    *zap.SugaredLogger
	now       func() time.Time
}

func NewMatchingEngine(st store.Store, publisher events.Publisher) *MatchingEngine {
	return &MatchingEngine{
		store:     st,
		publisher: publisher,
		logger:    zap.S().Named("matching"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ListEligibleRequests returns the biddable requests the provider's hardware can serve.
func (m *MatchingEngine) ListEligibleRequests(ctx context.Context, providerID uint) (model.RequestList, error) {
	provider, err := m.store.Providers().Get(ctx, providerID)
	if err != nil {
		return nil, lookup(err, "provider", providerID)
	}
	if !provider.Available {
		return nil, unavailable("provider %d is currently unavailable", providerID)
	}

	open, err := m.store.Requests().ListByStatus(ctx, model.BiddableStatuses...)
	if err != nil {
		return nil, fmt.Errorf("failed to list biddable requests: %w", err)
	}

	eligible := make(model.RequestList, 0, len(open))
	for _, req := range open {
		if Eligible(*provider, req) {
			eligible = append(eligible, req)
		}
	}
	return eligible, nil
}

// SubmitBid records a price offer and moves the request into BIDDING.
func (m *MatchingEngine) SubmitBid(ctx context.Context, providerID, requestID uint, price float64) (*model.Bid, error) {
	if err := validateStruct(bidOffer{Price: price}); err != nil {
		return nil, err
	}

	var (
		bid        *model.Bid
		prevStatus model.RequestStatus
	)
	err := m.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.Providers().Get(ctx, providerID); err != nil {
			return lookup(err, "provider", providerID)
		}
		req, err := tx.Requests().Get(ctx, requestID)
		if err != nil {
			return lookup(err, "request", requestID)
		}
		if !req.Status.Biddable() {
			return invalidState("request %d is %s and not open for bidding", requestID, req.Status)
		}
		prevStatus = req.Status

		bid, err = tx.Bids().Create(ctx, model.Bid{
			RequestID:  requestID,
			ProviderID: providerID,
			Price:      price,
		})
		if err != nil {
			return fmt.Errorf("failed to create bid: %w", err)
		}

		ok, err := tx.Requests().Transition(ctx, requestID, model.StatusBidding, model.BiddableStatuses...)
		if err != nil {
			return fmt.Errorf("failed to move request %d to bidding: %w", requestID, err)
		}
		if !ok {
			return invalidState("request %d is no longer open for bidding", requestID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Infow("bid submitted", "bid-id", bid.ID, "request-id", requestID, "provider-id", providerID, "price", price)
	if prevStatus == model.StatusOpen {
		notify(ctx, m.publisher, events.LifecycleEvent{
			RequestID:  requestID,
			ProviderID: providerID,
			BidID:      bid.ID,
			Transition: events.TransitionBidding,
			Status:     model.StatusBidding.String(),
		})
	}
	return bid, nil
}

// AcceptBid awards the request to the bid's provider. The client must own the
// request, the bid must belong to it, the request must still be biddable and
// the provider must be free. The bid, request and provider change together.
func (m *MatchingEngine) AcceptBid(ctx context.Context, clientID, requestID, bidID uint) (*model.Bid, error) {
	var bid *model.Bid
	err := m.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.Clients().Get(ctx, clientID); err != nil {
			return lookup(err, "client", clientID)
		}
		req, err := tx.Requests().Get(ctx, requestID)
		if err != nil {
			return lookup(err, "request", requestID)
		}
		if req.ClientID != clientID {
			return notFound("request %d not found for client %d", requestID, clientID)
		}
		bid, err = tx.Bids().Get(ctx, bidID)
		if err != nil {
			return lookup(err, "bid", bidID)
		}
		if bid.RequestID != requestID {
			return notFound("bid %d not found for request %d", bidID, requestID)
		}
		if !req.Status.Biddable() {
			return invalidState("request %d is %s, bids can no longer be accepted", requestID, req.Status)
		}

		ok, err := tx.Requests().Transition(ctx, requestID, model.StatusScheduled, model.BiddableStatuses...)
		if err != nil {
			return fmt.Errorf("failed to schedule request %d: %w", requestID, err)
		}
		if !ok {
			return invalidState("request %d already has an accepted bid", requestID)
		}

		ok, err = tx.Bids().Accept(ctx, bidID, requestID)
		if err != nil {
			return fmt.Errorf("failed to accept bid %d: %w", bidID, err)
		}
		if !ok {
			return invalidState("bid %d is already accepted", bidID)
		}

		ok, err = tx.Providers().Reserve(ctx, bid.ProviderID)
		if err != nil {
			return fmt.Errorf("failed to reserve provider %d: %w", bid.ProviderID, err)
		}
		if !ok {
			return invalidState("provider %d is not available", bid.ProviderID)
		}

		bid.Accepted = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Infow("bid accepted", "bid-id", bidID, "request-id", requestID, "provider-id", bid.ProviderID)
	notify(ctx, m.publisher, events.LifecycleEvent{
		RequestID:  requestID,
		ClientID:   clientID,
		ProviderID: bid.ProviderID,
		BidID:      bidID,
		Transition: events.TransitionScheduled,
		Status:     model.StatusScheduled.String(),
	})
	return bid, nil
}

// ReportResult records the execution output of a scheduled request, marks it
// DONE and frees its provider. Only the provider of the accepted bid may
// report. Repeating a report with the same output on a DONE request succeeds
// without changing anything; a different output is rejected.
func (m *MatchingEngine) ReportResult(ctx context.Context, requestID, providerID uint, output string) (*model.Request, error) {
	var (
		req       *model.Request
		completed bool
	)
	err := m.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		req, err = tx.Requests().Get(ctx, requestID)
		if err != nil {
			return lookup(err, "request", requestID)
		}
		if _, err := tx.Providers().Get(ctx, providerID); err != nil {
			return lookup(err, "provider", providerID)
		}
		if req.Status.Biddable() {
			return invalidState("request %d is %s and has not been scheduled", requestID, req.Status)
		}

		accepted, err := tx.Bids().AcceptedForRequest(ctx, requestID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalidState("request %d has no accepted bid", requestID)
		}
		if err != nil {
			return fmt.Errorf("failed to load accepted bid of request %d: %w", requestID, err)
		}
		if accepted.ProviderID != providerID {
			return invalidState("provider %d is not assigned to request %d", providerID, requestID)
		}

		if req.Status == model.StatusDone {
			if req.ResultOutput != nil && *req.ResultOutput == output {
				return nil
			}
			return invalidState("request %d already has a different result", requestID)
		}

		ok, err := tx.Requests().Complete(ctx, requestID, output, m.now())
		if err != nil {
			return fmt.Errorf("failed to complete request %d: %w", requestID, err)
		}
		if !ok {
			return invalidState("request %d is no longer scheduled", requestID)
		}
		if err := tx.Providers().SetAvailable(ctx, providerID, true); err != nil {
			return lookup(err, "provider", providerID)
		}

		req, err = tx.Requests().Get(ctx, requestID)
		if err != nil {
			return lookup(err, "request", requestID)
		}
		completed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !completed {
		m.logger.Infow("duplicate result report ignored", "request-id", requestID, "provider-id", providerID)
		return req, nil
	}

	m.logger.Infow("result recorded", "request-id", requestID, "provider-id", providerID, "output-size", len(output))
	notify(ctx, m.publisher, events.LifecycleEvent{
		RequestID:  requestID,
		ClientID:   req.ClientID,
		ProviderID: providerID,
		Transition: events.TransitionDone,
		Status:     model.StatusDone.String(),
	})
	return req, nil
}
