package store

import (
	"context"

	"github.com/dcm-project/hpc-marketplace/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Bid interface {
	Create(ctx context.Context, bid model.Bid) (*model.Bid, error)
	Get(ctx context.Context, id uint) (*model.Bid, error)
	ListByRequest(ctx context.Context, requestID uint) (model.BidList, error)
	// Accept sets accepted=true on a pending bid of the given request. It
	// reports false when the bid was already accepted or belongs elsewhere.
	Accept(ctx context.Context, id, requestID uint) (bool, error)
	AcceptedForRequest(ctx context.Context, requestID uint) (*model.Bid, error)
	// AcceptedByRequest returns the accepted bids of the given requests keyed by request id.
	AcceptedByRequest(ctx context.Context, requestIDs []uint) (map[uint]model.Bid, error)
}

type BidStore struct {
	db *gorm.DB
}

var _ Bid = (*BidStore)(nil)

func NewBid(db *gorm.DB) Bid {
	return &BidStore{db: db}
}

func (s *BidStore) Create(ctx context.Context, bid model.Bid) (*model.Bid, error) {
	bid.Accepted = false
	result := s.db.WithContext(ctx).Omit(clause.Associations).Create(&bid)
	if result.Error != nil {
		return nil, result.Error
	}
	return &bid, nil
}

func (s *BidStore) Get(ctx context.Context, id uint) (*model.Bid, error) {
	var bid model.Bid
	result := s.db.WithContext(ctx).First(&bid, id)
	if result.Error != nil {
		return nil, result.Error
	}
	return &bid, nil
}

func (s *BidStore) ListByRequest(ctx context.Context, requestID uint) (model.BidList, error) {
	var bids model.BidList
	result := s.db.WithContext(ctx).Where("request_id = ?", requestID).Order("id").Find(&bids)
	if result.Error != nil {
		return nil, result.Error
	}
	return bids, nil
}

func (s *BidStore) Accept(ctx context.Context, id, requestID uint) (bool, error) {
	result := s.db.WithContext(ctx).Model(&model.Bid{}).
		Where("id = ? AND request_id = ? AND accepted = ?", id, requestID, false).
		Update("accepted", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (s *BidStore) AcceptedForRequest(ctx context.Context, requestID uint) (*model.Bid, error) {
	var bid model.Bid
	result := s.db.WithContext(ctx).Where("request_id = ? AND accepted = ?", requestID, true).Order("id").First(&bid)
	if result.Error != nil {
		return nil, result.Error
	}
	return &bid, nil
}

func (s *BidStore) AcceptedByRequest(ctx context.Context, requestIDs []uint) (map[uint]model.Bid, error) {
	accepted := make(map[uint]model.Bid, len(requestIDs))
	if len(requestIDs) == 0 {
		return accepted, nil
	}
	var bids model.BidList
	result := s.db.WithContext(ctx).Where("request_id IN ? AND accepted = ?", requestIDs, true).Order("id").Find(&bids)
	if result.Error != nil {
		return nil, result.Error
	}
	for _, bid := range bids {
		if _, ok := accepted[bid.RequestID]; !ok {
			accepted[bid.RequestID] = bid
		}
	}
	return accepted, nil
}
