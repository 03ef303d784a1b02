package store

import (
	"context"
	"time"

	"github.com/dcm-project/hpc-marketplace/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Request interface {
	Create(ctx context.Context, req model.Request) (*model.Request, error)
	Get(ctx context.Context, id uint) (*model.Request, error)
	ListByClient(ctx context.Context, clientID uint) (model.RequestList, error)
	ListByStatus(ctx context.Context, statuses ...model.RequestStatus) (model.RequestList, error)
	// Transition moves a request to status to if its current status is one of
	// from. It reports false when the request was in any other status.
	Transition(ctx context.Context, id uint, to model.RequestStatus, from ...model.RequestStatus) (bool, error)
	// Complete records the execution output of a SCHEDULED request and marks it DONE.
	Complete(ctx context.Context, id uint, output string, completedAt time.Time) (bool, error)
	// LatestScheduledForProvider returns the SCHEDULED request with the highest
	// id whose accepted bid belongs to the provider.
	LatestScheduledForProvider(ctx context.Context, providerID uint) (*model.Request, error)
}

type RequestStore struct {
	db *gorm.DB
}

var _ Request = (*RequestStore)(nil)

func NewRequest(db *gorm.DB) Request {
	return &RequestStore{db: db}
}

func (s *RequestStore) Create(ctx context.Context, req model.Request) (*model.Request, error) {
	if req.Status == "" {
		req.Status = model.StatusOpen
	}
	result := s.db.WithContext(ctx).Omit(clause.Associations).Create(&req)
	if result.Error != nil {
		return nil, result.Error
	}
	return &req, nil
}

func (s *RequestStore) Get(ctx context.Context, id uint) (*model.Request, error) {
	var req model.Request
	result := s.db.WithContext(ctx).First(&req, id)
	if result.Error != nil {
		return nil, result.Error
	}
	return &req, nil
}

func (s *RequestStore) ListByClient(ctx context.Context, clientID uint) (model.RequestList, error) {
	var reqs model.RequestList
	result := s.db.WithContext(ctx).Where("client_id = ?", clientID).Order("id").Find(&reqs)
	if result.Error != nil {
		return nil, result.Error
	}
	return reqs, nil
}

func (s *RequestStore) ListByStatus(ctx context.Context, statuses ...model.RequestStatus) (model.RequestList, error) {
	var reqs model.RequestList
	result := s.db.WithContext(ctx).Where("status IN ?", statuses).Order("id").Find(&reqs)
	if result.Error != nil {
		return nil, result.Error
	}
	return reqs, nil
}

func (s *RequestStore) Transition(ctx context.Context, id uint, to model.RequestStatus, from ...model.RequestStatus) (bool, error) {
	result := s.db.WithContext(ctx).Model(&model.Request{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (s *RequestStore) Complete(ctx context.Context, id uint, output string, completedAt time.Time) (bool, error) {
	result := s.db.WithContext(ctx).Model(&model.Request{}).
		Where("id = ? AND status = ?", id, model.StatusScheduled).
		Updates(map[string]any{
			"status":        model.StatusDone,
			"result_output": output,
			"completed_at":  completedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (s *RequestStore) LatestScheduledForProvider(ctx context.Context, providerID uint) (*model.Request, error) {
	var req model.Request
	result := s.db.WithContext(ctx).
		Joins("JOIN bids ON bids.request_id = requests.id").
		Where("bids.provider_id = ? AND bids.accepted = ? AND requests.status = ?", providerID, true, model.StatusScheduled).
		Order("requests.id DESC").
		First(&req)
	if result.Error != nil {
		return nil, result.Error
	}
	return &req, nil
}
