package store

import (
	"context"

	"github.com/dcm-project/hpc-marketplace/internal/store/model"
	"gorm.io/gorm"
)

type Client interface {
	Get(ctx context.Context, id uint) (*model.Client, error)
	FirstOrCreate(ctx context.Context, id uint) (*model.Client, error)
}

type ClientStore struct {
	db *gorm.DB
}

var _ Client = (*ClientStore)(nil)

func NewClient(db *gorm.DB) Client {
	return &ClientStore{db: db}
}

func (s *ClientStore) Get(ctx context.Context, id uint) (*model.Client, error) {
	var client model.Client
	result := s.db.WithContext(ctx).First(&client, id)
	if result.Error != nil {
		return nil, result.Error
	}
	return &client, nil
}

func (s *ClientStore) FirstOrCreate(ctx context.Context, id uint) (*model.Client, error) {
	client := model.Client{ID: id}
	result := s.db.WithContext(ctx).Where(model.Client{ID: id}).FirstOrCreate(&client)
	if result.Error != nil {
		return nil, result.Error
	}
	return &client, nil
}

type Provider interface {
	Get(ctx context.Context, id uint) (*model.Provider, error)
	FirstOrCreate(ctx context.Context, id uint) (*model.Provider, error)
	// UpdateSpecs overwrites the capability fields and marks the provider available.
	UpdateSpecs(ctx context.Context, id uint, cores int, clockSpeed float64, memory int) error
	SetAvailable(ctx context.Context, id uint, available bool) error
	// Reserve flips an available provider to unavailable. It reports false
	// when the provider was already reserved.
	Reserve(ctx context.Context, id uint) (bool, error)
}

type ProviderStore struct {
	db *gorm.DB
}

var _ Provider = (*ProviderStore)(nil)

func NewProvider(db *gorm.DB) Provider {
	return &ProviderStore{db: db}
}

func (s *ProviderStore) Get(ctx context.Context, id uint) (*model.Provider, error) {
	var provider model.Provider
	result := s.db.WithContext(ctx).First(&provider, id)
	if result.Error != nil {
		return nil, result.Error
	}
	return &provider, nil
}

func (s *ProviderStore) FirstOrCreate(ctx context.Context, id uint) (*model.Provider, error) {
	provider := model.Provider{ID: id, Available: true}
	result := s.db.WithContext(ctx).Where(model.Provider{ID: id}).FirstOrCreate(&provider)
	if result.Error != nil {
		return nil, result.Error
	}
	return &provider, nil
}

func (s *ProviderStore) UpdateSpecs(ctx context.Context, id uint, cores int, clockSpeed float64, memory int) error {
	result := s.db.WithContext(ctx).Model(&model.Provider{}).Where("id = ?", id).Updates(map[string]any{
		"cores":       cores,
		"clock_speed": clockSpeed,
		"memory":      memory,
		"available":   true,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *ProviderStore) SetAvailable(ctx context.Context, id uint, available bool) error {
	result := s.db.WithContext(ctx).Model(&model.Provider{}).Where("id = ?", id).Update("available", available)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *ProviderStore) Reserve(ctx context.Context, id uint) (bool, error) {
	result := s.db.WithContext(ctx).Model(&model.Provider{}).
		Where("id = ? AND available = ?", id, true).
		Update("available", false)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
