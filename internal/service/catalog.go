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

type UserType string

const (
	UserTypeClient   UserType = "client"
	UserTypeProvider UserType = "provider"
)

// CatalogService keeps the identity records of clients and providers and the
// hardware a provider offers.
type CatalogService struct {
	store  store.Store
	logger *zap.SugaredLogger
}

func NewCatalogService(st store.Store) *CatalogService {
	return &CatalogService{store: st, logger: zap.S().Named("catalog")}
}

// Login creates the client or provider on first sight.
func (c *CatalogService) Login(ctx context.Context, id uint, userType UserType) error {
	switch userType {
	case UserTypeClient:
		_, err := c.UpsertClient(ctx, id)
		return err
	case UserTypeProvider:
		_, err := c.UpsertProvider(ctx, id)
		return err
	default:
		return validation("user_type must be %q or %q, got %q", UserTypeClient, UserTypeProvider, userType)
	}
}

func (c *CatalogService) UpsertClient(ctx context.Context, id uint) (*model.Client, error) {
	if id == 0 {
		return nil, validation("client id must be positive")
	}
	client, err := c.store.Clients().FirstOrCreate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert client %d: %w", id, err)
	}
	c.logger.Debugw("client logged in", "client-id", id)
	return client, nil
}

func (c *CatalogService) UpsertProvider(ctx context.Context, id uint) (*model.Provider, error) {
	if id == 0 {
		return nil, validation("provider id must be positive")
	}
	provider, err := c.store.Providers().FirstOrCreate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert provider %d: %w", id, err)
	}
	c.logger.Debugw("provider logged in", "provider-id", id)
	return provider, nil
}

// PublishSpecs overwrites the provider's capability and makes it eligible for
// bidding again, whatever its previous availability was.
func (c *CatalogService) PublishSpecs(ctx context.Context, providerID uint, specs Specs) (*model.Provider, error) {
	if err := validateStruct(specs); err != nil {
		return nil, err
	}

	err := c.store.Providers().UpdateSpecs(ctx, providerID, specs.Cores, specs.ClockSpeed, specs.Memory)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("provider %d not found", providerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update specs of provider %d: %w", providerID, err)
	}

	provider, err := c.store.Providers().Get(ctx, providerID)
	if err != nil {
		return nil, lookup(err, "provider", providerID)
	}

	c.logger.Infow("provider published specs",
		"provider-id", providerID,
		"cores", specs.Cores,
		"clock-speed", specs.ClockSpeed,
		"memory", specs.Memory)
	return provider, nil
}
