package store

import (
	"context"

	"gorm.io/gorm"
)

type Store interface {
	Close() error
	Clients() Client
	Providers() Provider
	Requests() Request
	Bids() Bid
	// Transaction runs fn against a Store bound to a single database
	// transaction. Returning an error from fn rolls the transaction back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type DataStore struct {
	db        *gorm.DB
	clients   Client
	providers Provider
	requests  Request
	bids      Bid
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:        db,
		clients:   NewClient(db),
		providers: NewProvider(db),
		requests:  NewRequest(db),
		bids:      NewBid(db),
	}
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *DataStore) Clients() Client {
	return s.clients
}

func (s *DataStore) Providers() Provider {
	return s.providers
}

func (s *DataStore) Requests() Request {
	return s.requests
}

func (s *DataStore) Bids() Bid {
	return s.bids
}

func (s *DataStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
