package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key")
)

// Store hands out repositories bound to one connection or transaction.
// Services never hold a process-wide handle; they receive a Store and open
// transactions through it.
type Store interface {
	// WithinTx runs fn inside one transaction. fn receives a Store bound to
	// that transaction; returning an error rolls everything back.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
	Catalog() CatalogRepository
	Orders() OrderRepository
	Payments() PaymentRepository
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) Catalog() CatalogRepository  { return &GormCatalogRepository{db: s.db} }
func (s *GormStore) Orders() OrderRepository     { return &GormOrderRepository{db: s.db} }
func (s *GormStore) Payments() PaymentRepository { return &GormPaymentRepository{db: s.db} }

// translate maps gorm errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
