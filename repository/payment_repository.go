package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nathangtg/coffee-single-tenant-sub000/models"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	Update(ctx context.Context, p *models.Payment) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type GormPaymentRepository struct {
	db *gorm.DB
}

func NewGormPaymentRepository(db *gorm.DB) PaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Create returns ErrDuplicate when the order already has a payment.
func (r *GormPaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return r.findOne(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *GormPaymentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *GormPaymentRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	return r.findOne(r.db.WithContext(ctx).Where("order_id = ?", orderID))
}

func (r *GormPaymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	return r.findOne(r.db.WithContext(ctx).Where("transaction_id = ?", transactionID))
}

func (r *GormPaymentRepository) findOne(q *gorm.DB) (*models.Payment, error) {
	var p models.Payment
	if err := q.First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *GormPaymentRepository) Update(ctx context.Context, p *models.Payment) error {
	return translate(r.db.WithContext(ctx).Save(p).Error)
}

func (r *GormPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Payment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
