// Package store owns durable state: the payment table and the cart/order
// ledger. Services depend on the interfaces here, never on gorm directly.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/tienda/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// PaymentStats aggregates counts and sums over the whole payment table.
type PaymentStats struct {
	Total           int64
	Completed       int64
	Pending         int64
	Failed          int64
	AmountTotal     float64
	AmountCompleted float64
}

// PaymentStore is the durable record of payments. It is owned exclusively by
// the payments component; other services only read projections via the API.
type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) error
	Save(ctx context.Context, p *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, int64, error)
	FindByOrder(ctx context.Context, orderRef string, limit, offset int) ([]models.Payment, int64, error)
	Stats(ctx context.Context) (*PaymentStats, error)
}

type gormPaymentStore struct {
	db *gorm.DB
}

// NewPaymentStore returns a PaymentStore backed by the given database.
func NewPaymentStore(db *gorm.DB) PaymentStore {
	return &gormPaymentStore{db: db}
}

func (s *gormPaymentStore) Create(ctx context.Context, p *models.Payment) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *gormPaymentStore) Save(ctx context.Context, p *models.Payment) error {
	return s.db.WithContext(ctx).Save(p).Error
}

func (s *gormPaymentStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (s *gormPaymentStore) FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Payment{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []models.Payment
	if err := query.Order("created_at desc").
		Limit(limit).Offset(offset).
		Find(&payments).Error; err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}

func (s *gormPaymentStore) FindByOrder(ctx context.Context, orderRef string, limit, offset int) ([]models.Payment, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Payment{}).Where("order_ref = ?", orderRef)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []models.Payment
	if err := query.Order("paid_at desc nulls last, created_at desc").
		Limit(limit).Offset(offset).
		Find(&payments).Error; err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}

func (s *gormPaymentStore) Stats(ctx context.Context) (*PaymentStats, error) {
	db := s.db.WithContext(ctx)
	stats := &PaymentStats{}

	if err := db.Model(&models.Payment{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	counts := []struct {
		state string
		dest  *int64
	}{
		{models.PaymentStateCompleted, &stats.Completed},
		{models.PaymentStatePending, &stats.Pending},
		{models.PaymentStateFailed, &stats.Failed},
	}
	for _, c := range counts {
		if err := db.Model(&models.Payment{}).Where("state = ?", c.state).Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	if err := db.Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.AmountTotal).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Payment{}).
		Where("state = ?", models.PaymentStateCompleted).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.AmountCompleted).Error; err != nil {
		return nil, err
	}

	return stats, nil
}
