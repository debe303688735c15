package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/tienda/internal/models"
)

// CartLedger holds a user's open cart and the local order history written at
// checkout. Every mutation is persisted immediately; the checkout coordinator
// never keeps cart state in memory between requests.
type CartLedger interface {
	CartItems(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	PutCartItem(ctx context.Context, item *models.CartItem) error
	RemoveCartItem(ctx context.Context, userID uuid.UUID, productID string) error
	ClearCart(ctx context.Context, userID uuid.UUID) error

	CreateOrder(ctx context.Context, order *models.LocalOrder) error
	SaveOrder(ctx context.Context, order *models.LocalOrder) error
	Orders(ctx context.Context, userID uuid.UUID) ([]models.LocalOrder, error)
	OrderByID(ctx context.Context, userID, orderID uuid.UUID) (*models.LocalOrder, error)
}

type gormCartLedger struct {
	db *gorm.DB
}

// NewCartLedger returns a CartLedger backed by the given database.
func NewCartLedger(db *gorm.DB) CartLedger {
	return &gormCartLedger{db: db}
}

func (l *gormCartLedger) CartItems(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (l *gormCartLedger) PutCartItem(ctx context.Context, item *models.CartItem) error {
	var existing models.CartItem
	err := l.db.WithContext(ctx).
		First(&existing, "user_id = ? AND product_id = ?", item.UserID, item.ProductID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return l.db.WithContext(ctx).Create(item).Error
		}
		return err
	}

	existing.Name = item.Name
	existing.UnitPrice = item.UnitPrice
	existing.Quantity = item.Quantity
	if err := l.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return err
	}
	*item = existing
	return nil
}

func (l *gormCartLedger) RemoveCartItem(ctx context.Context, userID uuid.UUID, productID string) error {
	return l.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItem{}).Error
}

func (l *gormCartLedger) ClearCart(ctx context.Context, userID uuid.UUID) error {
	return l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
}

func (l *gormCartLedger) CreateOrder(ctx context.Context, order *models.LocalOrder) error {
	return l.db.WithContext(ctx).Create(order).Error
}

func (l *gormCartLedger) SaveOrder(ctx context.Context, order *models.LocalOrder) error {
	return l.db.WithContext(ctx).Save(order).Error
}

func (l *gormCartLedger) Orders(ctx context.Context, userID uuid.UUID) ([]models.LocalOrder, error) {
	var orders []models.LocalOrder
	if err := l.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("placed_at desc").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (l *gormCartLedger) OrderByID(ctx context.Context, userID, orderID uuid.UUID) (*models.LocalOrder, error) {
	var order models.LocalOrder
	if err := l.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ? AND user_id = ?", orderID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}
