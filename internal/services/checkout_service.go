package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/tienda/internal/models"
	"github.com/example/tienda/internal/store"
)

// CheckoutService coordinates the cart, the local order ledger and the
// inventory service. Checkout succeeds once the local order row exists;
// stock adjustments are best-effort side calls issued sequentially, one per
// line item, and their failures never surface to the caller. The local
// ledger and the inventory ledger can therefore diverge under partial
// failure; that trade-off is deliberate.
type CheckoutService struct {
	ledger    store.CartLedger
	inventory InventoryAdjuster
}

// NewCheckoutService constructs a CheckoutService.
func NewCheckoutService(ledger store.CartLedger, inventory InventoryAdjuster) *CheckoutService {
	return &CheckoutService{ledger: ledger, inventory: inventory}
}

// CartItemRequest is one product added to or updated in a cart.
type CartItemRequest struct {
	ProductID string
	Name      string
	UnitPrice float64
	Quantity  int
}

// CartTotal recomputes the cart total from its lines. The total is never
// stored independently, so it cannot drift from the items.
func CartTotal(items []models.CartItem) float64 {
	var total float64
	for _, item := range items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return total
}

// Cart returns the user's open cart.
func (s *CheckoutService) Cart(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	return s.ledger.CartItems(ctx, userID)
}

// AddItem puts a product in the cart, merging quantities when the product is
// already there.
func (s *CheckoutService) AddItem(ctx context.Context, userID uuid.UUID, req CartItemRequest) (*models.CartItem, error) {
	if req.ProductID == "" {
		return nil, validationErr("product id is required")
	}
	if req.Quantity <= 0 {
		return nil, validationErr("quantity must be greater than zero")
	}

	quantity := req.Quantity
	items, err := s.ledger.CartItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, existing := range items {
		if existing.ProductID == req.ProductID {
			quantity += existing.Quantity
			break
		}
	}

	item := &models.CartItem{
		UserID:    userID,
		ProductID: req.ProductID,
		Name:      req.Name,
		UnitPrice: req.UnitPrice,
		Quantity:  quantity,
	}
	if err := s.ledger.PutCartItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateQuantity sets a cart line's quantity; zero or less removes the line.
func (s *CheckoutService) UpdateQuantity(ctx context.Context, userID uuid.UUID, productID string, quantity int) error {
	if productID == "" {
		return validationErr("product id is required")
	}
	if quantity <= 0 {
		return s.ledger.RemoveCartItem(ctx, userID, productID)
	}

	items, err := s.ledger.CartItems(ctx, userID)
	if err != nil {
		return err
	}
	for _, existing := range items {
		if existing.ProductID == productID {
			existing.Quantity = quantity
			return s.ledger.PutCartItem(ctx, &existing)
		}
	}
	return validationErr("product not in cart")
}

// RemoveItem drops a product from the cart.
func (s *CheckoutService) RemoveItem(ctx context.Context, userID uuid.UUID, productID string) error {
	return s.ledger.RemoveCartItem(ctx, userID, productID)
}

// Checkout snapshots the cart into a new local order, then issues one stock
// decrement per line item. Per-item failures are logged and skipped; the
// order stands regardless, and the cart is cleared unconditionally. The
// order row is created before any inventory call is attempted.
func (s *CheckoutService) Checkout(ctx context.Context, userID uuid.UUID) (*models.LocalOrder, error) {
	items, err := s.ledger.CartItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, validationErr("cart is empty")
	}

	order := &models.LocalOrder{
		UserID:    userID,
		Status:    models.LocalOrderStatusCompleted,
		Total:     CartTotal(items),
		CanReturn: true,
		PlacedAt:  time.Now(),
	}
	for _, item := range items {
		order.Items = append(order.Items, models.LocalOrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}

	if err := s.ledger.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	for _, item := range order.Items {
		if err := s.inventory.Decrease(ctx, item.ProductID, item.Quantity); err != nil {
			log.Printf("[Checkout] stock decrease failed for product %s: %v", item.ProductID, err)
		}
	}

	if err := s.ledger.ClearCart(ctx, userID); err != nil {
		log.Printf("[Checkout] cart not cleared for user %s: %v", userID, err)
	}

	return order, nil
}

// ReturnOrder accepts a return for a returnable order, issuing one stock
// increment per snapshotted item with the same best-effort semantics as
// checkout. The ledger row is updated before the inventory calls.
func (s *CheckoutService) ReturnOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.LocalOrder, error) {
	order, err := s.ledger.OrderByID(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !order.CanReturn {
		return nil, ErrCannotReturn
	}

	now := time.Now()
	order.Status = models.LocalOrderStatusReturned
	order.CanReturn = false
	order.ReturnedAt = &now
	if err := s.ledger.SaveOrder(ctx, order); err != nil {
		return nil, err
	}

	for _, item := range order.Items {
		if err := s.inventory.Increase(ctx, item.ProductID, item.Quantity); err != nil {
			log.Printf("[Checkout] stock increase failed for product %s: %v", item.ProductID, err)
		}
	}

	return order, nil
}

// Orders returns the user's local order history, newest first.
func (s *CheckoutService) Orders(ctx context.Context, userID uuid.UUID) ([]models.LocalOrder, error) {
	return s.ledger.Orders(ctx, userID)
}
