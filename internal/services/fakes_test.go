package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/example/tienda/internal/models"
	"github.com/example/tienda/internal/store"
)

// In-memory stand-ins for the store interfaces and outbound clients.

type memPaymentStore struct {
	payments map[uuid.UUID]models.Payment
}

func newMemPaymentStore() *memPaymentStore {
	return &memPaymentStore{payments: make(map[uuid.UUID]models.Payment)}
}

func (m *memPaymentStore) Create(_ context.Context, p *models.Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.payments[p.ID] = *p
	return nil
}

func (m *memPaymentStore) Save(_ context.Context, p *models.Payment) error {
	if _, ok := m.payments[p.ID]; !ok {
		return errors.New("save before create")
	}
	p.UpdatedAt = time.Now()
	m.payments[p.ID] = *p
	return nil
}

func (m *memPaymentStore) FindByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (m *memPaymentStore) FindByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, int64, error) {
	return m.filter(func(p models.Payment) bool { return p.UserID == userID }, limit, offset)
}

func (m *memPaymentStore) FindByOrder(_ context.Context, orderRef string, limit, offset int) ([]models.Payment, int64, error) {
	return m.filter(func(p models.Payment) bool { return p.OrderRef == orderRef }, limit, offset)
}

func (m *memPaymentStore) filter(keep func(models.Payment) bool, limit, offset int) ([]models.Payment, int64, error) {
	var matched []models.Payment
	for _, p := range m.payments {
		if keep(p) {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (m *memPaymentStore) Stats(_ context.Context) (*store.PaymentStats, error) {
	stats := &store.PaymentStats{}
	for _, p := range m.payments {
		stats.Total++
		stats.AmountTotal += p.Amount
		switch p.State {
		case models.PaymentStateCompleted:
			stats.Completed++
			stats.AmountCompleted += p.Amount
		case models.PaymentStatePending:
			stats.Pending++
		case models.PaymentStateFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

type memCartLedger struct {
	items  []models.CartItem
	orders map[uuid.UUID]models.LocalOrder
}

func newMemCartLedger() *memCartLedger {
	return &memCartLedger{orders: make(map[uuid.UUID]models.LocalOrder)}
}

func (m *memCartLedger) CartItems(_ context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	for _, item := range m.items {
		if item.UserID == userID {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *memCartLedger) PutCartItem(_ context.Context, item *models.CartItem) error {
	for i, existing := range m.items {
		if existing.UserID == item.UserID && existing.ProductID == item.ProductID {
			item.ID = existing.ID
			m.items[i] = *item
			return nil
		}
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	m.items = append(m.items, *item)
	return nil
}

func (m *memCartLedger) RemoveCartItem(_ context.Context, userID uuid.UUID, productID string) error {
	kept := m.items[:0]
	for _, item := range m.items {
		if !(item.UserID == userID && item.ProductID == productID) {
			kept = append(kept, item)
		}
	}
	m.items = kept
	return nil
}

func (m *memCartLedger) ClearCart(_ context.Context, userID uuid.UUID) error {
	kept := m.items[:0]
	for _, item := range m.items {
		if item.UserID != userID {
			kept = append(kept, item)
		}
	}
	m.items = kept
	return nil
}

func (m *memCartLedger) CreateOrder(_ context.Context, order *models.LocalOrder) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	m.orders[order.ID] = *order
	return nil
}

func (m *memCartLedger) SaveOrder(_ context.Context, order *models.LocalOrder) error {
	if _, ok := m.orders[order.ID]; !ok {
		return errors.New("save before create")
	}
	m.orders[order.ID] = *order
	return nil
}

func (m *memCartLedger) Orders(_ context.Context, userID uuid.UUID) ([]models.LocalOrder, error) {
	var orders []models.LocalOrder
	for _, order := range m.orders {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].PlacedAt.After(orders[j].PlacedAt)
	})
	return orders, nil
}

func (m *memCartLedger) OrderByID(_ context.Context, userID, orderID uuid.UUID) (*models.LocalOrder, error) {
	order, ok := m.orders[orderID]
	if !ok || order.UserID != userID {
		return nil, store.ErrNotFound
	}
	return &order, nil
}

type notifyCall struct {
	orderRef string
	state    string
}

type fakeNotifier struct {
	calls []notifyCall
	err   error
}

func (f *fakeNotifier) NotifyPayment(_ context.Context, orderRef, state string) error {
	f.calls = append(f.calls, notifyCall{orderRef: orderRef, state: state})
	return f.err
}

type adjustCall struct {
	mode      string
	productID string
	quantity  int
}

type fakeInventory struct {
	calls []adjustCall
	err   error
}

func (f *fakeInventory) Increase(_ context.Context, productID string, quantity int) error {
	f.calls = append(f.calls, adjustCall{mode: "increase", productID: productID, quantity: quantity})
	return f.err
}

func (f *fakeInventory) Decrease(_ context.Context, productID string, quantity int) error {
	f.calls = append(f.calls, adjustCall{mode: "decrease", productID: productID, quantity: quantity})
	return f.err
}

type staticDecider struct {
	approve bool
}

func (d staticDecider) Approve(string) bool {
	return d.approve
}
