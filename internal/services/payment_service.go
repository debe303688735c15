package services

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/example/tienda/internal/card"
	"github.com/example/tienda/internal/models"
	"github.com/example/tienda/internal/store"
)

// PaymentService owns the payment state machine: pending on creation, then
// exactly one transition to completed or failed in the authorization flow.
// The manual status edit is a second write path into the same machine; both
// go through applyTransition so the notification guard lives in one place.
type PaymentService struct {
	store    store.PaymentStore
	decider  AuthorizationDecider
	notifier OrderNotifier
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(st store.PaymentStore, decider AuthorizationDecider, notifier OrderNotifier) *PaymentService {
	return &PaymentService{store: st, decider: decider, notifier: notifier}
}

// AuthorizeRequest carries the submitted charge. The raw card number and CVV
// live only in this struct; they are validated, reduced to brand and last
// four digits, and never persisted.
type AuthorizeRequest struct {
	OrderRef   string
	Amount     float64
	CardNumber string
	CVV        string
	Expiry     string
	HolderName string
	Email      string
}

// Authorize validates the submitted card, persists a pending payment and
// runs the authorization decision. Validation order is number, then CVV,
// then expiry; callers observe the first failing check. On approval the
// payment completes and the orders service is notified best-effort; the
// notifier's failure never rolls the payment back. On decline the persisted
// payment moves to failed and a DeclineError is returned.
func (s *PaymentService) Authorize(ctx context.Context, userID uuid.UUID, req AuthorizeRequest) (*models.Payment, error) {
	if req.OrderRef == "" || req.Amount == 0 {
		return nil, validationErr("order reference and amount are required")
	}
	if req.Amount < 0 || math.IsInf(req.Amount, 0) || math.IsNaN(req.Amount) {
		return nil, validationErr("amount must be greater than zero")
	}
	if req.CardNumber == "" || req.CVV == "" || req.Expiry == "" || req.HolderName == "" {
		return nil, validationErr("missing card data")
	}

	number := card.Normalize(req.CardNumber)
	if res := card.ValidateNumber(number); !res.Valid {
		return nil, validationErr(res.Reason)
	}

	brand := card.Brand(number)
	if res := card.ValidateCVV(req.CVV, brand); !res.Valid {
		return nil, validationErr(res.Reason)
	}
	if res := card.ValidateExpiry(req.Expiry); !res.Valid {
		return nil, validationErr(res.Reason)
	}

	payment := &models.Payment{
		OrderRef:   req.OrderRef,
		UserID:     userID,
		Amount:     req.Amount,
		State:      models.PaymentStatePending,
		Method:     "tarjeta",
		CardBrand:  brand,
		Last4:      number[len(number)-4:],
		HolderName: req.HolderName,
		Email:      req.Email,
	}
	if err := s.store.Create(ctx, payment); err != nil {
		return nil, err
	}

	if s.decider.Approve(number) {
		notify := applyTransition(payment, models.PaymentStateCompleted, time.Now())
		if err := s.store.Save(ctx, payment); err != nil {
			return nil, err
		}
		if notify {
			s.notifyBestEffort(ctx, payment)
		}
		return payment, nil
	}

	applyTransition(payment, models.PaymentStateFailed, time.Now())
	if err := s.store.Save(ctx, payment); err != nil {
		return nil, err
	}
	return payment, &DeclineError{Payment: payment}
}

// UpdateStatus is the manual reconciliation path: it moves an existing
// payment to the given state directly. The owner check runs after the
// existence check. The orders service is notified only when the state
// actually changed to completed and no paidAt had been stamped before.
func (s *PaymentService) UpdateStatus(ctx context.Context, userID, paymentID uuid.UUID, state string) (*models.Payment, error) {
	if !models.ValidPaymentState(state) {
		return nil, validationErr("invalid state")
	}

	payment, err := s.store.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if payment.UserID != userID {
		return nil, ErrNotOwner
	}

	notify := applyTransition(payment, state, time.Now())
	if err := s.store.Save(ctx, payment); err != nil {
		return nil, err
	}
	if notify {
		s.notifyBestEffort(ctx, payment)
	}
	return payment, nil
}

// applyTransition moves p into the target state. Reference and paidAt exist
// exactly while the payment is completed: they are stamped on entering the
// state and cleared when an edit moves the payment out of it, which keeps
// the reference/paidAt <=> completed invariant across both write paths. The
// return value says whether the orders service should be told: only a real
// change into completed on a payment with no paidAt already stamped, so two
// racing writers produce at most one notification per observed transition.
func applyTransition(p *models.Payment, target string, now time.Time) bool {
	previous := p.State
	p.State = target

	if target != models.PaymentStateCompleted {
		p.PaidAt = nil
		p.Reference = ""
		return false
	}

	if p.PaidAt != nil {
		return false
	}
	p.PaidAt = &now
	p.Reference = GenerateReference()
	return previous != target
}

func (s *PaymentService) notifyBestEffort(ctx context.Context, p *models.Payment) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyPayment(ctx, p.OrderRef, p.State); err != nil {
		log.Printf("[Payments] order %s not notified: %v", p.OrderRef, err)
	}
}

// GetForUser returns a payment by id with the ownership check applied after
// the existence check.
func (s *PaymentService) GetForUser(ctx context.Context, userID, paymentID uuid.UUID) (*models.Payment, error) {
	payment, err := s.store.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if payment.UserID != userID {
		return nil, ErrNotOwner
	}
	return payment, nil
}

// ListByUser returns the caller's payment history, newest first.
func (s *PaymentService) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, int64, error) {
	return s.store.FindByUser(ctx, userID, limit, offset)
}

// ListByOrder returns payments recorded against an order reference.
func (s *PaymentService) ListByOrder(ctx context.Context, orderRef string, limit, offset int) ([]models.Payment, int64, error) {
	return s.store.FindByOrder(ctx, orderRef, limit, offset)
}

// Stats aggregates counts and amount sums over all payments.
func (s *PaymentService) Stats(ctx context.Context) (*store.PaymentStats, error) {
	return s.store.Stats(ctx)
}
