package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment states. The stored vocabulary matches the payments API contract;
// the orders service speaks a different one, mapped in the notifier.
const (
	PaymentStatePending   = "pendiente"
	PaymentStateCompleted = "completado"
	PaymentStateFailed    = "fallido"
)

// ValidPaymentState reports whether s is a known payment state.
func ValidPaymentState(s string) bool {
	switch s {
	case PaymentStatePending, PaymentStateCompleted, PaymentStateFailed:
		return true
	}
	return false
}

// Payment is the durable record of a card charge decision. The full card
// number and CVV are never stored, only brand and last four digits.
// Reference and PaidAt are set exactly when the payment enters the
// completed state.
type Payment struct {
	BaseModel
	OrderRef   string     `gorm:"index" json:"order_ref"`
	UserID     uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	Amount     float64    `json:"amount"`
	State      string     `gorm:"index" json:"state"`
	Method     string     `json:"method"`
	CardBrand  string     `json:"card_brand"`
	Last4      string     `gorm:"size:4" json:"last4"`
	HolderName string     `json:"holder_name"`
	Email      string     `json:"email"`
	Reference  string     `json:"reference"`
	PaidAt     *time.Time `json:"paid_at"`
}
