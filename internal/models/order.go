package models

import (
	"time"

	"github.com/google/uuid"
)

// Local order statuses. A local order is created at checkout and is never
// deleted; a successful return flips it to returned exactly once.
const (
	LocalOrderStatusCompleted = "completed"
	LocalOrderStatusReturned  = "returned"
)

// LocalOrder is the checkout coordinator's own ledger entry: an optimistic
// snapshot of the cart at checkout time, independent of the authoritative
// orders service.
type LocalOrder struct {
	BaseModel
	UserID     uuid.UUID        `gorm:"type:uuid;index" json:"user_id"`
	Status     string           `json:"status"`
	Total      float64          `json:"total"`
	CanReturn  bool             `json:"canReturn"`
	PlacedAt   time.Time        `json:"date"`
	ReturnedAt *time.Time       `json:"returnDate"`
	Items      []LocalOrderItem `json:"items,omitempty"`
}

// LocalOrderItem is a snapshot of one cart line at checkout time.
type LocalOrderItem struct {
	BaseModel
	LocalOrderID uuid.UUID `gorm:"type:uuid;index" json:"local_order_id"`
	ProductID    string    `json:"product_id"`
	Name         string    `json:"name"`
	UnitPrice    float64   `json:"price"`
	Quantity     int       `json:"quantity"`
}
