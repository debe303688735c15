package models

import "github.com/google/uuid"

// CartItem is one line of a user's open cart. ProductID is the inventory
// service's identifier and is stored opaquely.
type CartItem struct {
	BaseModel
	UserID    uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	ProductID string    `gorm:"index" json:"product_id"`
	Name      string    `json:"name"`
	UnitPrice float64   `json:"price"`
	Quantity  int       `json:"quantity"`
}
