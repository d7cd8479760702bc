package domain

import "time"

// CartItem is one line of a user's cart. UnitPriceCents is an optional
// price snapshot taken at add-to-cart time; zero means "use the live
// catalog price at checkout".
type CartItem struct {
	UserID         string
	ProductID      string
	Quantity       int
	UnitPriceCents int64
	CreatedAt      time.Time
}
