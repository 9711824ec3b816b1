package cart

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart      = errors.New("cart is empty, nothing to checkout")
	ErrNoUserSelected = errors.New("no user selected")
	ErrItemNotFound   = errors.New("item not in cart")
)

// StockExceededError reports a quantity request that exceeds the last
// known inventory figure. Never sent over the network.
type StockExceededError struct {
	ProductID int64
	Name      string
	Requested int
	Available int
}

func (e *StockExceededError) Error() string {
	return fmt.Sprintf("not enough stock for %s: requested %d, available %d", e.Name, e.Requested, e.Available)
}

// DiscontinuedError reports a cart item whose product no longer appears
// in the latest catalog snapshot. Checkout refuses such carts until the
// user removes the item.
type DiscontinuedError struct {
	ProductID int64
	Name      string
}

func (e *DiscontinuedError) Error() string {
	return fmt.Sprintf("%s (product %d) is no longer available", e.Name, e.ProductID)
}
