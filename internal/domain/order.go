package domain

import "github.com/shopspring/decimal"

// Order is returned by the orders service with items already enriched
// with product data. Display only.
type Order struct {
	OrderID int64       `json:"order_id"`
	Items   []OrderItem `json:"items"`
}

type OrderItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Total sums live product price times quantity across the order.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// OrderConfirmation is the order service's acknowledgement of a
// successfully placed order.
type OrderConfirmation struct {
	OrderID int64 `json:"order_id"`
}
