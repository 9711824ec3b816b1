package domain

import "github.com/shopspring/decimal"

// Product is the authoritative stock figure as last observed from the
// catalog service. It may be stale between fetches.
type Product struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Inventory int             `json:"inventory"`
}

// OutOfStock reports whether no units are available.
func (p Product) OutOfStock() bool {
	return p.Inventory == 0
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Snapshot is a wholesale replacement view of the catalog, indexed by
// product id. Lookups never mutate it; a refetch builds a new one.
type Snapshot struct {
	Products []Product
	byID     map[int64]Product
}

func NewSnapshot(products []Product) *Snapshot {
	s := &Snapshot{
		Products: products,
		byID:     make(map[int64]Product, len(products)),
	}
	for _, p := range products {
		s.byID[p.ID] = p
	}
	return s
}

// Lookup returns the product for id, if it exists in this snapshot.
func (s *Snapshot) Lookup(id int64) (Product, bool) {
	if s == nil {
		return Product{}, false
	}
	p, ok := s.byID[id]
	return p, ok
}
