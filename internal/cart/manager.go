package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/Pranav418/micro-merch/internal/api"
	"github.com/Pranav418/micro-merch/internal/domain"
	"github.com/Pranav418/micro-merch/internal/notify"
)

// OrderPlacer is the slice of the remote client checkout needs.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, userID int64, items []domain.OrderLine) (*domain.OrderConfirmation, error)
}

// Manager owns the cart contents and validates every mutation against the
// last catalog snapshot it was handed. It never reserves stock locally;
// it only blocks requests that exceed the last-known inventory figure and
// defers final truth to the order service.
type Manager struct {
	mu       sync.RWMutex
	items    []domain.CartItem // insertion order
	snapshot *domain.Snapshot

	placer   OrderPlacer
	toasts   *notify.Center
	sfg      singleflight.Group // suppresses duplicate checkout submissions
	inFlight atomic.Bool

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int
}

func NewManager(placer OrderPlacer, toasts *notify.Center) *Manager {
	return &Manager{
		placer: placer,
		toasts: toasts,
		subs:   make(map[int]func()),
	}
}

// SetCatalog replaces the snapshot the manager validates against.
// The cart itself is never touched here; only a successful checkout
// clears it.
func (m *Manager) SetCatalog(s *domain.Snapshot) {
	m.mu.Lock()
	m.snapshot = s
	m.mu.Unlock()
	m.publish()
}

// AddItem puts one unit of the product into the cart. The price is frozen
// at this moment; the inventory check uses the snapshot's figure, so a
// product missing from the snapshot counts as zero stock.
func (m *Manager) AddItem(p domain.Product) error {
	m.mu.Lock()
	available := 0
	if live, ok := m.snapshot.Lookup(p.ID); ok {
		available = live.Inventory
	}
	idx := m.indexOf(p.ID)
	inCart := 0
	if idx >= 0 {
		inCart = m.items[idx].Quantity
	}

	if inCart+1 > available {
		m.mu.Unlock()
		m.toasts.Error(fmt.Sprintf("Cannot add more %s, only %d in stock.", p.Name, available))
		return &StockExceededError{ProductID: p.ID, Name: p.Name, Requested: inCart + 1, Available: available}
	}

	if idx >= 0 {
		m.items[idx].Quantity++
	} else {
		m.items = append(m.items, domain.CartItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  1,
		})
	}
	m.mu.Unlock()

	m.toasts.Success(fmt.Sprintf("%s added to cart!", p.Name))
	m.publish()
	return nil
}

// UpdateQuantity sets the quantity of an existing cart item. A quantity
// of zero or less removes the item. The available ceiling is inventory
// plus what the cart already holds, since the snapshot's figure reserves
// nothing for this client.
func (m *Manager) UpdateQuantity(productID int64, quantity int) error {
	m.mu.Lock()
	idx := m.indexOf(productID)
	if idx < 0 {
		m.mu.Unlock()
		return ErrItemNotFound
	}

	if quantity <= 0 {
		m.mu.Unlock()
		m.RemoveItem(productID)
		return nil
	}

	item := m.items[idx]
	available := 0
	if live, ok := m.snapshot.Lookup(productID); ok {
		available = live.Inventory
	}
	totalAvailable := available + item.Quantity
	if quantity > totalAvailable {
		m.mu.Unlock()
		m.toasts.Error(fmt.Sprintf("Only %d of %s in stock.", totalAvailable, item.Name))
		return &StockExceededError{ProductID: productID, Name: item.Name, Requested: quantity, Available: totalAvailable}
	}

	m.items[idx].Quantity = quantity
	m.mu.Unlock()

	m.publish()
	return nil
}

// RemoveItem deletes the item from the cart. Removing an absent item is
// a no-op, not an error.
func (m *Manager) RemoveItem(productID int64) {
	m.mu.Lock()
	idx := m.indexOf(productID)
	if idx < 0 {
		m.mu.Unlock()
		return
	}
	m.items = append(m.items[:idx], m.items[idx+1:]...)
	m.mu.Unlock()

	m.toasts.Success("Item removed from cart.")
	m.publish()
}

// Checkout submits the cart as an order. On success the cart is cleared.
// Whatever the remote outcome, the caller must refresh the catalog
// snapshot afterwards; only the local precondition failures returned
// before any network call (ErrEmptyCart, ErrNoUserSelected,
// DiscontinuedError) exempt it from that.
func (m *Manager) Checkout(ctx context.Context, userID int64) (*domain.OrderConfirmation, error) {
	m.mu.RLock()
	if len(m.items) == 0 {
		m.mu.RUnlock()
		m.toasts.Error("Your cart is empty.")
		return nil, ErrEmptyCart
	}
	m.mu.RUnlock()

	if userID == 0 {
		m.toasts.Error("Please select a user.")
		return nil, ErrNoUserSelected
	}

	m.mu.RLock()
	for _, item := range m.items {
		if _, ok := m.snapshot.Lookup(item.ProductID); !ok {
			m.mu.RUnlock()
			m.toasts.Error(fmt.Sprintf("%s is no longer available. Remove it from your cart.", item.Name))
			return nil, &DiscontinuedError{ProductID: item.ProductID, Name: item.Name}
		}
	}
	m.mu.RUnlock()

	// Concurrent invocations join the outstanding submission instead of
	// double-submitting the same cart.
	v, err, _ := m.sfg.Do("checkout", func() (any, error) {
		m.inFlight.Store(true)
		defer m.inFlight.Store(false)

		m.mu.RLock()
		lines := make([]domain.OrderLine, 0, len(m.items))
		for _, item := range m.items {
			lines = append(lines, domain.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
		}
		m.mu.RUnlock()

		conf, err := m.placer.PlaceOrder(ctx, userID, lines)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.items = nil
		m.mu.Unlock()

		m.toasts.Success("Checkout successful! Order placed.")
		m.publish()
		return conf, nil
	})
	if err != nil {
		m.toasts.Error(checkoutFailureMessage(err))
		return nil, err
	}
	return v.(*domain.OrderConfirmation), nil
}

// CheckoutInFlight reports whether a submission is outstanding, so the
// caller can disable the trigger until it resolves.
func (m *Manager) CheckoutInFlight() bool {
	return m.inFlight.Load()
}

// Items returns a copy of the cart contents in insertion order.
func (m *Manager) Items() []domain.CartItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]domain.CartItem, len(m.items))
	copy(items, m.items)
	return items
}

// Total sums quantity times add-time price across the cart. Live catalog
// price changes do not affect it.
func (m *Manager) Total() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := decimal.Zero
	for _, item := range m.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Count returns the total number of units in the cart.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, item := range m.items {
		n += item.Quantity
	}
	return n
}

// QuantityOf returns the in-cart quantity for a product, zero if absent.
func (m *Manager) QuantityOf(productID int64) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if idx := m.indexOf(productID); idx >= 0 {
		return m.items[idx].Quantity
	}
	return 0
}

// Clear empties the cart without a checkout, used by the seeding flow.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.items = nil
	m.mu.Unlock()
	m.publish()
}

// Subscribe registers fn to run after every cart change. The returned
// func unsubscribes.
func (m *Manager) Subscribe(fn func()) func() {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

// indexOf is called with m.mu held.
func (m *Manager) indexOf(productID int64) int {
	for i, item := range m.items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func (m *Manager) publish() {
	m.subMu.Lock()
	fns := make([]func(), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func checkoutFailureMessage(err error) string {
	var vErr *api.ValidationError
	if errors.As(err, &vErr) && len(vErr.Details) > 0 {
		if details, mErr := json.Marshal(vErr.Details); mErr == nil {
			return string(details)
		}
	}
	return "Checkout failed."
}
