package devserver

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Pranav418/micro-merch/internal/domain"
)

// Store is the in-memory backing state for the dev gateway. It starts
// empty; the seed endpoints install the demo fixtures.
type Store struct {
	mu          sync.RWMutex
	products    map[int64]domain.Product
	users       map[int64]domain.User
	orders      []storedOrder
	nextOrderID int64
}

type storedOrder struct {
	ID     int64
	UserID int64
	Lines  []domain.OrderLine
}

func NewStore() *Store {
	return &Store{
		products: make(map[int64]domain.Product),
		users:    make(map[int64]domain.User),
	}
}

// SeedUsers replaces all users with the demo fixtures.
func (s *Store) SeedUsers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = map[int64]domain.User{
		1: {ID: 1, Username: "Pranav"},
		2: {ID: 2, Username: "Alex"},
	}
}

// SeedProducts replaces all products with the demo fixtures. Existing
// orders are kept; listing them simply drops lines whose product is gone.
func (s *Store) SeedProducts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = make(map[int64]domain.Product)
	for _, p := range []domain.Product{
		{ID: 101, Name: "Laptop Pro", Price: decimal.NewFromInt(1200), Inventory: 10},
		{ID: 102, Name: "Wireless Mouse", Price: decimal.NewFromInt(25), Inventory: 50},
		{ID: 103, Name: "Mechanical Keyboard", Price: decimal.NewFromInt(150), Inventory: 20},
		{ID: 104, Name: "4K Monitor", Price: decimal.NewFromInt(450), Inventory: 15},
		{ID: 105, Name: "Webcam HD", Price: decimal.NewFromInt(80), Inventory: 30},
		{ID: 106, Name: "USB-C Hub", Price: decimal.NewFromInt(45), Inventory: 0},
	} {
		s.products[p.ID] = p
	}
}

// ListProducts returns all products ordered by id.
func (s *Store) ListProducts() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products
}

// ListUsers returns all users ordered by id.
func (s *Store) ListUsers() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// PlaceOrder validates every line against current stock. If any line
// fails, nothing is committed and details maps each offending product id
// to a reason. On success stock is decremented and the order stored.
func (s *Store) PlaceOrder(userID int64, lines []domain.OrderLine) (int64, map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	details := make(map[string]string)
	for _, line := range lines {
		p, ok := s.products[line.ProductID]
		if !ok {
			details[fmt.Sprint(line.ProductID)] = "Not enough stock for Unknown Product"
			continue
		}
		if p.Inventory < line.Quantity {
			details[fmt.Sprint(line.ProductID)] = fmt.Sprintf("Not enough stock for %s", p.Name)
		}
	}
	if len(details) > 0 {
		return 0, details
	}

	for _, line := range lines {
		p := s.products[line.ProductID]
		p.Inventory -= line.Quantity
		s.products[line.ProductID] = p
	}

	s.nextOrderID++
	s.orders = append(s.orders, storedOrder{
		ID:     s.nextOrderID,
		UserID: userID,
		Lines:  append([]domain.OrderLine(nil), lines...),
	})
	return s.nextOrderID, nil
}

// OrdersFor returns the user's orders with items enriched with current
// product data. Lines whose product no longer exists are omitted.
func (s *Store) OrdersFor(userID int64) []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]domain.Order, 0)
	for _, o := range s.orders {
		if o.UserID != userID {
			continue
		}
		items := make([]domain.OrderItem, 0, len(o.Lines))
		for _, line := range o.Lines {
			p, ok := s.products[line.ProductID]
			if !ok {
				continue
			}
			items = append(items, domain.OrderItem{Product: p, Quantity: line.Quantity})
		}
		orders = append(orders, domain.Order{OrderID: o.ID, Items: items})
	}
	return orders
}
