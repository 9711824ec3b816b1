package controller

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/Pranav418/micro-merch/internal/cart"
	"github.com/Pranav418/micro-merch/internal/domain"
	"github.com/Pranav418/micro-merch/internal/notify"
)

// View is the active top-level view.
type View string

const (
	ViewProducts View = "products"
	ViewOrders   View = "orders"
	ViewCart     View = "cart"
)

// API is everything the controller needs from the remote client.
type API interface {
	FetchCatalog(ctx context.Context) ([]domain.Product, error)
	FetchUsers(ctx context.Context) ([]domain.User, error)
	FetchOrders(ctx context.Context, userID int64) ([]domain.Order, error)
	Seed(ctx context.Context) error
}

// Controller selects the active view and owns the catalog, user and order
// snapshots. Every mutation goes through one of its methods; the rendering
// layer only reads the projections and subscribes for changes.
type Controller struct {
	mu     sync.RWMutex
	api    API
	cart   *cart.Manager
	toasts *notify.Center

	view         View
	snapshot     *domain.Snapshot
	users        []domain.User
	orders       []domain.Order
	selectedUser int64
	loading      bool
	seeding      bool
	lastErr      string

	// Issue tokens, one per snapshot family. A response is applied only
	// while its token is still the newest issued, so a slow early fetch
	// can never overwrite a newer result.
	catalogToken uint64
	usersToken   uint64
	ordersToken  uint64

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int
}

func New(remote API, cartMgr *cart.Manager, toasts *notify.Center) *Controller {
	return &Controller{
		api:    remote,
		cart:   cartMgr,
		toasts: toasts,
		view:   ViewProducts,
		subs:   make(map[int]func()),
	}
}

// LoadInitialData fetches products and users in parallel. The results are
// applied as two independent snapshot replacements; on any failure the
// previous snapshots stay in place and a banner error is set.
func (c *Controller) LoadInitialData(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	c.catalogToken++
	c.usersToken++
	catalogToken := c.catalogToken
	usersToken := c.usersToken
	c.mu.Unlock()
	c.publish()

	var (
		products []domain.Product
		users    []domain.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = c.api.FetchCatalog(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = c.api.FetchUsers(gctx)
		return err
	})
	err := g.Wait()

	c.mu.Lock()
	if catalogToken != c.catalogToken && usersToken != c.usersToken {
		// A newer load superseded this one; its outcome owns the flags.
		c.mu.Unlock()
		return err
	}
	c.loading = false
	if err != nil {
		c.lastErr = "Failed to load data. Have you seeded the database?"
		c.mu.Unlock()
		c.publish()
		return err
	}

	var snapshot *domain.Snapshot
	if catalogToken == c.catalogToken {
		snapshot = domain.NewSnapshot(products)
		c.snapshot = snapshot
	}
	if usersToken == c.usersToken {
		c.users = users
		if c.selectedUser == 0 && len(users) > 0 {
			c.selectedUser = users[0].ID
		}
	}
	c.lastErr = ""
	c.mu.Unlock()

	if snapshot != nil {
		c.cart.SetCatalog(snapshot)
	}
	c.publish()
	return nil
}

// SelectUser switches the acting user. Switching while the orders view is
// open does not refetch; the next explicit navigation to orders does.
func (c *Controller) SelectUser(userID int64) {
	c.mu.Lock()
	c.selectedUser = userID
	c.mu.Unlock()
	c.publish()
}

// ShowOrders navigates to the orders view. It requires a selected user
// and refetches that user's orders; on failure the view is left where it
// was and a banner error is set.
func (c *Controller) ShowOrders(ctx context.Context) error {
	c.mu.Lock()
	userID := c.selectedUser
	if userID == 0 {
		c.mu.Unlock()
		c.toasts.Error("Please select a user.")
		return cart.ErrNoUserSelected
	}
	c.loading = true
	c.ordersToken++
	token := c.ordersToken
	c.mu.Unlock()
	c.publish()

	orders, err := c.api.FetchOrders(ctx, userID)

	c.mu.Lock()
	if token != c.ordersToken {
		// Superseded by a newer navigation; leave its state alone.
		c.mu.Unlock()
		return err
	}
	c.loading = false
	if err != nil {
		c.lastErr = "Failed to load orders for this user."
		c.mu.Unlock()
		c.publish()
		return err
	}
	c.orders = orders
	c.view = ViewOrders
	c.lastErr = ""
	c.mu.Unlock()
	c.publish()
	return nil
}

// ShowProducts navigates to the products view. Always allowed, no side
// effect.
func (c *Controller) ShowProducts() {
	c.mu.Lock()
	c.view = ViewProducts
	c.mu.Unlock()
	c.publish()
}

// ShowCart navigates to the cart view. Always allowed.
func (c *Controller) ShowCart() {
	c.mu.Lock()
	c.view = ViewCart
	c.mu.Unlock()
	c.publish()
}

// AddToCart adds one unit of the product with the given id, validated
// against the current snapshot.
func (c *Controller) AddToCart(productID int64) error {
	c.mu.RLock()
	p, ok := c.snapshot.Lookup(productID)
	c.mu.RUnlock()
	if !ok {
		return &cart.DiscontinuedError{ProductID: productID}
	}
	return c.cart.AddItem(p)
}

// UpdateQuantity forwards to the cart manager.
func (c *Controller) UpdateQuantity(productID int64, quantity int) error {
	return c.cart.UpdateQuantity(productID, quantity)
}

// RemoveItem forwards to the cart manager.
func (c *Controller) RemoveItem(productID int64) {
	c.cart.RemoveItem(productID)
}

// Checkout submits the cart for the selected user. Whenever an order
// submission actually went out, the catalog is refetched regardless of
// the outcome: the local inventory figures may already be stale relative
// to the service, and the refetch is what bounds that staleness. Local
// precondition failures never reach the network and skip the refresh.
func (c *Controller) Checkout(ctx context.Context) (*domain.OrderConfirmation, error) {
	c.mu.RLock()
	userID := c.selectedUser
	c.mu.RUnlock()

	conf, err := c.cart.Checkout(ctx, userID)
	if err != nil && isLocalPrecondition(err) {
		return nil, err
	}

	if refreshErr := c.refreshCatalog(ctx); refreshErr != nil {
		log.Printf("post-checkout catalog refresh failed: %v", refreshErr)
	}
	return conf, err
}

// SeedRemote re-initializes the remote data, then reloads everything and
// resets the session: products view, no orders, empty cart.
func (c *Controller) SeedRemote(ctx context.Context) error {
	c.mu.Lock()
	if c.seeding {
		c.mu.Unlock()
		return nil
	}
	c.seeding = true
	c.lastErr = ""
	c.mu.Unlock()
	c.publish()

	defer func() {
		c.mu.Lock()
		c.seeding = false
		c.mu.Unlock()
		c.publish()
	}()

	if err := c.api.Seed(ctx); err != nil {
		c.mu.Lock()
		c.lastErr = "Failed to seed the database."
		c.mu.Unlock()
		c.publish()
		return err
	}

	c.toasts.Success("Database seeded successfully!")
	if err := c.LoadInitialData(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	c.view = ViewProducts
	c.orders = nil
	c.mu.Unlock()
	c.cart.Clear()
	c.publish()
	return nil
}

// refreshCatalog refetches products only. A failure leaves the previous
// snapshot in place, stale but available.
func (c *Controller) refreshCatalog(ctx context.Context) error {
	c.mu.Lock()
	c.catalogToken++
	token := c.catalogToken
	c.mu.Unlock()

	products, err := c.api.FetchCatalog(ctx)
	if err != nil {
		c.mu.Lock()
		stale := token != c.catalogToken
		if !stale {
			c.lastErr = "Failed to load data. Have you seeded the database?"
		}
		c.mu.Unlock()
		if !stale {
			c.publish()
		}
		return err
	}

	c.mu.Lock()
	if token != c.catalogToken {
		c.mu.Unlock()
		return nil
	}
	snapshot := domain.NewSnapshot(products)
	c.snapshot = snapshot
	c.lastErr = ""
	c.mu.Unlock()

	c.cart.SetCatalog(snapshot)
	c.publish()
	return nil
}

func isLocalPrecondition(err error) bool {
	var discontinued *cart.DiscontinuedError
	return errors.Is(err, cart.ErrEmptyCart) ||
		errors.Is(err, cart.ErrNoUserSelected) ||
		errors.As(err, &discontinued)
}

// --- read-only projections ---

func (c *Controller) Products() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil {
		return nil
	}
	products := make([]domain.Product, len(c.snapshot.Products))
	copy(products, c.snapshot.Products)
	return products
}

func (c *Controller) Users() []domain.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	users := make([]domain.User, len(c.users))
	copy(users, c.users)
	return users
}

func (c *Controller) Orders() []domain.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	orders := make([]domain.Order, len(c.orders))
	copy(orders, c.orders)
	return orders
}

func (c *Controller) ActiveView() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

func (c *Controller) SelectedUser() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selectedUser
}

// SelectedUserName resolves the selected user against the users snapshot.
func (c *Controller) SelectedUserName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, u := range c.users {
		if u.ID == c.selectedUser {
			return u.Username
		}
	}
	return ""
}

func (c *Controller) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

func (c *Controller) Seeding() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.seeding
}

// LastError returns the banner-level error message, empty when clear.
func (c *Controller) LastError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

func (c *Controller) CartItems() []domain.CartItem { return c.cart.Items() }
func (c *Controller) CartTotal() decimal.Decimal   { return c.cart.Total() }
func (c *Controller) CartCount() int               { return c.cart.Count() }
func (c *Controller) CartQuantityOf(id int64) int  { return c.cart.QuantityOf(id) }
func (c *Controller) CheckoutInFlight() bool       { return c.cart.CheckoutInFlight() }

// Subscribe registers fn to run after every controller state change. The
// returned func unsubscribes. Cart and notification changes publish on
// their own holders.
func (c *Controller) Subscribe(fn func()) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) publish() {
	c.subMu.Lock()
	fns := make([]func(), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
