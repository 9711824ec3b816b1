package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pranav418/micro-merch/internal/api"
	"github.com/Pranav418/micro-merch/internal/cart"
	"github.com/Pranav418/micro-merch/internal/domain"
	"github.com/Pranav418/micro-merch/internal/notify"
)

// spyAPI implements both the controller's API and the cart's OrderPlacer.
type spyAPI struct {
	mu sync.Mutex

	products []domain.Product
	users    []domain.User
	orders   []domain.Order

	catalogErr error
	usersErr   error
	ordersErr  error
	seedErr    error
	placeErr   error
	placeConf  *domain.OrderConfirmation

	catalogCalls int
	usersCalls   int
	ordersCalls  int
	seedCalls    int
	placeCalls   int
}

func (s *spyAPI) FetchCatalog(context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalogCalls++
	if s.catalogErr != nil {
		return nil, s.catalogErr
	}
	return s.products, nil
}

func (s *spyAPI) FetchUsers(context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usersCalls++
	if s.usersErr != nil {
		return nil, s.usersErr
	}
	return s.users, nil
}

func (s *spyAPI) FetchOrders(_ context.Context, userID int64) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ordersCalls++
	if s.ordersErr != nil {
		return nil, s.ordersErr
	}
	return s.orders, nil
}

func (s *spyAPI) Seed(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seedCalls++
	return s.seedErr
}

func (s *spyAPI) PlaceOrder(_ context.Context, userID int64, items []domain.OrderLine) (*domain.OrderConfirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placeCalls++
	if s.placeErr != nil {
		return nil, s.placeErr
	}
	return s.placeConf, nil
}

func (s *spyAPI) counts() (catalog, users, orders, seed, place int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalogCalls, s.usersCalls, s.ordersCalls, s.seedCalls, s.placeCalls
}

func (s *spyAPI) setCatalogErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalogErr = err
}

func demoStore() *spyAPI {
	return &spyAPI{
		products: []domain.Product{
			{ID: 1, Name: "Mug", Price: decimal.RequireFromString("9.99"), Inventory: 2},
			{ID: 2, Name: "Poster", Price: decimal.RequireFromString("4.50"), Inventory: 5},
		},
		users: []domain.User{
			{ID: 1, Username: "Pranav"},
			{ID: 2, Username: "Alex"},
		},
		placeConf: &domain.OrderConfirmation{OrderID: 1},
	}
}

func newController(remote API) (*Controller, *notify.Center) {
	toasts := notify.NewCenter(time.Minute)
	placer, _ := remote.(cart.OrderPlacer)
	return New(remote, cart.NewManager(placer, toasts), toasts), toasts
}

func assertToast(t *testing.T, toasts *notify.Center, severity notify.Severity, message string) {
	t.Helper()
	n := toasts.Current()
	require.NotNil(t, n, "expected an active notification")
	assert.Equal(t, severity, n.Severity)
	assert.Equal(t, message, n.Message)
}

func TestLoadInitialData_AppliesSnapshotsAndSelectsFirstUser(t *testing.T) {
	remote := demoStore()
	sut, _ := newController(remote)

	require.NoError(t, sut.LoadInitialData(context.Background()))

	assert.Len(t, sut.Products(), 2)
	assert.Len(t, sut.Users(), 2)
	assert.Equal(t, int64(1), sut.SelectedUser())
	assert.Equal(t, "Pranav", sut.SelectedUserName())
	assert.Equal(t, ViewProducts, sut.ActiveView())
	assert.False(t, sut.Loading())
	assert.Empty(t, sut.LastError())
}

func TestLoadInitialData_FailureKeepsPreviousSnapshot(t *testing.T) {
	remote := demoStore()
	sut, _ := newController(remote)
	require.NoError(t, sut.LoadInitialData(context.Background()))

	remote.setCatalogErr(&api.NetworkError{Op: "fetch catalog"})
	require.Error(t, sut.LoadInitialData(context.Background()))

	// Stale but available beats cleared.
	assert.Len(t, sut.Products(), 2)
	assert.Equal(t, "Failed to load data. Have you seeded the database?", sut.LastError())
	assert.False(t, sut.Loading())
}

func TestLoadInitialData_KeepsExplicitUserSelection(t *testing.T) {
	remote := demoStore()
	sut, _ := newController(remote)
	require.NoError(t, sut.LoadInitialData(context.Background()))

	sut.SelectUser(2)
	require.NoError(t, sut.LoadInitialData(context.Background()))
	assert.Equal(t, int64(2), sut.SelectedUser())
}

func TestShowOrders_RequiresSelectedUser(t *testing.T) {
	remote := demoStore()
	sut, toasts := newController(remote)
	// No initial load: nobody is selected yet.

	err := sut.ShowOrders(context.Background())
	assert.ErrorIs(t, err, cart.ErrNoUserSelected)
	assertToast(t, toasts, notify.SeverityError, "Please select a user.")
	assert.Equal(t, ViewProducts, sut.ActiveView())
	_, _, orders, _, _ := remote.counts()
	assert.Equal(t, 0, orders)
}

func TestShowOrders_Success(t *testing.T) {
	remote := demoStore()
	remote.orders = []domain.Order{{OrderID: 9}}
	sut, _ := newController(remote)
	require.NoError(t, sut.LoadInitialData(context.Background()))

	require.NoError(t, sut.ShowOrders(context.Background()))
	assert.Equal(t, ViewOrders, sut.ActiveView())
	require.Len(t, sut.Orders(), 1)
	assert.Equal(t, int64(9), sut.Orders()[0].OrderID)
}

func TestShowOrders_FetchFailureKeepsView(t *testing.T) {
	remote := demoStore()
	remote.ordersErr = &api.NetworkError{Op: "fetch orders"}
	sut, _ := newController(remote)
	require.NoError(t, sut.LoadInitialData(context.Background()))

	require.Error(t, sut.ShowOrders(context.Background()))
	assert.Equal(t, ViewProducts, sut.ActiveView())
	assert.Equal(t, "Failed to load orders for this user.", sut.LastError())
}

// gatedOrdersAPI holds the first FetchOrders until gate closes, then fails
// it. Later calls pass through to the embedded spy.
type gatedOrdersAPI struct {
	*spyAPI
	gate chan struct{}

	gmu    sync.Mutex
	served bool
}

func (g *gatedOrdersAPI) FetchOrders(ctx context.Context, userID int64) ([]domain.Order, error) {
	g.gmu.Lock()
	first := !g.served
	g.served = true
	g.gmu.Unlock()
	if first {
		<-g.gate
		return nil, &api.NetworkError{Op: "fetch orders"}
	}
	return g.spyAPI.FetchOrders(ctx, userID)
}

func (g *gatedOrdersAPI) firstStarted() bool {
	g.gmu.Lock()
	defer g.gmu.Unlock()
	return g.served
}

func TestShowOrders_SupersededFailureLeavesNewerStateAlone(t *testing.T) {
	remote := demoStore()
	remote.orders = []domain.Order{{OrderID: 9}}
	gated := &gatedOrdersAPI{spyAPI: remote, gate: make(chan struct{})}
	sut, _ := newController(gated)
	require.NoError(t, sut.LoadInitialData(context.Background()))

	stale := make(chan error, 1)
	go func() { stale <- sut.ShowOrders(context.Background()) }()
	require.Eventually(t, gated.firstStarted, 2*time.Second, 5*time.Millisecond,
		"first orders fetch never started")

	require.NoError(t, sut.ShowOrders(context.Background()))
	close(gated.gate)
	require.Error(t, <-stale)

	assert.Equal(t, ViewOrders, sut.ActiveView())
	assert.Empty(t, sut.LastError())
	assert.False(t, sut.Loading())
	require.Len(t, sut.Orders(), 1)
	assert.Equal(t, int64(9), sut.Orders()[0].OrderID)
}

// gatedCatalogAPI is the catalog-side twin of gatedOrdersAPI.
type gatedCatalogAPI struct {
	*spyAPI
	gate chan struct{}

	gmu    sync.Mutex
	served bool
}

func (g *gatedCatalogAPI) FetchCatalog(ctx context.Context) ([]domain.Product, error) {
	g.gmu.Lock()
	first := !g.served
	g.served = true
	g.gmu.Unlock()
	if first {
		<-g.gate
		return nil, &api.NetworkError{Op: "fetch catalog"}
	}
	return g.spyAPI.FetchCatalog(ctx)
}

func (g *gatedCatalogAPI) firstStarted() bool {
	g.gmu.Lock()
	defer g.gmu.Unlock()
	return g.served
}

func TestLoadInitialData_SupersededFailureLeavesNewerStateAlone(t *testing.T) {
	remote := demoStore()
	gated := &gatedCatalogAPI{spyAPI: remote, gate: make(chan struct{})}
	sut, _ := newController(gated)

	stale := make(chan error, 1)
	go func() { stale <- sut.LoadInitialData(context.Background()) }()
	require.Eventually(t, gated.firstStarted, 2*time.Second, 5*time.Millisecond,
		"first catalog fetch never started")

	require.NoError(t, sut.LoadInitialData(context.Background()))
	close(gated.gate)
	require.Error(t, <-stale)

	assert.Len(t, sut.Products(), 2)
	assert.Empty(t, sut.LastError())
	assert.False(t, sut.Loading())
}

func TestSelectUser_DoesNotAutoRefreshOrders(t *testing.T) {
	remote := demoStore()
	sut, _ := newController(remote)
	require.NoError(t, sut.LoadInitialData(context.Background()))
	require.NoError(t, sut.ShowOrders(context.Background()))

	sut.SelectUser(2)
	_, _, orders, _, _ := remote.counts()
	assert.Equal(t, 1, orders, "selecting a user must not refetch orders")

	require.NoError(t, sut.ShowOrders(context.Background()))
	_, _, orders, _, _ = remote.counts()
	assert.Equal(t, 2, orders, "explicit navigation refetches")
}

func TestCheckout_Success_RefreshesCatalogExactlyOnce(t *testing.T) {
	remote := demoStore()
	sut, toasts := newController(remote)
	require.NoError(t, sut.LoadInitialData(context.Background()))
	require.NoError(t, sut.AddToCart(1))

	before, _, _, _, _ := remote.counts()
	conf, err := sut.Checkout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), conf.OrderID)
	assertToast(t, toasts, notify.SeveritySuccess, "Checkout successful! Order placed.")

	after, _, _, _, place := remote.counts()
	assert.Equal(t, 1, place)
	assert.Equal(t, before+1, after, "exactly one catalog refresh after checkout")
	assert.Empty(t, sut.CartItems())
	assert.True(t, sut.CartTotal().IsZero())
}

func TestCheckout_Failure_CartIntactButCatalogRefreshed(t *testing.T) {
	remote := demoStore()
	remote.placeErr = &api.ValidationError{
		Message: "Inventory check failed",
		Details: map[string]string{"1": "Not enough stock for Mug"},
	}
	sut, toasts := newController(remote)
	require.NoError(t, sut.LoadInitialData(context.Background()))
	require.NoError(t, sut.AddToCart(1))

	before, _, _, _, _ := remote.counts()
	_, err := sut.Checkout(context.Background())
	require.Error(t, err)
	assertToast(t, toasts, notify.SeverityError, `{"1":"Not enough stock for Mug"}`)

	after, _, _, _, _ := remote.counts()
	assert.Equal(t, before+1, after, "exactly one catalog refresh after a failed checkout")
	require.Len(t, sut.CartItems(), 1)
	assert.Equal(t, 1, sut.CartQuantityOf(1))
}

func TestCheckout_EmptyCart_NoNetworkCallNoRefresh(t *testing.T) {
	remote := demoStore()
	sut, _ := newController(remote)
	require.NoError(t, sut.LoadInitialData(context.Background()))

	before, _, _, _, _ := remote.counts()
	_, err := sut.Checkout(context.Background())
	assert.ErrorIs(t, err, cart.ErrEmptyCart)

	after, _, _, _, place := remote.counts()
	assert.Equal(t, 0, place)
	assert.Equal(t, before, after, "local precondition failures skip the refresh")
}

func TestAddToCart_UnknownProduct(t *testing.T) {
	remote := demoStore()
	sut, _ := newController(remote)
	require.NoError(t, sut.LoadInitialData(context.Background()))

	err := sut.AddToCart(999)
	var discontinued *cart.DiscontinuedError
	assert.ErrorAs(t, err, &discontinued)
	assert.Empty(t, sut.CartItems())
}

func TestSeedRemote_ResetsSession(t *testing.T) {
	remote := demoStore()
	remote.orders = []domain.Order{{OrderID: 5}}
	sut, toasts := newController(remote)
	require.NoError(t, sut.LoadInitialData(context.Background()))
	require.NoError(t, sut.AddToCart(1))
	require.NoError(t, sut.ShowOrders(context.Background()))

	require.NoError(t, sut.SeedRemote(context.Background()))

	assertToast(t, toasts, notify.SeveritySuccess, "Database seeded successfully!")
	assert.Equal(t, ViewProducts, sut.ActiveView())
	assert.Empty(t, sut.Orders())
	assert.Empty(t, sut.CartItems())
	assert.False(t, sut.Seeding())
	_, _, _, seed, _ := remote.counts()
	assert.Equal(t, 1, seed)
}

func TestSeedRemote_Failure(t *testing.T) {
	remote := demoStore()
	remote.seedErr = &api.NetworkError{Op: "seed users"}
	sut, _ := newController(remote)

	require.Error(t, sut.SeedRemote(context.Background()))
	assert.Equal(t, "Failed to seed the database.", sut.LastError())
	assert.False(t, sut.Seeding())
}

func TestSubscribe_PublishesOnStateChange(t *testing.T) {
	remote := demoStore()
	sut, _ := newController(remote)

	var mu sync.Mutex
	calls := 0
	unsubscribe := sut.Subscribe(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	sut.ShowCart()
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()

	unsubscribe()
	sut.ShowProducts()
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
}
