package api

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pranav418/micro-merch/internal/devserver"
	"github.com/Pranav418/micro-merch/internal/domain"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	srv := httptest.NewServer(devserver.New(devserver.NewStore()))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second)
}

func TestFetchCatalog_AfterSeed(t *testing.T) {
	sut := newTestClient(t)
	ctx := context.Background()

	products, err := sut.FetchCatalog(ctx)
	require.NoError(t, err)
	assert.Empty(t, products, "unseeded store has no products")

	require.NoError(t, sut.Seed(ctx))

	products, err = sut.FetchCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, products, 6)
	assert.Equal(t, "Laptop Pro", products[0].Name)
	assert.True(t, products[0].Price.Equal(decimal.NewFromInt(1200)))
	assert.Equal(t, 10, products[0].Inventory)
	assert.Equal(t, 0, products[5].Inventory, "the hub is seeded out of stock")
}

func TestFetchUsers_AfterSeed(t *testing.T) {
	sut := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, sut.Seed(ctx))

	users, err := sut.FetchUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Pranav", users[0].Username)
	assert.Equal(t, "Alex", users[1].Username)
}

func TestPlaceOrder_RoundTrip(t *testing.T) {
	sut := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, sut.Seed(ctx))

	conf, err := sut.PlaceOrder(ctx, 1, []domain.OrderLine{{ProductID: 102, Quantity: 3}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), conf.OrderID)

	products, err := sut.FetchCatalog(ctx)
	require.NoError(t, err)
	for _, p := range products {
		if p.ID == 102 {
			assert.Equal(t, 47, p.Inventory, "stock decremented server-side")
		}
	}

	orders, err := sut.FetchOrders(ctx, 1)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, "Wireless Mouse", orders[0].Items[0].Product.Name)
	assert.Equal(t, 3, orders[0].Items[0].Quantity)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	sut := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, sut.Seed(ctx))

	_, err := sut.PlaceOrder(ctx, 1, []domain.OrderLine{{ProductID: 106, Quantity: 1}})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Inventory check failed", vErr.Message)
	assert.Equal(t, "Not enough stock for USB-C Hub", vErr.Details["106"])
}

func TestUnreachableGateway_IsNetworkError(t *testing.T) {
	srv := httptest.NewServer(devserver.New(devserver.NewStore()))
	sut := NewClient(srv.URL, time.Second)
	srv.Close()

	_, err := sut.FetchCatalog(context.Background())
	var nErr *NetworkError
	require.ErrorAs(t, err, &nErr)

	_, err = sut.PlaceOrder(context.Background(), 1, []domain.OrderLine{{ProductID: 101, Quantity: 1}})
	require.ErrorAs(t, err, &nErr)
}

func TestFetchOrders_UnknownUserIsEmptyNotError(t *testing.T) {
	sut := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, sut.Seed(ctx))

	orders, err := sut.FetchOrders(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, orders)
}
