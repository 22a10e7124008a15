package service

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forrex322/shop/internal/domain"
	"github.com/forrex322/shop/internal/event"
	apperrors "github.com/forrex322/shop/pkg/errors"
)

func newCartService(t *testing.T) (*CartService, *recordingPublisher, *faultyStore) {
	t.Helper()
	store := &faultyStore{Store: newTestStore(t)}
	pub := &recordingPublisher{}
	return NewCartService(store, pub, newTestLogger()), pub, store
}

func assertTotals(t *testing.T, cart *domain.Cart, qty int, price int64) {
	t.Helper()
	assert.Equal(t, qty, cart.TotalQuantity, "total quantity")
	assert.Equal(t, price, cart.TotalPrice, "total price")

	var sumQty int
	var sumPrice int64
	for _, it := range cart.Items {
		sumQty += it.Quantity
		sumPrice += int64(it.Quantity) * it.Product.Price
	}
	assert.Equal(t, sumQty, cart.TotalQuantity)
	assert.Equal(t, sumPrice, cart.TotalPrice)
}

// === Totals ===

func TestCart_AddChangeRemoveScenario(t *testing.T) {
	svc, pub, store := newCartService(t)
	ctx := context.Background()
	seedProduct(t, store, "p1", 10)
	owner := domain.AnonymousOwner("sess-1")

	cart, err := svc.GetCart(ctx, owner)
	require.NoError(t, err)
	assertTotals(t, cart, 0, 0)

	cart, err = svc.AddItem(ctx, owner, "p1")
	require.NoError(t, err)
	assertTotals(t, cart, 1, 10)

	cart, err = svc.AddItem(ctx, owner, "p1")
	require.NoError(t, err)
	assertTotals(t, cart, 1, 10)
	require.Len(t, cart.Items, 1)

	cart, err = svc.ChangeQuantity(ctx, owner, "p1", 3)
	require.NoError(t, err)
	assertTotals(t, cart, 3, 30)

	cart, err = svc.RemoveItem(ctx, owner, "p1")
	require.NoError(t, err)
	assertTotals(t, cart, 0, 0)
	assert.Empty(t, cart.Items)

	assert.Equal(t, []string{
		event.CartActionAdded,
		event.CartActionQuantityChanged,
		event.CartActionRemoved,
	}, pub.cartActions())
}

func TestCart_TotalsPersistedAcrossReads(t *testing.T) {
	svc, _, store := newCartService(t)
	ctx := context.Background()
	seedProduct(t, store, "p1", 250)
	seedProduct(t, store, "p2", 1000)
	owner := domain.AnonymousOwner("sess-2")

	_, err := svc.AddItem(ctx, owner, "p1")
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, owner, "p2")
	require.NoError(t, err)
	_, err = svc.ChangeQuantity(ctx, owner, "p1", 4)
	require.NoError(t, err)

	stored, err := store.Carts().FindOpen(ctx, owner.Key())
	require.NoError(t, err)
	assert.Equal(t, 5, stored.TotalQuantity)
	assert.Equal(t, int64(2000), stored.TotalPrice)

	cart, err := svc.GetCart(ctx, owner)
	require.NoError(t, err)
	assertTotals(t, cart, 5, 2000)
}

func TestCart_OwnersAreIsolated(t *testing.T) {
	svc, _, store := newCartService(t)
	ctx := context.Background()
	seedProduct(t, store, "p1", 10)

	_, err := svc.AddItem(ctx, domain.AnonymousOwner("a"), "p1")
	require.NoError(t, err)

	other, err := svc.GetCart(ctx, domain.AnonymousOwner("b"))
	require.NoError(t, err)
	assert.Empty(t, other.Items)
}

// === Concurrency ===

func TestCart_ConcurrentDuplicateAdds(t *testing.T) {
	svc, _, store := newCartService(t)
	ctx := context.Background()
	seedProduct(t, store, "p1", 10)
	owner := domain.AnonymousOwner("sess-race")

	before := testutil.ToFloat64(cartMutationsTotal.WithLabelValues(event.CartActionAdded))

	const workers = 12
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddItem(ctx, owner, "p1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	cart, err := svc.GetCart(ctx, owner)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assertTotals(t, cart, 1, 10)
	assert.Equal(t, before+1, testutil.ToFloat64(cartMutationsTotal.WithLabelValues(event.CartActionAdded)))
}

// === Finalized carts ===

func TestCart_FinalizedCartRejectsMutators(t *testing.T) {
	svc, pub, store := newCartService(t)
	ctx := context.Background()
	seedProduct(t, store, "p1", 10)
	seedProduct(t, store, "p2", 20)
	owner := domain.AnonymousOwner("sess-final")

	_, err := svc.AddItem(ctx, owner, "p1")
	require.NoError(t, err)
	events := len(pub.cartActions())

	store.finalizeOnLock = true

	_, err = svc.AddItem(ctx, owner, "p2")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	_, err = svc.RemoveItem(ctx, owner, "p1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	_, err = svc.ChangeQuantity(ctx, owner, "p1", 5)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	store.finalizeOnLock = false
	cart, err := svc.GetCart(ctx, owner)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
	assertTotals(t, cart, 1, 10)
	assert.Len(t, pub.cartActions(), events)
}

// === Bad input ===

func TestCart_ChangeQuantity_InvalidValues(t *testing.T) {
	svc, _, store := newCartService(t)
	ctx := context.Background()
	seedProduct(t, store, "p1", 10)
	owner := domain.AnonymousOwner("sess-qty")

	_, err := svc.AddItem(ctx, owner, "p1")
	require.NoError(t, err)

	for _, qty := range []int{0, -1, domain.MaxItemQuantity + 1} {
		_, err := svc.ChangeQuantity(ctx, owner, "p1", qty)
		assert.ErrorIs(t, err, apperrors.ErrInvalidArgument, "qty %d", qty)
	}

	cart, err := svc.GetCart(ctx, owner)
	require.NoError(t, err)
	assertTotals(t, cart, 1, 10)
}

func TestCart_UnknownProduct(t *testing.T) {
	svc, _, _ := newCartService(t)
	ctx := context.Background()
	owner := domain.AnonymousOwner("sess-x")

	_, err := svc.AddItem(ctx, owner, "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = svc.RemoveItem(ctx, owner, "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = svc.ChangeQuantity(ctx, owner, "nope", 2)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCart_ProductNotInCart(t *testing.T) {
	svc, _, store := newCartService(t)
	ctx := context.Background()
	seedProduct(t, store, "p1", 10)
	owner := domain.AnonymousOwner("sess-y")

	_, err := svc.RemoveItem(ctx, owner, "p1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = svc.ChangeQuantity(ctx, owner, "p1", 2)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// === Adoption ===

func TestCart_AdoptCart_MovesAnonymousCart(t *testing.T) {
	svc, pub, store := newCartService(t)
	ctx := context.Background()
	seedProduct(t, store, "p1", 10)
	anon := domain.AnonymousOwner("sess-adopt")
	customer := domain.CustomerOwner("cust-1", "sess-adopt")

	_, err := svc.AddItem(ctx, anon, "p1")
	require.NoError(t, err)

	adopted, err := svc.AdoptCart(ctx, anon, customer)
	require.NoError(t, err)
	assert.True(t, adopted)
	assert.Contains(t, pub.cartActions(), event.CartActionAdopted)

	cart, err := svc.GetCart(ctx, customer)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, customer.Key(), cart.Items[0].OwnerID)

	// The customer can keep mutating the adopted cart.
	cart, err = svc.ChangeQuantity(ctx, customer, "p1", 2)
	require.NoError(t, err)
	assertTotals(t, cart, 2, 20)

	anonCart, err := svc.GetCart(ctx, anon)
	require.NoError(t, err)
	assert.Empty(t, anonCart.Items)
}

func TestCart_AdoptCart_KeepsExistingCustomerCart(t *testing.T) {
	svc, _, store := newCartService(t)
	ctx := context.Background()
	seedProduct(t, store, "p1", 10)
	seedProduct(t, store, "p2", 20)
	anon := domain.AnonymousOwner("sess-keep")
	customer := domain.CustomerOwner("cust-2", "sess-keep")

	_, err := svc.AddItem(ctx, anon, "p1")
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, customer, "p2")
	require.NoError(t, err)

	adopted, err := svc.AdoptCart(ctx, anon, customer)
	require.NoError(t, err)
	assert.False(t, adopted)

	cart, err := svc.GetCart(ctx, customer)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "p2", cart.Items[0].Product.Slug)
}

func TestCart_AdoptCart_NothingToAdopt(t *testing.T) {
	svc, _, _ := newCartService(t)
	ctx := context.Background()

	adopted, err := svc.AdoptCart(ctx, domain.AnonymousOwner("none"), domain.CustomerOwner("cust-3", "none"))
	require.NoError(t, err)
	assert.False(t, adopted)

	_, err = svc.GetCart(ctx, domain.AnonymousOwner("empty"))
	require.NoError(t, err)
	adopted, err = svc.AdoptCart(ctx, domain.AnonymousOwner("empty"), domain.CustomerOwner("cust-3", "empty"))
	require.NoError(t, err)
	assert.False(t, adopted)
}

func TestCart_AdoptCart_RejectsWrongOwners(t *testing.T) {
	svc, _, store := newCartService(t)
	ctx := context.Background()
	seedProduct(t, store, "p1", 10)

	_, err := svc.AddItem(ctx, domain.CustomerOwner("cust-4", "s4"), "p1")
	require.NoError(t, err)

	adopted, err := svc.AdoptCart(ctx, domain.CustomerOwner("cust-4", "s4"), domain.CustomerOwner("cust-5", "s4"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	assert.False(t, adopted)

	adopted, err = svc.AdoptCart(ctx, domain.AnonymousOwner("s4"), domain.AnonymousOwner("s5"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	assert.False(t, adopted)

	cart, err := svc.GetCart(ctx, domain.CustomerOwner("cust-4", "s4"))
	require.NoError(t, err)
	assert.Equal(t, "customer:cust-4", cart.OwnerID)
	assert.Equal(t, 1, cart.TotalQuantity)
}
