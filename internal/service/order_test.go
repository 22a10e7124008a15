package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forrex322/shop/internal/domain"
	"github.com/forrex322/shop/internal/repository/postgres"
	"github.com/forrex322/shop/pkg/database"
	apperrors "github.com/forrex322/shop/pkg/errors"
	"github.com/forrex322/shop/pkg/pagination"
)

func validCheckout() CheckoutInput {
	return CheckoutInput{
		FirstName:  "Anna",
		LastName:   "Smirnova",
		Phone:      "+7 912 345-67-89",
		Address:    "Lenina 1, apt 5",
		BuyingType: "delivery",
		OrderDate:  "2026-11-02",
		Comment:    "Call before delivery",
	}
}

type orderFixture struct {
	store    *faultyStore
	carts    *CartService
	orders   *OrderService
	pub      *recordingPublisher
	customer *domain.Customer
	owner    domain.Owner
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	store := &faultyStore{Store: newTestStore(t)}
	pub := &recordingPublisher{}
	customer := seedCustomer(t, store, "anna", "")
	seedProduct(t, store, "p1", 10)
	seedProduct(t, store, "p2", 15)

	return &orderFixture{
		store:    store,
		carts:    NewCartService(store, pub, newTestLogger()),
		orders:   NewOrderService(store, pub, newTestLogger()),
		pub:      pub,
		customer: customer,
		owner:    domain.CustomerOwner(customer.ID, "sess-1"),
	}
}

func (f *orderFixture) fillCart(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.carts.AddItem(ctx, f.owner, "p1")
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, f.owner, "p2")
	require.NoError(t, err)
	_, err = f.carts.ChangeQuantity(ctx, f.owner, "p2", 2)
	require.NoError(t, err)
}

// === Checkout input ===

func TestCheckoutInput_ContactFields(t *testing.T) {
	contact, err := validCheckout().ContactFields()
	require.NoError(t, err)
	assert.Equal(t, domain.BuyingTypeDelivery, contact.BuyingType)
	assert.Equal(t, time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC), contact.OrderDate)
	assert.Equal(t, "Call before delivery", contact.Comment)
}

func TestCheckoutInput_ListsEveryMissingField(t *testing.T) {
	_, err := CheckoutInput{}.ContactFields()
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	for _, field := range []string{"first_name", "last_name", "phone", "address", "buying_type", "order_date", "comment"} {
		assert.Contains(t, appErr.Fields, field)
	}
}

func TestCheckoutInput_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*CheckoutInput)
		field  string
	}{
		{"blank comment", func(in *CheckoutInput) { in.Comment = "   " }, "comment"},
		{"unknown buying type", func(in *CheckoutInput) { in.BuyingType = "drone" }, "buying_type"},
		{"bad date", func(in *CheckoutInput) { in.OrderDate = "02.11.2026" }, "order_date"},
		{"bad phone", func(in *CheckoutInput) { in.Phone = "call me" }, "phone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validCheckout()
			tt.modify(&in)

			_, err := in.ContactFields()
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}
}

// === PlaceOrder ===

func TestPlaceOrder_Success(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	f.fillCart(t)
	before := testutil.ToFloat64(ordersPlacedTotal)

	order, err := f.orders.PlaceOrder(ctx, f.owner, validCheckout())
	require.NoError(t, err)

	assert.Equal(t, f.customer.ID, order.CustomerID)
	assert.Equal(t, domain.OrderStatusNew, order.Status)
	assert.Equal(t, 3, order.TotalQuantity)
	assert.Equal(t, int64(40), order.TotalPrice)
	assert.Equal(t, before+1, testutil.ToFloat64(ordersPlacedTotal))

	// The cart is finalized and bound to the order.
	_, err = f.store.Carts().FindOpen(ctx, f.owner.Key())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	finalized, err := f.store.Carts().GetForUpdate(ctx, order.CartID)
	require.NoError(t, err)
	assert.True(t, finalized.Finalized)
	assert.Equal(t, order.ID, finalized.OrderID)

	// The customer sees the order.
	page, err := f.orders.ListOrders(ctx, f.owner, pagination.DefaultParams())
	require.NoError(t, err)
	require.Equal(t, 1, page.TotalCount)
	assert.Equal(t, order.ID, page.Data[0].ID)

	got, err := f.orders.GetOrder(ctx, f.owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Call before delivery", got.Comment)

	require.Len(t, f.pub.orders, 1)
	assert.Equal(t, order.ID, f.pub.orders[0].ID)

	// The next view of the cart starts a fresh one.
	next, err := f.carts.GetCart(ctx, f.owner)
	require.NoError(t, err)
	assert.NotEqual(t, order.CartID, next.ID)
	assert.Empty(t, next.Items)
}

func TestPlaceOrder_ValidationLeavesCartOpen(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	f.fillCart(t)

	in := validCheckout()
	in.Phone = ""
	_, err := f.orders.PlaceOrder(ctx, f.owner, in)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	cart, err := f.carts.GetCart(ctx, f.owner)
	require.NoError(t, err)
	assert.False(t, cart.Finalized)
	assert.Len(t, cart.Items, 2)
}

func TestPlaceOrder_Anonymous(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.orders.PlaceOrder(context.Background(), domain.AnonymousOwner("sess-1"), validCheckout())
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	_, err := f.orders.PlaceOrder(ctx, f.owner, validCheckout())
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = f.carts.GetCart(ctx, f.owner)
	require.NoError(t, err)
	_, err = f.orders.PlaceOrder(ctx, f.owner, validCheckout())
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestPlaceOrder_AlreadyFinalized(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	f.fillCart(t)
	f.store.finalizeOnLock = true

	_, err := f.orders.PlaceOrder(ctx, f.owner, validCheckout())
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	assert.NotErrorIs(t, err, apperrors.ErrCommitFailed)
}

func TestPlaceOrder_FinalizeFailureRollsBack(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	f.fillCart(t)
	f.store.finalizeErr = errors.New("disk I/O error")
	before := testutil.ToFloat64(orderCommitFailuresTotal)

	_, err := f.orders.PlaceOrder(ctx, f.owner, validCheckout())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrCommitFailed)
	assert.Equal(t, before+1, testutil.ToFloat64(orderCommitFailuresTotal))

	page, err := f.orders.ListOrders(ctx, f.owner, pagination.DefaultParams())
	require.NoError(t, err)
	assert.Zero(t, page.TotalCount)

	cart, err := f.carts.GetCart(ctx, f.owner)
	require.NoError(t, err)
	assert.False(t, cart.Finalized)
	assert.Len(t, cart.Items, 2)
	assert.Empty(t, f.pub.orders)

	// The customer can retry once storage recovers.
	f.store.finalizeErr = nil
	order, err := f.orders.PlaceOrder(ctx, f.owner, validCheckout())
	require.NoError(t, err)
	assert.Equal(t, cart.ID, order.CartID)
}

func TestPlaceOrder_AttachFailureRollsBack(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	f.fillCart(t)
	f.store.attachErr = errors.New("constraint failed")

	_, err := f.orders.PlaceOrder(ctx, f.owner, validCheckout())
	assert.ErrorIs(t, err, apperrors.ErrCommitFailed)

	cart, err := f.store.Carts().FindOpen(ctx, f.owner.Key())
	require.NoError(t, err)
	assert.False(t, cart.Finalized)
	assert.Empty(t, cart.OrderID)
}

// orderInsertArgs matches the INSERT INTO orders arguments for validCheckout
// placed by cust-1. The generated ID, status and timestamps are not pinned.
func orderInsertArgs(cartID string, qty int, price int64) []any {
	return []any{
		pgxmock.AnyArg(), "cust-1", cartID, "Anna", "Smirnova", "+7 912 345-67-89", "Lenina 1, apt 5",
		"delivery", pgxmock.AnyArg(), "Call before delivery", pgxmock.AnyArg(), qty, price, pgxmock.AnyArg(),
	}
}

func TestPlaceOrder_Postgres_FinalizeFailureRollsBack(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	store := postgres.NewStore(mock, nil)
	svc := NewOrderService(store, &recordingPublisher{}, newTestLogger())
	owner := domain.CustomerOwner("cust-1", "sess-1")
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	cartCols := []string{"id", "owner_id", "total_quantity", "total_price", "finalized", "order_id", "created_at", "updated_at"}
	itemCols := []string{
		"id", "cart_id", "owner_id", "quantity", "created_at",
		"p_id", "category_id", "title", "slug", "description", "image_url", "price", "p_created_at",
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM carts WHERE owner_id = \$1 AND NOT finalized`).
		WithArgs("customer:cust-1").
		WillReturnRows(pgxmock.NewRows(cartCols).AddRow("cart-1", "customer:cust-1", 2, int64(2000), false, "", now, now))
	mock.ExpectQuery(`FROM carts WHERE id = \$1 FOR UPDATE`).
		WithArgs("cart-1").
		WillReturnRows(pgxmock.NewRows(cartCols).AddRow("cart-1", "customer:cust-1", 2, int64(2000), false, "", now, now))
	mock.ExpectQuery(`FROM cart_items ci`).
		WithArgs("cart-1").
		WillReturnRows(pgxmock.NewRows(itemCols).
			AddRow("item-1", "cart-1", "customer:cust-1", 2, now, "prod-1", "cat-1", "Phone", "phone", "", "", int64(1000), now))
	mock.ExpectExec(`UPDATE carts SET total_quantity`).
		WithArgs("cart-1", 2, int64(2000), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO orders`).
		WithArgs(orderInsertArgs("cart-1", 2, 2000)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE carts SET finalized = TRUE`).
		WithArgs("cart-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectRollback()

	_, err = svc.PlaceOrder(context.Background(), owner, validCheckout())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrCommitFailed)
	assert.Contains(t, err.Error(), "connection reset by peer")
	assert.Equal(t, 1, strings.Count(err.Error(), "finalize cart"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrder_Postgres_CommitFailure(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	store := postgres.NewStore(mock, nil)
	pub := &recordingPublisher{}
	svc := NewOrderService(store, pub, newTestLogger())
	owner := domain.CustomerOwner("cust-1", "sess-1")
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	cartCols := []string{"id", "owner_id", "total_quantity", "total_price", "finalized", "order_id", "created_at", "updated_at"}
	itemCols := []string{
		"id", "cart_id", "owner_id", "quantity", "created_at",
		"p_id", "category_id", "title", "slug", "description", "image_url", "price", "p_created_at",
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM carts WHERE owner_id`).
		WithArgs("customer:cust-1").
		WillReturnRows(pgxmock.NewRows(cartCols).AddRow("cart-1", "customer:cust-1", 1, int64(500), false, "", now, now))
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("cart-1").
		WillReturnRows(pgxmock.NewRows(cartCols).AddRow("cart-1", "customer:cust-1", 1, int64(500), false, "", now, now))
	mock.ExpectQuery(`FROM cart_items ci`).
		WithArgs("cart-1").
		WillReturnRows(pgxmock.NewRows(itemCols).
			AddRow("item-1", "cart-1", "customer:cust-1", 1, now, "prod-1", "cat-1", "Case", "case", "", "", int64(500), now))
	mock.ExpectExec(`UPDATE carts SET total_quantity`).
		WithArgs("cart-1", 1, int64(500), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO orders`).
		WithArgs(orderInsertArgs("cart-1", 1, 500)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE carts SET finalized = TRUE`).
		WithArgs("cart-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO customer_orders`).
		WithArgs("cust-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit().WillReturnError(errors.New("could not serialize access"))

	_, err = svc.PlaceOrder(context.Background(), owner, validCheckout())
	assert.ErrorIs(t, err, apperrors.ErrCommitFailed)
	assert.Empty(t, pub.orders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// === Orders ===

func TestListOrders_RequiresCustomer(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.orders.ListOrders(context.Background(), domain.AnonymousOwner("s"), pagination.DefaultParams())
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestGetOrder_OtherCustomer(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	f.fillCart(t)

	order, err := f.orders.PlaceOrder(ctx, f.owner, validCheckout())
	require.NoError(t, err)

	_, err = f.orders.GetOrder(ctx, domain.CustomerOwner("someone-else", "s2"), order.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
