package repository

import (
	"context"

	"github.com/forrex322/shop/internal/domain"
	"github.com/forrex322/shop/pkg/pagination"
)

// ProductFilter narrows a catalog listing.
type ProductFilter struct {
	CategoryID string
	Page       pagination.Params
}

// CatalogRepository reads products and categories. The cart core never
// writes to it; the Create methods exist for seeding.
type CatalogRepository interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error)
	CreateCategory(ctx context.Context, c *domain.Category) error
	CreateProduct(ctx context.Context, p *domain.Product) error
}

// CartRepository persists carts and their lines.
type CartRepository interface {
	// GetOrCreateOpen returns the owner's open cart header, inserting an
	// empty one if none exists. Concurrent callers get the same cart.
	GetOrCreateOpen(ctx context.Context, ownerID string) (*domain.Cart, error)

	// FindOpen returns the owner's open cart header or ErrNotFound.
	FindOpen(ctx context.Context, ownerID string) (*domain.Cart, error)

	// GetForUpdate reads a cart header and locks the row until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, cartID string) (*domain.Cart, error)

	// ListItems returns the cart lines joined with their products.
	ListItems(ctx context.Context, cartID string) ([]domain.CartItem, error)

	// AddItemIfAbsent inserts item unless a line for the same owner, cart
	// and product already exists. It reports whether a row was inserted.
	AddItemIfAbsent(ctx context.Context, item *domain.CartItem) (bool, error)

	// DeleteItem removes the line for productID or returns ErrNotFound.
	DeleteItem(ctx context.Context, cartID, productID string) error

	// SetItemQuantity updates the line for productID or returns ErrNotFound.
	SetItemQuantity(ctx context.Context, cartID, productID string, qty int) error

	// SaveTotals stores the derived totals of cart.
	SaveTotals(ctx context.Context, cart *domain.Cart) error

	// Finalize marks an open cart as ordered. It fails with InvalidState if
	// the cart is already finalized.
	Finalize(ctx context.Context, cartID, orderID string) error

	// TransferOwner moves an open cart and its lines to another owner.
	TransferOwner(ctx context.Context, cartID, ownerID string) error
}

// OrderRepository persists orders.
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string, page pagination.Params) ([]domain.Order, int, error)
}

// CustomerRepository persists customers and their order associations.
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	GetByUsername(ctx context.Context, username string) (*domain.Customer, error)

	// Create inserts a customer, returning AlreadyExists on a duplicate
	// username or user ID.
	Create(ctx context.Context, c *domain.Customer) error

	// EnsureForIdentity returns the customer bound to identity.UserID,
	// creating it on first login.
	EnsureForIdentity(ctx context.Context, identity domain.Identity) (*domain.Customer, error)

	// AttachOrder appends orderID to the customer's orders.
	AttachOrder(ctx context.Context, customerID, orderID string) error
}

// Repositories are the repositories that take part in a unit of work.
type Repositories interface {
	Carts() CartRepository
	Orders() OrderRepository
	Customers() CustomerRepository
}

// Store is the storage backend. Repositories returned directly run in
// autocommit mode; WithinTx runs fn against transaction-bound ones and
// commits only if fn returns nil.
type Store interface {
	Repositories
	Catalog() CatalogRepository
	WithinTx(ctx context.Context, fn func(Repositories) error) error
	Ping(ctx context.Context) error
	Close() error
}
