package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/forrex322/shop/internal/domain"
	"github.com/forrex322/shop/internal/repository"
	"github.com/forrex322/shop/internal/repository/sqlite"
	"github.com/forrex322/shop/pkg/database"
)

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	db, err := database.NewSQLiteDB(database.SQLiteConfig{
		Path: "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, nil)
	require.NoError(t, err)
	require.NoError(t, sqlite.Migrate(context.Background(), db))

	s := sqlite.NewStore(db)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedProduct(t *testing.T, s repository.Store, slug string, price int64) domain.Product {
	t.Helper()
	ctx := context.Background()

	c := domain.Category{ID: uuid.NewString(), Name: "Cat " + slug, Slug: "cat-" + slug}
	require.NoError(t, s.Catalog().CreateCategory(ctx, &c))

	p := domain.Product{
		ID:         uuid.NewString(),
		CategoryID: c.ID,
		Title:      slug,
		Slug:       slug,
		Price:      price,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, s.Catalog().CreateProduct(ctx, &p))
	return p
}

func seedCustomer(t *testing.T, s repository.Store, username, passwordHash string) *domain.Customer {
	t.Helper()
	c := &domain.Customer{
		ID:           uuid.NewString(),
		UserID:       uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.Customers().Create(context.Background(), c))
	return c
}

// recordingPublisher keeps every event it is handed.
type recordingPublisher struct {
	mu     sync.Mutex
	carts  []string
	orders []*domain.Order
}

func (p *recordingPublisher) PublishCartUpdated(_ context.Context, _ *domain.Cart, action, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.carts = append(p.carts, action)
	return nil
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, o *domain.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, o)
	return nil
}

func (p *recordingPublisher) cartActions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.carts...)
}

// faultyStore wraps a real store and injects failures into transactional
// cart operations.
type faultyStore struct {
	repository.Store
	finalizeErr    error
	attachErr      error
	finalizeOnLock bool
}

func (s *faultyStore) WithinTx(ctx context.Context, fn func(repository.Repositories) error) error {
	return s.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		return fn(faultyRepos{Repositories: repos, s: s})
	})
}

type faultyRepos struct {
	repository.Repositories
	s *faultyStore
}

func (r faultyRepos) Carts() repository.CartRepository {
	return faultyCarts{CartRepository: r.Repositories.Carts(), s: r.s}
}

func (r faultyRepos) Customers() repository.CustomerRepository {
	return faultyCustomers{CustomerRepository: r.Repositories.Customers(), s: r.s}
}

type faultyCarts struct {
	repository.CartRepository
	s *faultyStore
}

// GetForUpdate reports the cart as finalized when finalizeOnLock is set, as
// if another request had ordered it first.
func (c faultyCarts) GetForUpdate(ctx context.Context, cartID string) (*domain.Cart, error) {
	cart, err := c.CartRepository.GetForUpdate(ctx, cartID)
	if err == nil && c.s.finalizeOnLock {
		cart.Finalized = true
	}
	return cart, err
}

func (c faultyCarts) Finalize(ctx context.Context, cartID, orderID string) error {
	if c.s.finalizeErr != nil {
		return c.s.finalizeErr
	}
	return c.CartRepository.Finalize(ctx, cartID, orderID)
}

type faultyCustomers struct {
	repository.CustomerRepository
	s *faultyStore
}

func (c faultyCustomers) AttachOrder(ctx context.Context, customerID, orderID string) error {
	if c.s.attachErr != nil {
		return c.s.attachErr
	}
	return c.CustomerRepository.AttachOrder(ctx, customerID, orderID)
}
