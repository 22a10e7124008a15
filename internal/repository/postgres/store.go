package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/forrex322/shop/internal/repository"
	"github.com/forrex322/shop/pkg/database"
)

// Pool is the connection pool the store runs on. *pgxpool.Pool and pgxmock
// pools satisfy it.
type Pool interface {
	database.DBTX
	Ping(ctx context.Context) error
}

// Store implements repository.Store on PostgreSQL.
type Store struct {
	pool      Pool
	closeFn   func()
	catalog   *CatalogRepository
	carts     *CartRepository
	orders    *OrderRepository
	customers *CustomerRepository
}

// NewStore wires the repositories over pool. closeFn, if set, is called by
// Close.
func NewStore(pool Pool, closeFn func()) *Store {
	return &Store{
		pool:      pool,
		closeFn:   closeFn,
		catalog:   NewCatalogRepository(pool),
		carts:     NewCartRepository(pool),
		orders:    NewOrderRepository(pool),
		customers: NewCustomerRepository(pool),
	}
}

func (s *Store) Catalog() repository.CatalogRepository { return s.catalog }
func (s *Store) Carts() repository.CartRepository { return s.carts }
func (s *Store) Orders() repository.OrderRepository { return s.orders }
func (s *Store) Customers() repository.CustomerRepository { return s.customers }
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close releases the pool.
func (s *Store) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// WithinTx runs fn in a READ COMMITTED transaction. The transaction is
// rolled back if fn or the commit fails.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Repositories) error) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "WithinTx", "BEGIN")
	defer func() { end(err) }()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err = fn(txRepositories{
		carts:     NewCartRepository(tx),
		orders:    NewOrderRepository(tx),
		customers: NewCustomerRepository(tx),
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type txRepositories struct {
	carts     *CartRepository
	orders    *OrderRepository
	customers *CustomerRepository
}

func (r txRepositories) Carts() repository.CartRepository { return r.carts }
func (r txRepositories) Orders() repository.OrderRepository { return r.orders }
func (r txRepositories) Customers() repository.CustomerRepository { return r.customers }

func now() time.Time {
	return time.Now().UTC()
}

func trace(ctx context.Context, op, stmt string) (context.Context, func(error)) {
	return database.TraceQuery(ctx, database.SystemPostgres, op, stmt)
}
