package sqlite

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/forrex322/shop/internal/repository"
)

// Migrate creates the schema. It mirrors the Postgres migrations closely
// enough for the same invariants to hold: one open cart per owner and one
// line per (owner, cart, product).
func Migrate(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)
	if err := db.AutoMigrate(
		&categoryModel{},
		&productModel{},
		&customerModel{},
		&cartModel{},
		&cartItemModel{},
		&orderModel{},
		&customerOrderModel{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_open_owner ON carts (owner_id) WHERE finalized = 0`).Error; err != nil {
		return fmt.Errorf("create open cart index: %w", err)
	}
	return nil
}

// Store implements repository.Store on gorm. It is meant for SQLite, where
// the connection is pinned to one and BEGIN IMMEDIATE serializes writers.
type Store struct {
	db        *gorm.DB
	catalog   *CatalogRepository
	carts     *CartRepository
	orders    *OrderRepository
	customers *CustomerRepository
}

// NewStore wires the repositories over db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:        db,
		catalog:   NewCatalogRepository(db),
		carts:     NewCartRepository(db),
		orders:    NewOrderRepository(db),
		customers: NewCustomerRepository(db),
	}
}

func (s *Store) Catalog() repository.CatalogRepository { return s.catalog }
func (s *Store) Carts() repository.CartRepository { return s.carts }
func (s *Store) Orders() repository.OrderRepository { return s.orders }
func (s *Store) Customers() repository.CustomerRepository { return s.customers }

// Ping checks the underlying connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithinTx runs fn inside a gorm transaction, committing when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(txRepositories{
			carts:     NewCartRepository(tx),
			orders:    NewOrderRepository(tx),
			customers: NewCustomerRepository(tx),
		})
	})
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
