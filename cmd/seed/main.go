// Command seed populates the storefront database with a demo catalog and a
// demo customer account. Running it again skips rows that already exist.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/forrex322/shop/internal/app"
	"github.com/forrex322/shop/internal/config"
	"github.com/forrex322/shop/internal/domain"
	"github.com/forrex322/shop/internal/identity"
	"github.com/forrex322/shop/internal/repository"
	pkgconfig "github.com/forrex322/shop/pkg/config"
	apperrors "github.com/forrex322/shop/pkg/errors"
	"github.com/forrex322/shop/pkg/logger"
	"github.com/forrex322/shop/pkg/slug"
)

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

type seedConfig struct {
	config.Storage

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Username  string `env:"SEED_USERNAME" envDefault:"demo"`
	Password  string `env:"SEED_PASSWORD" envDefault:"demo-password"`
	FirstName string `env:"SEED_FIRST_NAME" envDefault:"Demo"`
	LastName  string `env:"SEED_LAST_NAME" envDefault:"Customer"`
}

// --------------------------------------------------------------------------
// Seed data definitions
// --------------------------------------------------------------------------

type productDef struct {
	title       string
	description string
	category    string
	price       int64 // cents
}

var categories = []string{
	"Smartphones",
	"Laptops",
	"Headphones",
	"Home & Kitchen",
}

var products = []productDef{
	// Smartphones
	{"iPhone 15 Pro", "6.1-inch display, titanium frame and a 48MP main camera.", "Smartphones", 99900},
	{"Galaxy S24", "6.2-inch AMOLED display with a 120Hz refresh rate.", "Smartphones", 79900},
	{"Pixel 8", "Tensor G3 chip with seven years of OS updates.", "Smartphones", 69900},
	// Laptops
	{"MacBook Air 13", "M3 chip, 16GB memory and an 18-hour battery.", "Laptops", 119900},
	{"ThinkPad X1 Carbon", "14-inch business ultrabook weighing 1.1kg.", "Laptops", 149900},
	// Headphones
	{"WH-1000XM5", "Over-ear noise cancelling headphones with 30-hour battery life.", "Headphones", 39900},
	{"AirPods Pro", "In-ear buds with adaptive transparency.", "Headphones", 24900},
	// Home & Kitchen
	{"Coffee Maker", "12-cup programmable drip coffee brewer with a thermal carafe.", "Home & Kitchen", 4999},
	{"Cast Iron Skillet", "Pre-seasoned 12-inch skillet, oven safe to 260C.", "Home & Kitchen", 3499},
}

// --------------------------------------------------------------------------
// main
// --------------------------------------------------------------------------

func main() {
	var cfg seedConfig
	if err := pkgconfig.Load(&cfg); err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := cfg.Storage.Validate(); err != nil {
		slog.Error("invalid config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := app.OpenStore(ctx, cfg.Storage, log)
	if err != nil {
		log.Error("failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	if err := run(ctx, store, cfg, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		store.Close()
		os.Exit(1)
	}
	log.Info("seed complete")
}

func run(ctx context.Context, store repository.Store, cfg seedConfig, log *slog.Logger) error {
	categoryIDs, err := seedCategories(ctx, store.Catalog(), log)
	if err != nil {
		return err
	}
	if err := seedProducts(ctx, store.Catalog(), categoryIDs, log); err != nil {
		return err
	}
	return seedCustomer(ctx, store.Customers(), cfg, log)
}

// seedCategories returns category IDs keyed by name.
func seedCategories(ctx context.Context, catalog repository.CatalogRepository, log *slog.Logger) (map[string]string, error) {
	ids := make(map[string]string, len(categories))
	for _, name := range categories {
		s := slug.Generate(name)

		existing, err := catalog.GetCategoryBySlug(ctx, s)
		switch {
		case err == nil:
			ids[name] = existing.ID
			log.Debug("category exists", slog.String("slug", s))
			continue
		case !errors.Is(err, apperrors.ErrNotFound):
			return nil, fmt.Errorf("lookup category %q: %w", s, err)
		}

		c := domain.Category{ID: uuid.NewString(), Name: name, Slug: s}
		if err := catalog.CreateCategory(ctx, &c); err != nil {
			return nil, fmt.Errorf("create category %q: %w", name, err)
		}
		ids[name] = c.ID
		log.Info("category created", slog.String("name", name), slog.String("slug", s))
	}
	return ids, nil
}

func seedProducts(ctx context.Context, catalog repository.CatalogRepository, categoryIDs map[string]string, log *slog.Logger) error {
	seen := make(map[string]bool, len(products))
	for _, def := range products {
		categoryID, ok := categoryIDs[def.category]
		if !ok {
			return fmt.Errorf("product %q: unknown category %q", def.title, def.category)
		}

		base := slug.Generate(def.title)
		if _, err := catalog.GetProductBySlug(ctx, base); err == nil {
			seen[base] = true
			log.Debug("product exists", slog.String("slug", base))
			continue
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("lookup product %q: %w", base, err)
		}

		p := domain.Product{
			ID:          uuid.NewString(),
			CategoryID:  categoryID,
			Title:       def.title,
			Slug:        slug.Unique(base, func(s string) bool { return seen[s] }),
			Description: def.description,
			Price:       def.price,
			CreatedAt:   time.Now().UTC(),
		}
		if err := catalog.CreateProduct(ctx, &p); err != nil {
			return fmt.Errorf("create product %q: %w", def.title, err)
		}
		seen[p.Slug] = true
		log.Info("product created",
			slog.String("slug", p.Slug),
			slog.Int64("price", p.Price),
		)
	}
	return nil
}

func seedCustomer(ctx context.Context, customers repository.CustomerRepository, cfg seedConfig, log *slog.Logger) error {
	if _, err := customers.GetByUsername(ctx, cfg.Username); err == nil {
		log.Info("demo customer exists", slog.String("username", cfg.Username))
		return nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("lookup customer %q: %w", cfg.Username, err)
	}

	hash, err := identity.HashPassword(cfg.Password)
	if err != nil {
		return err
	}
	c := domain.Customer{
		ID:           uuid.NewString(),
		UserID:       uuid.NewString(),
		Username:     cfg.Username,
		PasswordHash: hash,
		FirstName:    cfg.FirstName,
		LastName:     cfg.LastName,
		CreatedAt:    time.Now().UTC(),
	}
	if err := customers.Create(ctx, &c); err != nil {
		return fmt.Errorf("create customer %q: %w", cfg.Username, err)
	}
	log.Info("demo customer created", slog.String("username", cfg.Username))
	return nil
}
