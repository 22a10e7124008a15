package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/forrex322/shop/internal/domain"
	"github.com/forrex322/shop/internal/event"
	"github.com/forrex322/shop/internal/repository"
	apperrors "github.com/forrex322/shop/pkg/errors"
	"github.com/forrex322/shop/pkg/tracing"
)

// CartService implements the cart operations. Every mutation runs in one
// transaction that locks the cart row, applies the change and stores the
// recomputed totals.
type CartService struct {
	store    repository.Store
	producer EventPublisher
	logger   *slog.Logger
	now      func() time.Time
}

// NewCartService creates a cart service.
func NewCartService(store repository.Store, producer EventPublisher, logger *slog.Logger) *CartService {
	return &CartService{
		store:    store,
		producer: producer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GetCart returns the owner's open cart with its lines and current totals,
// creating an empty cart on first use.
func (s *CartService) GetCart(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	cart, err := s.store.Carts().GetOrCreateOpen(ctx, owner.Key())
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}

	items, err := s.store.Carts().ListItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items
	cart.Recalculate()
	return cart, nil
}

// AddItem puts one unit of the product into the cart. Adding a product that
// is already in the cart leaves its line untouched.
func (s *CartService) AddItem(ctx context.Context, owner domain.Owner, productSlug string) (*domain.Cart, error) {
	product, err := s.productBySlug(ctx, productSlug)
	if err != nil {
		return nil, err
	}

	var inserted bool
	cart, err := s.mutate(ctx, owner, func(carts repository.CartRepository, cart *domain.Cart) error {
		item := &domain.CartItem{
			ID:        uuid.New().String(),
			CartID:    cart.ID,
			OwnerID:   cart.OwnerID,
			ProductID: product.ID,
			Quantity:  1,
			CreatedAt: s.now(),
		}
		var err error
		inserted, err = carts.AddItemIfAbsent(ctx, item)
		if err != nil {
			return fmt.Errorf("add cart item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if inserted {
		s.committed(ctx, cart, event.CartActionAdded, product.ID)
	}
	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("cart_id", cart.ID),
		slog.String("product_id", product.ID),
		slog.Bool("inserted", inserted),
	)
	return cart, nil
}

// RemoveItem deletes the product's line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, owner domain.Owner, productSlug string) (*domain.Cart, error) {
	product, err := s.productBySlug(ctx, productSlug)
	if err != nil {
		return nil, err
	}

	cart, err := s.mutate(ctx, owner, func(carts repository.CartRepository, cart *domain.Cart) error {
		return carts.DeleteItem(ctx, cart.ID, product.ID)
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, cart, event.CartActionRemoved, product.ID)
	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("cart_id", cart.ID),
		slog.String("product_id", product.ID),
	)
	return cart, nil
}

// ChangeQuantity sets the quantity of the product's line.
func (s *CartService) ChangeQuantity(ctx context.Context, owner domain.Owner, productSlug string, qty int) (*domain.Cart, error) {
	if err := domain.ValidateQuantity(qty); err != nil {
		return nil, err
	}

	product, err := s.productBySlug(ctx, productSlug)
	if err != nil {
		return nil, err
	}

	cart, err := s.mutate(ctx, owner, func(carts repository.CartRepository, cart *domain.Cart) error {
		return carts.SetItemQuantity(ctx, cart.ID, product.ID, qty)
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, cart, event.CartActionQuantityChanged, product.ID)
	s.logger.InfoContext(ctx, "cart item quantity changed",
		slog.String("cart_id", cart.ID),
		slog.String("product_id", product.ID),
		slog.Int("quantity", qty),
	)
	return cart, nil
}

// AdoptCart hands the anonymous owner's open cart to the customer after
// login. Nothing happens when the anonymous cart is empty or the customer
// already has an open cart.
func (s *CartService) AdoptCart(ctx context.Context, from, to domain.Owner) (bool, error) {
	if !domain.IsAnonymousKey(from.Key()) || !to.IsCustomer() {
		return false, apperrors.InvalidArgument("only an anonymous cart can be adopted by a customer")
	}

	var adopted *domain.Cart
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		carts := repos.Carts()

		header, err := carts.FindOpen(ctx, from.Key())
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("find anonymous cart: %w", err)
		}

		cart, err := carts.GetForUpdate(ctx, header.ID)
		if err != nil {
			return fmt.Errorf("lock anonymous cart: %w", err)
		}
		if cart.Finalized {
			return nil
		}
		items, err := carts.ListItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}

		_, err = carts.FindOpen(ctx, to.Key())
		switch {
		case err == nil:
			return nil
		case !errors.Is(err, apperrors.ErrNotFound):
			return fmt.Errorf("find customer cart: %w", err)
		}

		if err := carts.TransferOwner(ctx, cart.ID, to.Key()); err != nil {
			if errors.Is(err, apperrors.ErrInvalidState) {
				return nil
			}
			return err
		}

		cart.OwnerID = to.Key()
		cart.Items = items
		cart.Recalculate()
		adopted = cart
		return nil
	})
	if err != nil {
		return false, err
	}
	if adopted == nil {
		return false, nil
	}

	s.committed(ctx, adopted, event.CartActionAdopted, "")
	s.logger.InfoContext(ctx, "anonymous cart adopted",
		slog.String("cart_id", adopted.ID),
		slog.String("owner_id", adopted.OwnerID),
	)
	return true, nil
}

// mutate runs change against the owner's locked open cart, then reloads the
// lines and stores freshly computed totals in the same transaction.
func (s *CartService) mutate(ctx context.Context, owner domain.Owner, change func(repository.CartRepository, *domain.Cart) error) (_ *domain.Cart, err error) {
	ctx, span := startSpan(ctx, "cart.mutate", owner)
	defer func() { tracing.End(span, err) }()

	var out *domain.Cart
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		carts := repos.Carts()

		header, err := carts.GetOrCreateOpen(ctx, owner.Key())
		if err != nil {
			return fmt.Errorf("get or create cart: %w", err)
		}
		cart, err := carts.GetForUpdate(ctx, header.ID)
		if err != nil {
			return err
		}
		if err := cart.EnsureMutable(); err != nil {
			return err
		}

		if err := change(carts, cart); err != nil {
			return err
		}

		items, err := carts.ListItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		cart.Items = items
		cart.Recalculate()

		if err := carts.SaveTotals(ctx, cart); err != nil {
			return fmt.Errorf("save cart totals: %w", err)
		}
		out = cart
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CartService) productBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	product, err := s.store.Catalog().GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

func (s *CartService) committed(ctx context.Context, cart *domain.Cart, action, productID string) {
	cartMutationsTotal.WithLabelValues(action).Inc()

	if err := s.producer.PublishCartUpdated(ctx, cart, action, productID); err != nil {
		s.logger.WarnContext(ctx, "failed to publish cart.updated event",
			slog.String("cart_id", cart.ID),
			slog.String("error", err.Error()),
		)
	}
}
