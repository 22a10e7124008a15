package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forrex322/shop/internal/domain"
	"github.com/forrex322/shop/internal/repository"
	apperrors "github.com/forrex322/shop/pkg/errors"
	"github.com/forrex322/shop/pkg/pagination"
	"github.com/forrex322/shop/pkg/tracing"
	"github.com/forrex322/shop/pkg/validator"
)

// CheckoutInput is the checkout form as submitted.
type CheckoutInput struct {
	FirstName  string `json:"first_name" form:"first_name" validate:"required,notblank,max=255"`
	LastName   string `json:"last_name" form:"last_name" validate:"required,notblank,max=255"`
	Phone      string `json:"phone" form:"phone" validate:"required,phone"`
	Address    string `json:"address" form:"address" validate:"required,notblank,max=1024"`
	BuyingType string `json:"buying_type" form:"buying_type" validate:"required,oneof=self delivery"`
	OrderDate  string `json:"order_date" form:"order_date" validate:"required,datetime=2006-01-02"`
	Comment    string `json:"comment" form:"comment" validate:"required,notblank,max=1024"`
}

// ContactFields validates the input and converts it to domain.ContactFields.
// Every problem is reported at once as a Validation error.
func (in CheckoutInput) ContactFields() (domain.ContactFields, error) {
	if err := validator.Validate(in); err != nil {
		var valErr *validator.ValidationError
		if errors.As(err, &valErr) {
			return domain.ContactFields{}, apperrors.Validation(valErr.Fields())
		}
		return domain.ContactFields{}, err
	}

	date, err := time.Parse(domain.OrderDateLayout, in.OrderDate)
	if err != nil {
		return domain.ContactFields{}, apperrors.Validation(map[string]string{"order_date": "must be a date in the form " + domain.OrderDateLayout})
	}

	return domain.ContactFields{
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Phone:      strings.TrimSpace(in.Phone),
		Address:    strings.TrimSpace(in.Address),
		BuyingType: domain.BuyingType(in.BuyingType),
		OrderDate:  date,
		Comment:    strings.TrimSpace(in.Comment),
	}, nil
}

// OrderService turns carts into orders.
type OrderService struct {
	store    repository.Store
	producer EventPublisher
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrderService creates an order service.
func NewOrderService(store repository.Store, producer EventPublisher, logger *slog.Logger) *OrderService {
	return &OrderService{
		store:    store,
		producer: producer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder commits the owner's open cart as an order. The order insert,
// the cart finalization and the customer association happen in one
// transaction; if any of them fails nothing is kept, the cart stays open and
// CommitFailed is returned.
func (s *OrderService) PlaceOrder(ctx context.Context, owner domain.Owner, input CheckoutInput) (_ *domain.Order, err error) {
	ctx, span := startSpan(ctx, "order.place", owner)
	defer func() { tracing.End(span, err) }()

	if !owner.IsCustomer() {
		return nil, apperrors.Unauthenticated("log in to place an order")
	}

	contact, err := input.ContactFields()
	if err != nil {
		return nil, err
	}

	orderID := uuid.New().String()
	var placed *domain.Order

	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		carts := repos.Carts()

		header, err := carts.FindOpen(ctx, owner.Key())
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.InvalidState("cart is empty")
		}
		if err != nil {
			return err
		}

		cart, err := carts.GetForUpdate(ctx, header.ID)
		if err != nil {
			return err
		}
		if err := cart.EnsureMutable(); err != nil {
			return err
		}

		items, err := carts.ListItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		cart.Items = items
		if cart.IsEmpty() {
			return apperrors.InvalidState("cart is empty")
		}
		cart.Recalculate()

		order := domain.NewOrder(orderID, owner.CustomerID, cart, contact, s.now())

		if err := carts.SaveTotals(ctx, cart); err != nil {
			return apperrors.CommitFailed(err)
		}
		if err := repos.Orders().Create(ctx, order); err != nil {
			return apperrors.CommitFailed(err)
		}
		if err := carts.Finalize(ctx, cart.ID, order.ID); err != nil {
			return apperrors.CommitFailed(err)
		}
		if err := repos.Customers().AttachOrder(ctx, owner.CustomerID, order.ID); err != nil {
			return apperrors.CommitFailed(err)
		}

		placed = order
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			err = apperrors.CommitFailed(err)
		}
		if errors.Is(err, apperrors.ErrCommitFailed) {
			orderCommitFailuresTotal.Inc()
			s.logger.ErrorContext(ctx, "order commit failed",
				slog.String("customer_id", owner.CustomerID),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	ordersPlacedTotal.Inc()
	if err := s.producer.PublishOrderPlaced(ctx, placed); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.placed event",
			slog.String("order_id", placed.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", placed.ID),
		slog.String("customer_id", placed.CustomerID),
		slog.String("cart_id", placed.CartID),
		slog.Int64("total_price", placed.TotalPrice),
	)
	return placed, nil
}

// ListOrders returns a page of the customer's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, owner domain.Owner, page pagination.Params) (pagination.Result[domain.Order], error) {
	if !owner.IsCustomer() {
		return pagination.Result[domain.Order]{}, apperrors.Unauthenticated("log in to see your orders")
	}

	orders, total, err := s.store.Orders().ListByCustomer(ctx, owner.CustomerID, page)
	if err != nil {
		return pagination.Result[domain.Order]{}, fmt.Errorf("list orders: %w", err)
	}
	return pagination.NewResult(orders, total, page), nil
}

// GetOrder returns one of the customer's orders. Orders of other customers
// are reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, owner domain.Owner, id string) (*domain.Order, error) {
	if !owner.IsCustomer() {
		return nil, apperrors.Unauthenticated("log in to see your orders")
	}

	order, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.CustomerID != owner.CustomerID {
		return nil, apperrors.NotFound("order", id)
	}
	return order, nil
}
