package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/forrex322/shop/internal/domain"
	"github.com/forrex322/shop/internal/service"
	apperrors "github.com/forrex322/shop/pkg/errors"
	"github.com/forrex322/shop/pkg/httputil"
	"github.com/forrex322/shop/pkg/pagination"
)

type checkoutPage struct {
	Cart        *domain.Cart        `json:"cart"`
	Categories  []domain.Category   `json:"categories"`
	BuyingTypes []domain.BuyingType `json:"buying_types"`
}

// Checkout handles GET /api/v1/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cart, err := h.carts.GetCart(ctx, ownerFromContext(ctx))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	categories, err := h.catalog.Categories(ctx)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: checkoutPage{
		Cart:        cart,
		Categories:  categories,
		BuyingTypes: domain.BuyingTypes(),
	}})
}

// PlaceOrder handles POST /api/v1/orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	in, err := readCheckout(r)
	if err != nil {
		h.fail(w, r, err, redirectCheckout)
		return
	}

	order, err := h.orders.PlaceOrder(r.Context(), ownerFromContext(r.Context()), in)
	if err != nil {
		redirect := redirectCheckout
		if errors.Is(err, apperrors.ErrUnauthenticated) {
			redirect = redirectLogin
		}
		h.fail(w, r, err, redirect)
		return
	}
	h.done(w, r, http.StatusCreated, order, httputil.InfoNotice(noticeOrderPlaced), redirectHome)
}

// ListOrders handles GET /api/v1/orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, err := h.orders.ListOrders(r.Context(), ownerFromContext(r.Context()), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: page})
}

// GetOrder handles GET /api/v1/orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(r.Context(), ownerFromContext(r.Context()), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

func readCheckout(r *http.Request) (service.CheckoutInput, error) {
	var in service.CheckoutInput
	if !httputil.IsFormRequest(r) {
		err := decodeJSON(r, &in)
		return in, err
	}

	if err := parseForm(r); err != nil {
		return in, err
	}
	in.FirstName = r.PostFormValue("first_name")
	in.LastName = r.PostFormValue("last_name")
	in.Phone = r.PostFormValue("phone")
	in.Address = r.PostFormValue("address")
	in.BuyingType = r.PostFormValue("buying_type")
	in.OrderDate = r.PostFormValue("order_date")
	in.Comment = r.PostFormValue("comment")
	return in, nil
}
