package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/forrex322/shop/internal/domain"
	"github.com/forrex322/shop/pkg/httputil"
	"github.com/forrex322/shop/pkg/pagination"
)

type catalogPage struct {
	Products   pagination.Result[domain.Product] `json:"products"`
	Categories []domain.Category                 `json:"categories"`
	Cart       *domain.Cart                      `json:"cart"`
}

type productPage struct {
	Product *domain.Product `json:"product"`
	Cart    *domain.Cart    `json:"cart"`
}

type categoryPage struct {
	Category *domain.Category                 `json:"category"`
	Products pagination.Result[domain.Product] `json:"products"`
	Cart     *domain.Cart                      `json:"cart"`
}

// Catalog handles GET /api/v1/catalog.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.catalog.Products(ctx, "", pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	categories, err := h.catalog.Categories(ctx)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	cart, err := h.carts.GetCart(ctx, ownerFromContext(ctx))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: catalogPage{
		Products:   products,
		Categories: categories,
		Cart:       cart,
	}})
}

// ProductDetail handles GET /api/v1/products/{slug}.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	product, err := h.catalog.Product(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	cart, err := h.carts.GetCart(ctx, ownerFromContext(ctx))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: productPage{Product: product, Cart: cart}})
}

// CategoryDetail handles GET /api/v1/categories/{slug}.
func (h *Handler) CategoryDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	category, products, err := h.catalog.Category(ctx, chi.URLParam(r, "slug"), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	cart, err := h.carts.GetCart(ctx, ownerFromContext(ctx))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: categoryPage{
		Category: category,
		Products: products,
		Cart:     cart,
	}})
}
