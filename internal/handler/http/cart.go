package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/forrex322/shop/pkg/errors"
	"github.com/forrex322/shop/pkg/httputil"
)

// ChangeQuantityRequest is the body of a quantity change.
type ChangeQuantityRequest struct {
	Quantity int `json:"qty"`
}

// GetCart handles GET /api/v1/cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.GetCart(r.Context(), ownerFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// AddToCart handles POST /api/v1/cart/add/{slug}.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.AddItem(r.Context(), ownerFromContext(r.Context()), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, err, redirectCart)
		return
	}
	h.done(w, r, http.StatusOK, cart, httputil.InfoNotice(noticeItemAdded), redirectCart)
}

// RemoveFromCart handles POST /api/v1/cart/remove/{slug}.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.RemoveItem(r.Context(), ownerFromContext(r.Context()), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, err, redirectCart)
		return
	}
	h.done(w, r, http.StatusOK, cart, httputil.InfoNotice(noticeItemDeleted), redirectCart)
}

// ChangeQuantity handles POST /api/v1/cart/change-qty/{slug}. The quantity
// comes from a "qty" form field or JSON property.
func (h *Handler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	qty, err := readQuantity(r)
	if err != nil {
		h.fail(w, r, err, redirectCart)
		return
	}

	cart, err := h.carts.ChangeQuantity(r.Context(), ownerFromContext(r.Context()), chi.URLParam(r, "slug"), qty)
	if err != nil {
		h.fail(w, r, err, redirectCart)
		return
	}
	h.done(w, r, http.StatusOK, cart, httputil.InfoNotice(noticeQuantityChanged), redirectCart)
}

func readQuantity(r *http.Request) (int, error) {
	if !httputil.IsFormRequest(r) {
		var req ChangeQuantityRequest
		if err := decodeJSON(r, &req); err != nil {
			return 0, err
		}
		return req.Quantity, nil
	}

	if err := parseForm(r); err != nil {
		return 0, err
	}
	qty, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("qty")))
	if err != nil {
		return 0, apperrors.InvalidArgument("quantity must be a whole number")
	}
	return qty, nil
}
