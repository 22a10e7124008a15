package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/forrex322/shop/internal/service"
	"github.com/forrex322/shop/internal/session"
	apperrors "github.com/forrex322/shop/pkg/errors"
	"github.com/forrex322/shop/pkg/httputil"
	"github.com/forrex322/shop/pkg/logger"
)

// Pages a client is sent back to after an action.
const (
	redirectHome     = "/"
	redirectCart     = "/cart/"
	redirectCheckout = "/checkout/"
	redirectLogin    = "/login/"
)

// Notices shown after successful actions.
const (
	noticeItemAdded       = "Item successfully added"
	noticeItemDeleted     = "Item successfully deleted"
	noticeQuantityChanged = "Amount successfully changed"
	noticeOrderPlaced     = "Thanks for order! Our manager will phone you"
)

// Handler serves the storefront API.
type Handler struct {
	catalog  *service.CatalogService
	carts    *service.CartService
	orders   *service.OrderService
	auth     *service.AuthService
	sessions *session.Store
	logger   *slog.Logger
}

// NewHandler creates a storefront handler.
func NewHandler(
	catalog *service.CatalogService,
	carts *service.CartService,
	orders *service.OrderService,
	auth *service.AuthService,
	sessions *session.Store,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		catalog:  catalog,
		carts:    carts,
		orders:   orders,
		auth:     auth,
		sessions: sessions,
		logger:   logger,
	}
}

// done finishes a successful action. Browsers are redirected with 303 and
// find the notice in their session; API clients get the envelope.
func (h *Handler) done(w http.ResponseWriter, r *http.Request, status int, data any, notice *httputil.Notice, redirect string) {
	if notice != nil {
		h.pushNotice(r, *notice)
	}
	if httputil.WantsHTML(r) {
		http.Redirect(w, r, redirect, http.StatusSeeOther)
		return
	}
	httputil.WriteJSON(w, status, httputil.Response{Data: data, Notice: notice, Redirect: redirect})
}

// fail finishes a failed action the same way done does, with the error
// message as the notice.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, redirect string) {
	status, body := httputil.ErrorBody(r, err, h.logger)
	notice := &httputil.Notice{Level: httputil.NoticeError, Message: body.Message}
	h.pushNotice(r, *notice)

	if httputil.WantsHTML(r) {
		http.Redirect(w, r, redirect, http.StatusSeeOther)
		return
	}
	httputil.WriteJSON(w, status, httputil.Response{Error: body, Notice: notice, Redirect: redirect})
}

func (h *Handler) pushNotice(r *http.Request, n httputil.Notice) {
	sess := sessionFromContext(r.Context())
	if sess == nil {
		return
	}
	if err := h.sessions.PushNotice(r.Context(), sess.ID, n); err != nil {
		logger.FromContext(r.Context()).WarnContext(r.Context(), "failed to store notice",
			slog.String("error", err.Error()),
		)
	}
}

// decodeJSON reads a JSON body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.InvalidArgument("invalid request body: " + err.Error())
	}
	return nil
}

// parseForm reads an HTML form body.
func parseForm(r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return apperrors.InvalidArgument("invalid form body: " + err.Error())
	}
	return nil
}
