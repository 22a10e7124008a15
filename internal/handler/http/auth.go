package http

import (
	"net/http"

	"github.com/forrex322/shop/internal/identity"
	"github.com/forrex322/shop/pkg/httputil"
)

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(r)
	if err != nil {
		h.fail(w, r, err, redirectLogin)
		return
	}

	var sessionID string
	if sess := sessionFromContext(r.Context()); sess != nil {
		sessionID = sess.ID
	}

	res, err := h.auth.Login(r.Context(), sessionID, creds)
	if err != nil {
		h.fail(w, r, err, redirectLogin)
		return
	}
	h.done(w, r, http.StatusOK, res, nil, redirectHome)
}

// Logout handles POST /api/v1/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var sessionID string
	if sess := sessionFromContext(r.Context()); sess != nil {
		sessionID = sess.ID
	}

	if err := h.auth.Logout(r.Context(), sessionID); err != nil {
		h.fail(w, r, err, redirectHome)
		return
	}
	h.done(w, r, http.StatusOK, nil, nil, redirectHome)
}

// Notices handles GET /api/v1/notices. Reading the notices clears them.
func (h *Handler) Notices(w http.ResponseWriter, r *http.Request) {
	notices := []httputil.Notice{}
	if sess := sessionFromContext(r.Context()); sess != nil {
		drained, err := h.sessions.DrainNotices(r.Context(), sess.ID)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		notices = append(notices, drained...)
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: notices})
}

func readCredentials(r *http.Request) (identity.Credentials, error) {
	var creds identity.Credentials
	if !httputil.IsFormRequest(r) {
		err := decodeJSON(r, &creds)
		return creds, err
	}

	if err := parseForm(r); err != nil {
		return creds, err
	}
	creds.Username = r.PostFormValue("username")
	creds.Password = r.PostFormValue("password")
	return creds, nil
}
