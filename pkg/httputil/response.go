package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/forrex322/shop/pkg/errors"
	"github.com/forrex322/shop/pkg/logger"
	"github.com/forrex322/shop/pkg/validator"
)

// Response is the standard JSON response envelope. Storefront mutations also
// carry a user-facing Notice and the page the client should return to.
type Response struct {
	Data     any            `json:"data,omitempty"`
	Error    *ErrorResponse `json:"error,omitempty"`
	Notice   *Notice        `json:"notice,omitempty"`
	Redirect string         `json:"redirect,omitempty"`
}

// ErrorResponse represents an error in the standard response format.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// NoticeLevel classifies a Notice for display.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice is a one-shot message shown to the shopper after an action.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// InfoNotice builds an informational notice.
func InfoNotice(message string) *Notice {
	return &Notice{Level: NoticeInfo, Message: message}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorBody maps err onto a status code and error payload. AppErrors and
// validator errors keep their code and fields; anything unrecognised becomes
// a 500 and is logged with the request-scoped logger, or fallback if the
// RequestLogger middleware is not mounted.
func ErrorBody(r *http.Request, err error, fallback *slog.Logger) (int, *ErrorResponse) {
	requestID := logger.CorrelationIDFromContext(r.Context())

	var (
		status int
		body   *ErrorResponse
		appErr *apperrors.AppError
		valErr *validator.ValidationError
	)
	switch {
	case errors.As(err, &appErr):
		status = appErr.Status
		body = &ErrorResponse{Code: appErr.Code, Message: appErr.Message, Fields: appErr.Fields}
	case errors.As(err, &valErr):
		status = http.StatusUnprocessableEntity
		body = &ErrorResponse{Code: "VALIDATION_ERROR", Message: "request validation failed", Fields: valErr.Fields()}
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
		body = &ErrorResponse{Code: "NOT_FOUND", Message: "resource not found"}
	case errors.Is(err, apperrors.ErrAlreadyExists):
		status = http.StatusConflict
		body = &ErrorResponse{Code: "ALREADY_EXISTS", Message: "resource already exists"}
	case errors.Is(err, apperrors.ErrInvalidArgument):
		status = http.StatusBadRequest
		body = &ErrorResponse{Code: "INVALID_ARGUMENT", Message: err.Error()}
	default:
		status = apperrors.HTTPStatus(err)
		body = &ErrorResponse{Code: "INTERNAL_ERROR", Message: "an internal error occurred"}
	}
	body.RequestID = requestID

	if status >= http.StatusInternalServerError {
		l := logger.FromContext(r.Context())
		if l == slog.Default() && fallback != nil {
			l = fallback
		}
		l.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.Int("status", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	return status, body
}

// WriteError writes a standardized error response based on the error type.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	status, body := ErrorBody(r, err, fallback)
	WriteJSON(w, status, Response{Error: body})
}

// WantsHTML reports whether the client is a browser that expects a page
// rather than a JSON document.
func WantsHTML(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mediaType {
		case "application/json":
			return false
		case "text/html":
			return true
		}
	}
	return false
}

// IsFormRequest reports whether the body is an HTML form submission.
func IsFormRequest(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data"
}

// ParseUUID validates that the given string is a valid UUID and returns it.
// If invalid, it writes a 400 Bad Request response with code INVALID_ARGUMENT
// and returns uuid.Nil plus false, signaling the caller to return early.
func ParseUUID(w http.ResponseWriter, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(param)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:    "INVALID_ARGUMENT",
				Message: "invalid UUID: " + param,
			},
		})
		return uuid.Nil, false
	}
	return id, true
}
