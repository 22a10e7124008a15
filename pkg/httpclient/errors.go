package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/forrex322/shop/pkg/errors"
)

// upstreamError matches the error envelope written by pkg/httputil, which
// cooperating services are expected to share.
type upstreamError struct {
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

// ParseResponseError drains and closes a non-2xx response and maps it onto
// an AppError. Bodies that are not a recognised envelope keep the raw text.
func ParseResponseError(resp *http.Response, upstream string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", upstream, resp.StatusCode, err)
	}

	var env upstreamError
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		return mapUpstreamError(resp.StatusCode, env.Error.Code, env.Error.Message, env.Error.Fields, upstream)
	}
	return fmt.Errorf("%s returned status %d: %s", upstream, resp.StatusCode, body)
}

func mapUpstreamError(status int, code, message string, fields map[string]string, upstream string) error {
	qualified := upstream + ": " + message

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(upstream, message)
	case status == http.StatusBadRequest:
		return apperrors.InvalidArgument(qualified)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return apperrors.Unauthenticated(message)
	case status == http.StatusConflict:
		return apperrors.InvalidState(qualified)
	case status == http.StatusUnprocessableEntity:
		return apperrors.Validation(fields)
	case status == http.StatusServiceUnavailable:
		return &apperrors.AppError{
			Code:    code,
			Message: qualified,
			Status:  http.StatusServiceUnavailable,
			Err:     apperrors.ErrServiceUnavail,
		}
	case status >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", upstream, status, code, message)
	default:
		return &apperrors.AppError{Code: code, Message: qualified, Status: status}
	}
}
