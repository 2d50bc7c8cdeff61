package internal

import (
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/lychee-technology/formview"
)

// errorBody is the error payload of the backend. Either message or error carries the text.
type errorBody struct {
	Message string                `json:"message"`
	Error   string                `json:"error"`
	Reason  string                `json:"reason"`
	Code    any                   `json:"code"`
	Errors  []formview.FieldError `json:"errors"`
}

// normalizeResponse turns a non-2xx response into a *formview.FormError. Field
// failures reported by the server yield a validation error.
func normalizeResponse(status int, body []byte, method, url string) *formview.FormError {
	var eb errorBody
	decoded := len(body) > 0 && json.Unmarshal(body, &eb) == nil

	msg := eb.Message
	if msg == "" {
		msg = eb.Error
	}
	if msg == "" {
		msg = eb.Reason
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	var fe *formview.FormError
	if msg == formview.ValidationFailedMessage || len(eb.Errors) > 0 {
		fe = formview.NewValidationFailedError(msg, eb.Errors)
		fe.Status = status
	} else {
		fe = formview.NewTransportError(status, errorCode(status, eb.Code), msg)
	}
	if !decoded && len(body) > 0 {
		fe.WithDetail("body", truncate(string(body), 512))
	}
	return fe.WithRequest(method, url)
}

// requestFailure wraps an error that kept a request from completing.
func requestFailure(err error, method, url string) *formview.FormError {
	return formview.NewTransportError(0, formview.ErrCodeRequestFailed, err.Error()).
		WithCause(err).
		WithRequest(method, url)
}

// invalidResponse wraps a 2xx response whose body could not be decoded.
func invalidResponse(err error, status int, method, url string) *formview.FormError {
	return formview.NewTransportError(status, formview.ErrCodeInvalidResponse,
		fmt.Sprintf("decode response: %v", err)).
		WithCause(err).
		WithRequest(method, url)
}

func errorCode(status int, code any) string {
	switch c := code.(type) {
	case string:
		if c != "" {
			return c
		}
	case float64:
		return fmt.Sprintf("%d", int(c))
	}
	switch status {
	case http.StatusNotFound:
		return formview.ErrCodeNotFound
	case http.StatusConflict:
		return formview.ErrCodeConflict
	}
	return formview.ErrCodeRequestFailed
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
