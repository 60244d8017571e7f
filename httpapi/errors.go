// Package httpapi is the HTTP boundary: a decision endpoint backed by the
// Policy Enforcement Engine and per-kind CRUD exposing the Resource
// Manager, grounded on the teacher's api package and cli/root.go's Echo
// wiring.
package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Code is one of the stable error codes surfaced at the HTTP boundary.
type Code string

const (
	CodeInvalidRequest       Code = "invalid_request"
	CodeNotFound             Code = "not_found"
	CodeInitializationFailed Code = "initialization_failed"
	CodeUnknown              Code = "unknown"
	CodeUnsupportedMedia     Code = "unsupported_media_type"
	CodeInvalidHeader        Code = "invalid_header"
)

// Envelope is the stable JSON error shape returned by every handler in
// this package.
type Envelope struct {
	Code     Code           `json:"code"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Error pairs an Envelope with the HTTP status it maps to.
type Error struct {
	Status int
	Envelope
}

func (e *Error) Error() string { return e.Message }

func newError(status int, code Code, message string) *Error {
	return &Error{Status: status, Envelope: Envelope{Code: code, Message: message}}
}

func errInvalidRequest(message string) *Error {
	return newError(http.StatusBadRequest, CodeInvalidRequest, message)
}

func errNotFound(message string) *Error {
	return newError(http.StatusNotFound, CodeNotFound, message)
}

func errInvalidHeader(message string) *Error {
	return newError(http.StatusBadRequest, CodeInvalidHeader, message)
}

func errUnsupportedMedia(message string) *Error {
	return newError(http.StatusUnsupportedMediaType, CodeUnsupportedMedia, message)
}

// HTTPErrorHandler replaces Echo's default handler so every failure,
// including ones Echo itself raises (404 router misses, body too large),
// is rendered through the stable envelope.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *Error
	switch e := err.(type) {
	case *Error:
		apiErr = e
	case *echo.HTTPError:
		apiErr = fromHTTPError(e)
	default:
		apiErr = newError(http.StatusInternalServerError, CodeUnknown, "internal error")
	}

	if werr := c.JSON(apiErr.Status, apiErr.Envelope); werr != nil {
		c.Logger().Error(werr)
	}
}

func fromHTTPError(e *echo.HTTPError) *Error {
	switch e.Code {
	case http.StatusNotFound:
		return newError(http.StatusNotFound, CodeNotFound, "resource not found")
	case http.StatusUnsupportedMediaType:
		return newError(http.StatusUnsupportedMediaType, CodeUnsupportedMedia, "unsupported media type")
	case http.StatusBadRequest:
		return newError(http.StatusBadRequest, CodeInvalidRequest, echoMessage(e))
	default:
		return newError(e.Code, CodeUnknown, echoMessage(e))
	}
}

func echoMessage(e *echo.HTTPError) string {
	if s, ok := e.Message.(string); ok {
		return s
	}
	return "request failed"
}
