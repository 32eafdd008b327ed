// Package apperr defines the application error model: a message, a
// closed code enumeration, and optional metadata. Handlers map codes
// to HTTP statuses at the boundary; anything uncategorized becomes an
// internal server error with no detail leakage.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a category of application failure.
type Code string

const (
	CodeEmailTaken           Code = "EMAIL_TAKEN"
	CodeUsernameTaken        Code = "USERNAME_TAKEN"
	CodeWrongLogin           Code = "WRONG_LOGIN"
	CodeWrongPassword        Code = "WRONG_PASSWORD"
	CodeEmailNotVerified     Code = "EMAIL_NOT_VERIFIED"
	CodeEmailVerified        Code = "EMAIL_ALREADY_VERIFIED"
	CodeTokenExpired         Code = "TOKEN_EXPIRED"
	CodeTokenInvalid         Code = "TOKEN_INVALID"
	CodeAccessTokenExpired   Code = "ACCESS_TOKEN_EXPIRED"
	CodeTokenMissingExpiry   Code = "TOKEN_MISSING_EXP"
	CodeTokenRevokeFailed    Code = "TOKEN_REVOKE_FAILED"
	CodeTokenRevoked         Code = "TOKEN_REVOKED"
	CodeUserNotFound         Code = "USER_NOT_FOUND"
	CodeShipmentNotFound     Code = "SHIPMENT_NOT_FOUND"
	CodeSelfPurchase         Code = "SHIPMENT_SELF_PURCHASE"
	CodeInvalidTransition    Code = "SHIPMENT_INVALID_TRANSITION"
	CodeInvalidDeliveryDate  Code = "SHIPMENT_INVALID_DELIVERY_DATE"
	CodeInvalidProgress      Code = "SHIPMENT_INVALID_PROGRESS"
	CodeInternalServerError  Code = "INTERNAL_SERVER_ERROR"
	CodeUnknown              Code = "UNKNOWN"
)

// statusByCode binds each code to an HTTP status class.
var statusByCode = map[Code]int{
	CodeEmailTaken:          http.StatusBadRequest,
	CodeUsernameTaken:       http.StatusBadRequest,
	CodeWrongLogin:          http.StatusNotFound,
	CodeWrongPassword:       http.StatusNotFound,
	CodeEmailNotVerified:    http.StatusForbidden,
	CodeEmailVerified:       http.StatusConflict,
	CodeTokenExpired:        http.StatusUnauthorized,
	CodeTokenInvalid:        http.StatusUnauthorized,
	CodeAccessTokenExpired:  http.StatusUnauthorized,
	CodeTokenMissingExpiry:  http.StatusBadRequest,
	CodeTokenRevokeFailed:   http.StatusBadRequest,
	CodeTokenRevoked:        http.StatusForbidden,
	CodeUserNotFound:        http.StatusNotFound,
	CodeShipmentNotFound:    http.StatusNotFound,
	CodeSelfPurchase:        http.StatusBadRequest,
	CodeInvalidTransition:   http.StatusBadRequest,
	CodeInvalidDeliveryDate: http.StatusBadRequest,
	CodeInvalidProgress:     http.StatusBadRequest,
	CodeInternalServerError: http.StatusInternalServerError,
	CodeUnknown:             http.StatusInternalServerError,
}

// Error is a tagged application error.
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HTTPStatus returns the HTTP status bound to the error's code.
func (e *Error) HTTPStatus() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// New constructs an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithMeta attaches a metadata entry and returns the error.
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = map[string]any{}
	}
	e.Meta[key] = value
	return e
}

// From extracts an *Error from err. Uncategorized errors are wrapped
// as INTERNAL_SERVER_ERROR so no detail leaks to the caller.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(CodeInternalServerError, "Something went wrong, please try again later")
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
