package plaid

import (
	"errors"
	"fmt"
)

var (
	ErrNotConfigured     = errors.New("plaid: client id or secret not set")
	ErrInvalidToken      = errors.New("plaid: invalid or expired access token")
	ErrRateLimited       = errors.New("plaid: rate limit exceeded")
	ErrItemLoginRequired = errors.New("plaid: item requires user re-authentication")
	ErrAccountNotFound   = errors.New("plaid: account not found")
	ErrNoBalance         = errors.New("plaid: account has no current balance")
)

// APIError is a non-200 Plaid response.
type APIError struct {
	StatusCode   int
	ErrorType    string
	ErrorCode    string
	ErrorMessage string
	RequestID    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("plaid api error %d: %s (type=%s, code=%s, request_id=%s)",
		e.StatusCode, e.ErrorMessage, e.ErrorType, e.ErrorCode, e.RequestID)
}

// Unwrap maps well known error types to the package sentinels.
func (e *APIError) Unwrap() error {
	switch {
	case e.ErrorType == "INVALID_ACCESS_TOKEN" || e.ErrorCode == "INVALID_ACCESS_TOKEN":
		return ErrInvalidToken
	case e.ErrorType == "RATE_LIMIT_EXCEEDED" || e.StatusCode == 429:
		return ErrRateLimited
	case e.ErrorCode == "ITEM_LOGIN_REQUIRED":
		return ErrItemLoginRequired
	default:
		return nil
	}
}
