package oauth

import "errors"

var (
	ErrInvalidToken      = errors.New("oauth: invalid or expired token")
	ErrInvalidGrant      = errors.New("oauth: invalid or expired authorization code")
	ErrRedirectMismatch  = errors.New("oauth: redirect_uri does not match the code's original redirect_uri")
	ErrUnknownClient     = errors.New("oauth: unknown client_id")
	ErrClientSecretWrong = errors.New("oauth: client secret mismatch")
	ErrInvalidCredentials = errors.New("oauth: invalid username or password")
	ErrAccountDisabled   = errors.New("oauth: account is disabled")
)
