package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/forgebase/forge/oauth"
)

// authorizeRequest is the resource-owner password credentials step of the
// authorization-code grant (spec SPEC_FULL.md §8's oauth consumer package):
// a login exchanged for a single-use code, mirroring the shape of a
// standard OAuth2 /authorize POST against a first-party login form.
type authorizeRequest struct {
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	ClientID    string   `json:"clientId"`
	RedirectURI string   `json:"redirectUri"`
	Scopes      []string `json:"scopes,omitempty"`
}

type authorizeResponse struct {
	Code string `json:"code"`
}

// AuthorizeHandler exchanges resource-owner credentials for a single-use
// authorization code.
func AuthorizeHandler(exchange *oauth.Exchange) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req authorizeRequest
		if err := c.Bind(&req); err != nil {
			return errInvalidRequest("malformed authorize request body")
		}
		if req.Username == "" || req.Password == "" || req.ClientID == "" || req.RedirectURI == "" {
			return errInvalidRequest("username, password, clientId and redirectUri are required")
		}

		code, err := exchange.Authorize(c.Request().Context(), req.Username, req.Password, req.ClientID, req.RedirectURI, req.Scopes)
		if err != nil {
			return oauthError(err)
		}
		return c.JSON(http.StatusOK, authorizeResponse{Code: code.Metadata.Name})
	}
}

// tokenRequest redeems a previously issued authorization code for a token,
// the grant_type=authorization_code step of RFC 6749 §4.1.3.
type tokenRequest struct {
	Code        string `json:"code"`
	ClientID    string `json:"clientId"`
	RedirectURI string `json:"redirectUri"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresAt   string `json:"expiresAt"`
}

// TokenHandler redeems an authorization code for a signed access token.
func TokenHandler(exchange *oauth.Exchange) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req tokenRequest
		if err := c.Bind(&req); err != nil {
			return errInvalidRequest("malformed token request body")
		}
		if req.Code == "" || req.ClientID == "" || req.RedirectURI == "" {
			return errInvalidRequest("code, clientId and redirectUri are required")
		}

		token, expiresAt, err := exchange.Redeem(c.Request().Context(), req.Code, req.ClientID, req.RedirectURI)
		if err != nil {
			return oauthError(err)
		}
		return c.JSON(http.StatusOK, tokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresAt:   expiresAt.UTC().Format(http.TimeFormat),
		})
	}
}

// oauthError maps the oauth package's sentinel errors onto the envelope;
// everything the Exchange can fail with is a caller mistake (bad
// credentials, unknown client, wrong redirect, expired/redeemed code), so
// it is always reported as invalid_request rather than a 5xx.
func oauthError(err error) error {
	switch {
	case errors.Is(err, oauth.ErrInvalidCredentials),
		errors.Is(err, oauth.ErrAccountDisabled),
		errors.Is(err, oauth.ErrUnknownClient),
		errors.Is(err, oauth.ErrClientSecretWrong),
		errors.Is(err, oauth.ErrRedirectMismatch),
		errors.Is(err, oauth.ErrInvalidGrant),
		errors.Is(err, oauth.ErrInvalidToken):
		return errInvalidRequest(err.Error())
	default:
		return err
	}
}
