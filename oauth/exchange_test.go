package oauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	v1alpha1 "github.com/forgebase/forge/auth/v1alpha1"
	"github.com/forgebase/forge/manager"
	"github.com/forgebase/forge/store/storetest"
)

func newExchange(t *testing.T) *Exchange {
	t.Helper()
	usersRM := manager.New(storetest.New(), new(v1alpha1.User).GetTypeMeta(), func() *v1alpha1.User { return &v1alpha1.User{} })
	clientsRM := manager.New(storetest.New(), new(v1alpha1.Client).GetTypeMeta(), func() *v1alpha1.Client { return &v1alpha1.Client{} })
	codesRM := manager.New(storetest.New(), new(v1alpha1.AuthCode).GetTypeMeta(), func() *v1alpha1.AuthCode { return &v1alpha1.AuthCode{} })
	require.NoError(t, usersRM.EnsureDatabase(context.Background()))
	require.NoError(t, clientsRM.EnsureDatabase(context.Background()))
	require.NoError(t, codesRM.EnsureDatabase(context.Background()))
	return NewExchange(usersRM, clientsRM, codesRM, NewTokenService("test-secret", time.Hour))
}

func putUser(t *testing.T, e *Exchange, name, password string, enabled, locked bool) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := v1alpha1.NewUser(name, v1alpha1.UserSpec{PasswordHash: string(hash)})
	u.Status = v1alpha1.UserStatus{Enabled: enabled, Locked: locked}
	_, err = e.Users.Put(context.Background(), u)
	require.NoError(t, err)
}

func putClient(t *testing.T, e *Exchange, name string, redirectURIs []string) {
	t.Helper()
	c := v1alpha1.NewClient(name, v1alpha1.ClientSpec{RedirectURIs: redirectURIs})
	_, err := e.Clients.Put(context.Background(), c)
	require.NoError(t, err)
}

func TestExchange_AuthorizeSuccess(t *testing.T) {
	e := newExchange(t)
	putUser(t, e, "bob", "hunter2", true, false)
	putClient(t, e, "web-app", []string{"https://app.example/callback"})

	code, err := e.Authorize(context.Background(), "bob", "hunter2", "web-app", "https://app.example/callback", []string{"read"})
	require.NoError(t, err)
	require.NotEmpty(t, code.GetMetadata().Name)
	require.Equal(t, "bob", code.Spec.UserRef)
	require.Equal(t, "web-app", code.Spec.ClientRef)
}

func TestExchange_AuthorizeRejectsUnknownUser(t *testing.T) {
	e := newExchange(t)
	putClient(t, e, "web-app", []string{"https://app.example/callback"})

	_, err := e.Authorize(context.Background(), "nobody", "hunter2", "web-app", "https://app.example/callback", nil)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestExchange_AuthorizeRejectsWrongPassword(t *testing.T) {
	e := newExchange(t)
	putUser(t, e, "bob", "hunter2", true, false)
	putClient(t, e, "web-app", []string{"https://app.example/callback"})

	_, err := e.Authorize(context.Background(), "bob", "wrong", "web-app", "https://app.example/callback", nil)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestExchange_AuthorizeRejectsDisabledAccount(t *testing.T) {
	e := newExchange(t)
	putUser(t, e, "bob", "hunter2", false, false)
	putClient(t, e, "web-app", []string{"https://app.example/callback"})

	_, err := e.Authorize(context.Background(), "bob", "hunter2", "web-app", "https://app.example/callback", nil)
	require.ErrorIs(t, err, ErrAccountDisabled)
}

func TestExchange_AuthorizeRejectsLockedAccount(t *testing.T) {
	e := newExchange(t)
	putUser(t, e, "bob", "hunter2", true, true)
	putClient(t, e, "web-app", []string{"https://app.example/callback"})

	_, err := e.Authorize(context.Background(), "bob", "hunter2", "web-app", "https://app.example/callback", nil)
	require.ErrorIs(t, err, ErrAccountDisabled)
}

func TestExchange_AuthorizeRejectsUnknownClient(t *testing.T) {
	e := newExchange(t)
	putUser(t, e, "bob", "hunter2", true, false)

	_, err := e.Authorize(context.Background(), "bob", "hunter2", "does-not-exist", "https://app.example/callback", nil)
	require.ErrorIs(t, err, ErrUnknownClient)
}

func TestExchange_AuthorizeRejectsRedirectMismatch(t *testing.T) {
	e := newExchange(t)
	putUser(t, e, "bob", "hunter2", true, false)
	putClient(t, e, "web-app", []string{"https://app.example/callback"})

	_, err := e.Authorize(context.Background(), "bob", "hunter2", "web-app", "https://evil.example/callback", nil)
	require.ErrorIs(t, err, ErrRedirectMismatch)
}

func TestExchange_RedeemSuccess(t *testing.T) {
	e := newExchange(t)
	putUser(t, e, "bob", "hunter2", true, false)
	putClient(t, e, "web-app", []string{"https://app.example/callback"})

	code, err := e.Authorize(context.Background(), "bob", "hunter2", "web-app", "https://app.example/callback", []string{"read"})
	require.NoError(t, err)

	token, expiresAt, err := e.Redeem(context.Background(), code.GetMetadata().Name, "web-app", "https://app.example/callback")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.True(t, expiresAt.After(time.Now()))

	claims, err := e.Tokens.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "bob", claims.UserName)
	require.Equal(t, []string{"read"}, claims.Scopes)
}

func TestExchange_RedeemRejectsUnknownCode(t *testing.T) {
	e := newExchange(t)

	_, _, err := e.Redeem(context.Background(), "does-not-exist", "web-app", "https://app.example/callback")
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestExchange_RedeemRejectsReplay(t *testing.T) {
	e := newExchange(t)
	putUser(t, e, "bob", "hunter2", true, false)
	putClient(t, e, "web-app", []string{"https://app.example/callback"})

	code, err := e.Authorize(context.Background(), "bob", "hunter2", "web-app", "https://app.example/callback", nil)
	require.NoError(t, err)

	_, _, err = e.Redeem(context.Background(), code.GetMetadata().Name, "web-app", "https://app.example/callback")
	require.NoError(t, err)

	_, _, err = e.Redeem(context.Background(), code.GetMetadata().Name, "web-app", "https://app.example/callback")
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestExchange_RedeemRejectsExpiredCode(t *testing.T) {
	e := newExchange(t)
	putUser(t, e, "bob", "hunter2", true, false)
	putClient(t, e, "web-app", []string{"https://app.example/callback"})

	expired := v1alpha1.NewAuthCode("expired-code", v1alpha1.AuthCodeSpec{
		ClientRef:   "web-app",
		UserRef:     "bob",
		RedirectURI: "https://app.example/callback",
		ExpiresAt:   time.Now().Add(-time.Minute),
	})
	_, err := e.AuthCodes.Put(context.Background(), expired)
	require.NoError(t, err)

	_, _, err = e.Redeem(context.Background(), "expired-code", "web-app", "https://app.example/callback")
	require.ErrorIs(t, err, ErrInvalidGrant)
}

func TestExchange_RedeemRejectsRedirectMismatch(t *testing.T) {
	e := newExchange(t)
	putUser(t, e, "bob", "hunter2", true, false)
	putClient(t, e, "web-app", []string{"https://app.example/callback"})

	code, err := e.Authorize(context.Background(), "bob", "hunter2", "web-app", "https://app.example/callback", nil)
	require.NoError(t, err)

	_, _, err = e.Redeem(context.Background(), code.GetMetadata().Name, "web-app", "https://other.example/callback")
	require.ErrorIs(t, err, ErrRedirectMismatch)
}
