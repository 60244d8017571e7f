package oauth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	v1alpha1 "github.com/forgebase/forge/auth/v1alpha1"
	"github.com/forgebase/forge/manager"
)

// Exchange implements the authorization-code grant end to end: issuing a
// code after a resource-owner login, then redeeming it for an access
// token. Grounded on auth/token.go's GenerateTokenPair flow, reshaped
// around the Controller Runtime's generic Resource Manager instead of a
// bespoke UserStore.
type Exchange struct {
	Users     *manager.RM[*v1alpha1.User]
	Clients   *manager.RM[*v1alpha1.Client]
	AuthCodes *manager.RM[*v1alpha1.AuthCode]
	Tokens    *TokenService

	CodeTTL time.Duration
}

// NewExchange constructs an Exchange with a 10-minute authorization-code
// lifetime, the window the original spec's AuthCode resource is drawn
// from (original_source/auth/src/api/v1alpha1/client/mod.rs's redirect
// flow).
func NewExchange(users *manager.RM[*v1alpha1.User], clients *manager.RM[*v1alpha1.Client], codes *manager.RM[*v1alpha1.AuthCode], tokens *TokenService) *Exchange {
	return &Exchange{Users: users, Clients: clients, AuthCodes: codes, Tokens: tokens, CodeTTL: 10 * time.Minute}
}

// Authorize validates a resource owner's credentials against the stored
// bcrypt hash and mints a single-use authorization code bound to
// clientID/redirectURI/scopes.
func (e *Exchange) Authorize(ctx context.Context, username, password, clientID, redirectURI string, scopes []string) (*v1alpha1.AuthCode, error) {
	user, err := e.Users.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Status.Enabled || user.Status.Locked {
		return nil, ErrAccountDisabled
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Spec.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	client, err := e.Clients.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrUnknownClient
	}
	if !redirectAllowed(client, redirectURI) {
		return nil, ErrRedirectMismatch
	}

	codeValue, err := generateOpaqueCode()
	if err != nil {
		return nil, err
	}

	code := v1alpha1.NewAuthCode(codeValue, v1alpha1.AuthCodeSpec{
		ClientRef:   clientID,
		UserRef:     username,
		RedirectURI: redirectURI,
		Scopes:      scopes,
		ExpiresAt:   time.Now().Add(e.CodeTTL),
	})
	return e.AuthCodes.Put(ctx, code)
}

// Redeem exchanges a single-use authorization code for an access token.
// Status.Redeemed flips immediately, so a replayed code always fails the
// checks below even before the authcode reconciler tombstones and deletes
// the now-spent document.
func (e *Exchange) Redeem(ctx context.Context, codeValue, clientID, redirectURI string) (string, time.Time, error) {
	code, err := e.AuthCodes.Get(ctx, codeValue)
	if err != nil {
		return "", time.Time{}, err
	}
	if code == nil || code.Status.Redeemed || code.Expired(time.Now()) {
		return "", time.Time{}, ErrInvalidGrant
	}
	if code.Spec.ClientRef != clientID || code.Spec.RedirectURI != redirectURI {
		return "", time.Time{}, ErrRedirectMismatch
	}

	user, err := e.Users.Get(ctx, code.Spec.UserRef)
	if err != nil {
		return "", time.Time{}, err
	}
	if user == nil {
		return "", time.Time{}, ErrInvalidGrant
	}

	code.Status.Redeemed = true
	if _, err := e.AuthCodes.Put(ctx, code); err != nil {
		return "", time.Time{}, err
	}

	return e.Tokens.IssueToken(user, clientID, code.Spec.Scopes)
}

func redirectAllowed(client *v1alpha1.Client, redirectURI string) bool {
	for _, uri := range client.Spec.RedirectURIs {
		if uri == redirectURI {
			return true
		}
	}
	return false
}
