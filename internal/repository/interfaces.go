package repository

import (
	"context"
	"time"

	"github.com/menuhub/auth-service/internal/domain"
)

// AuthStore is the credential-store gateway: named queries against the
// user/credential/authority/identity tables, no business logic.
type AuthStore interface {
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
	FindUserByID(ctx context.Context, userID int64) (domain.User, error)
	InsertUser(ctx context.Context, user domain.User) error
	GetCredential(ctx context.Context, userID int64) (domain.Credential, error)
	InsertCredential(ctx context.Context, cred domain.Credential) error
	InsertAuthority(ctx context.Context, auth domain.Authority) error
	InsertIdentity(ctx context.Context, ident domain.Identity) error
	// UpdateIdentityToken replaces the stored provider access token and
	// returns the owning user id. ErrAccountNotFound when no identity row
	// matches. Safe to repeat.
	UpdateIdentityToken(ctx context.Context, provider, providerUserID, accessToken string) (int64, error)
	GetProviderAccessToken(ctx context.Context, userID int64, provider string) (string, error)
	// InTx runs fn against a transactional view of the store. The multi-insert
	// sequences of signup and social first-login depend on its all-or-nothing
	// semantics.
	InTx(ctx context.Context, fn func(AuthStore) error) error
}

// LoginState captures the state parameter persisted during the provider
// authorization handshake.
type LoginState struct {
	State       string    `json:"state"`
	Provider    string    `json:"provider"`
	RedirectURI string    `json:"redirect_uri"`
	CreatedAt   time.Time `json:"created_at"`
}

// StateStore persists short-lived login-handshake state.
type StateStore interface {
	SaveState(ctx context.Context, key string, data LoginState, ttl time.Duration) error
	GetState(ctx context.Context, key string) (*LoginState, error)
	DeleteState(ctx context.Context, key string) error
}
