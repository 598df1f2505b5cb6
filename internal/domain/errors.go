package domain

import "errors"

var (
	// ErrAccountNotFound signals that no user exists for the given email or id.
	ErrAccountNotFound = errors.New("auth: account not found")
	// ErrInvalidCredentials indicates a failed password check for an existing account.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrDuplicateEmail surfaces the unique-email constraint on signup.
	ErrDuplicateEmail = errors.New("auth: email already registered")
	// ErrDuplicateIdentity surfaces the unique (provider, provider user id) constraint.
	ErrDuplicateIdentity = errors.New("auth: identity already linked")
	// ErrInvalidToken indicates a token whose signature does not verify for the
	// required key class.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrExpiredToken indicates a structurally valid token past its expiry.
	ErrExpiredToken = errors.New("auth: expired token")
	// ErrStoreUnavailable wraps persistence connectivity failures.
	ErrStoreUnavailable = errors.New("auth: store unavailable")
	// ErrProviderUnavailable wraps failures talking to or decoding the social provider.
	ErrProviderUnavailable = errors.New("auth: provider unavailable")
	// ErrUnsupportedProvider is returned for sign-ins from providers without a
	// local-account linking branch.
	ErrUnsupportedProvider = errors.New("auth: unsupported provider")
)
