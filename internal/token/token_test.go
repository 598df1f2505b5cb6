package token_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/menuhub/auth-service/internal/domain"
	"github.com/menuhub/auth-service/internal/token"
)

func newProvider(t *testing.T) *token.Provider {
	t.Helper()
	access := []byte("access-secret-material-0123456789abcdef")
	refresh := []byte("refresh-secret-material-0123456789abcde")
	return token.NewProvider(access, refresh)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	p := newProvider(t)

	tok, err := p.IssueAccessToken(42, 30*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	subject, err := p.ResolveSubject(tok, token.KeyClassAccess)
	require.NoError(t, err)
	require.Equal(t, int64(42), subject)
}

func TestAccessTokenRejectedInRefreshClass(t *testing.T) {
	p := newProvider(t)

	tok, err := p.IssueAccessToken(42, 30*time.Minute)
	require.NoError(t, err)

	_, err = p.ResolveSubject(tok, token.KeyClassRefresh)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestRefreshTokenRejectedInAccessClass(t *testing.T) {
	p := newProvider(t)

	tok, err := p.IssueRefreshToken(7, 7*24*time.Hour)
	require.NoError(t, err)

	_, err = p.ResolveSubject(tok, token.KeyClassAccess)
	require.ErrorIs(t, err, domain.ErrInvalidToken)

	subject, err := p.ResolveSubject(tok, token.KeyClassRefresh)
	require.NoError(t, err)
	require.Equal(t, int64(7), subject)
}

func TestExpiredToken(t *testing.T) {
	p := newProvider(t)

	tok, err := p.IssueAccessToken(42, -time.Minute)
	require.NoError(t, err)

	_, err = p.ResolveSubject(tok, token.KeyClassAccess)
	require.ErrorIs(t, err, domain.ErrExpiredToken)
}

func TestGarbageToken(t *testing.T) {
	p := newProvider(t)

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := p.ResolveSubject(tok, token.KeyClassAccess)
		require.ErrorIs(t, err, domain.ErrInvalidToken, "token %q", tok)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	p := newProvider(t)
	other := token.NewProvider(
		[]byte("a-completely-different-access-secret-123"),
		[]byte("a-completely-different-refresh-secret-12"),
	)

	tok, err := other.IssueAccessToken(42, time.Hour)
	require.NoError(t, err)

	_, err = p.ResolveSubject(tok, token.KeyClassAccess)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}
