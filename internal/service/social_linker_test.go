package service_test

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/menuhub/auth-service/internal/adapter/kakao"
	"github.com/menuhub/auth-service/internal/domain"
	"github.com/menuhub/auth-service/internal/repository"
	"github.com/menuhub/auth-service/internal/service"
)

func newTestLinker(t *testing.T, store repository.AuthStore) *service.SocialLinker {
	t.Helper()
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	return service.NewSocialLinker(store, node, zap.NewNop())
}

func kakaoSignIn(token string) service.ProviderSignIn {
	return service.ProviderSignIn{
		Provider:        kakao.Provider,
		ProviderUserID:  "987654321",
		AccessToken:     token,
		Email:           "diner@kakao.example",
		Nickname:        "diner",
		ProfileImageURL: "https://img.example.com/p.png",
		Attributes:      map[string]any{"id": float64(987654321)},
	}
}

func TestLinkFirstSignInProvisionsAccount(t *testing.T) {
	store := newMemoryStore()
	linker := newTestLinker(t, store)
	ctx := context.Background()

	principal, err := linker.Link(ctx, kakaoSignIn("token-1"))
	require.NoError(t, err)
	require.NotZero(t, principal.UserID)
	require.Equal(t, 1, store.userCount())
	require.Equal(t, 1, store.identityCount())

	user, err := store.FindUserByID(ctx, principal.UserID)
	require.NoError(t, err)
	require.Equal(t, "diner@kakao.example", user.Email)
	require.Equal(t, "diner", user.Name)
	require.Equal(t, []string{domain.DefaultRole}, user.Roles)

	stored, err := store.GetProviderAccessToken(ctx, principal.UserID, kakao.Provider)
	require.NoError(t, err)
	require.Equal(t, "token-1", stored)
}

func TestLinkRepeatSignInReusesAccount(t *testing.T) {
	store := newMemoryStore()
	linker := newTestLinker(t, store)
	ctx := context.Background()

	first, err := linker.Link(ctx, kakaoSignIn("token-1"))
	require.NoError(t, err)

	second, err := linker.Link(ctx, kakaoSignIn("token-2"))
	require.NoError(t, err)
	require.Equal(t, first.UserID, second.UserID)
	require.Equal(t, 1, store.userCount())
	require.Equal(t, 1, store.identityCount())

	stored, err := store.GetProviderAccessToken(ctx, second.UserID, kakao.Provider)
	require.NoError(t, err)
	require.Equal(t, "token-2", stored)
}

func TestLinkAttachesIdentityToPasswordAccount(t *testing.T) {
	store := newMemoryStore()
	linker := newTestLinker(t, store)
	ctx := context.Background()

	require.NoError(t, store.InsertUser(ctx, domain.User{ID: 7, Email: "diner@kakao.example", Name: "diner"}))

	principal, err := linker.Link(ctx, kakaoSignIn("token-1"))
	require.NoError(t, err)
	require.Equal(t, int64(7), principal.UserID)
	require.Equal(t, 1, store.userCount())
	require.Equal(t, 1, store.identityCount())
}

func TestLinkUnsupportedProvider(t *testing.T) {
	store := newMemoryStore()
	linker := newTestLinker(t, store)

	in := kakaoSignIn("token-1")
	in.Provider = "naver"
	_, err := linker.Link(context.Background(), in)
	require.ErrorIs(t, err, domain.ErrUnsupportedProvider)
	require.Equal(t, 0, store.userCount())
}

func TestLinkKeepsPrincipalAttributes(t *testing.T) {
	store := newMemoryStore()
	linker := newTestLinker(t, store)

	principal, err := linker.Link(context.Background(), kakaoSignIn("token-1"))
	require.NoError(t, err)
	require.Contains(t, principal.Attributes, "id")
}
