package kakao_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/menuhub/auth-service/internal/adapter/kakao"
	"github.com/menuhub/auth-service/internal/domain"
)

func TestExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		require.Equal(t, "client-id", r.PostForm.Get("client_id"))
		require.Equal(t, "the-code", r.PostForm.Get("code"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"provider-token","token_type":"bearer"}`))
	}))
	defer srv.Close()

	client := kakao.NewClient(srv.Client(), "client-id", "", srv.URL, srv.URL)
	token, err := client.ExchangeCode(context.Background(), "the-code", "https://app/callback")
	require.NoError(t, err)
	require.Equal(t, "provider-token", token)
}

func TestExchangeCodeProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := kakao.NewClient(srv.Client(), "client-id", "", srv.URL, srv.URL)
	_, err := client.ExchangeCode(context.Background(), "the-code", "https://app/callback")
	require.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestFetchProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer provider-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 987654321,
			"kakao_account": {
				"email": "diner@example.com",
				"profile": {
					"nickname": "diner",
					"profile_image_url": "https://img.example.com/p.png"
				}
			}
		}`))
	}))
	defer srv.Close()

	client := kakao.NewClient(srv.Client(), "client-id", "", srv.URL, srv.URL)
	profile, err := client.FetchProfile(context.Background(), "provider-token")
	require.NoError(t, err)
	require.Equal(t, int64(987654321), profile.ID)
	require.Equal(t, "diner@example.com", profile.Email)
	require.Equal(t, "diner", profile.Nickname)
	require.Equal(t, "https://img.example.com/p.png", profile.ProfileImageURL)
	require.Contains(t, profile.Attributes, "kakao_account")
}

func TestFetchProfileMissingEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 987654321, "kakao_account": {"profile": {"nickname": "diner"}}}`))
	}))
	defer srv.Close()

	client := kakao.NewClient(srv.Client(), "client-id", "", srv.URL, srv.URL)
	_, err := client.FetchProfile(context.Background(), "provider-token")
	require.ErrorIs(t, err, domain.ErrProviderUnavailable)
}
