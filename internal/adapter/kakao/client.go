package kakao

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/menuhub/auth-service/internal/domain"
)

// Provider is the registration id used for identity rows and routing.
const Provider = "kakao"

// Profile is the typed shape decoded from the Kakao userinfo response. Only
// the fields the app needs are kept; the raw attribute map travels alongside
// for the principal.
type Profile struct {
	ID              int64
	Email           string
	Nickname        string
	ProfileImageURL string
	Attributes      map[string]any
}

// ProfileAPI fetches user profiles with a provider access token.
type ProfileAPI interface {
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)
}

// TokenExchanger redeems an authorization code for a provider access token.
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code, redirectURI string) (string, error)
}

// Client talks to the Kakao OAuth and profile endpoints.
type Client struct {
	httpClient   *http.Client
	clientID     string
	clientSecret string
	tokenURL     string
	profileURL   string
}

var (
	_ ProfileAPI     = (*Client)(nil)
	_ TokenExchanger = (*Client)(nil)
)

// NewClient constructs the default Kakao client.
func NewClient(httpClient *http.Client, clientID, clientSecret, tokenURL, profileURL string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		httpClient:   httpClient,
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     tokenURL,
		profileURL:   profileURL,
	}
}

// ExchangeCode performs the authorization-code grant against the token endpoint.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("client_id", c.clientID)
	data.Set("redirect_uri", redirectURI)
	data.Set("code", code)
	if c.clientSecret != "" {
		data.Set("client_secret", c.clientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token exchange: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read token response: %v", domain.ErrProviderUnavailable, err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: token exchange status=%d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", domain.ErrProviderUnavailable, err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return "", fmt.Errorf("%w: empty access token", domain.ErrProviderUnavailable)
	}
	return payload.AccessToken, nil
}

// FetchProfile loads the userinfo endpoint and decodes the known response
// shape. Missing required fields fail explicitly instead of surfacing
// half-empty profiles.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: profile request: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read profile: %v", domain.ErrProviderUnavailable, err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: profile status=%d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	var payload struct {
		ID           int64 `json:"id"`
		KakaoAccount struct {
			Email   string `json:"email"`
			Profile struct {
				Nickname        string `json:"nickname"`
				ProfileImageURL string `json:"profile_image_url"`
			} `json:"profile"`
		} `json:"kakao_account"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode profile: %v", domain.ErrProviderUnavailable, err)
	}
	if payload.ID == 0 || strings.TrimSpace(payload.KakaoAccount.Email) == "" {
		return nil, fmt.Errorf("%w: profile missing id or email", domain.ErrProviderUnavailable)
	}

	var attributes map[string]any
	_ = json.Unmarshal(body, &attributes)

	return &Profile{
		ID:              payload.ID,
		Email:           payload.KakaoAccount.Email,
		Nickname:        payload.KakaoAccount.Profile.Nickname,
		ProfileImageURL: payload.KakaoAccount.Profile.ProfileImageURL,
		Attributes:      attributes,
	}, nil
}
