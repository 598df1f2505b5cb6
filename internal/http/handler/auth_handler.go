package handler

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/menuhub/auth-service/internal/adapter/kakao"
	"github.com/menuhub/auth-service/internal/config"
	"github.com/menuhub/auth-service/internal/domain"
	"github.com/menuhub/auth-service/internal/http/middleware"
	"github.com/menuhub/auth-service/internal/repository"
	"github.com/menuhub/auth-service/internal/service"
)

const loginStateTTL = 5 * time.Minute

// AuthHandler exposes the auth endpoints over gin.
type AuthHandler struct {
	Accounts  *service.AccountService
	Linker    *service.SocialLinker
	Exchanger kakao.TokenExchanger
	Profiles  kakao.ProfileAPI
	States    repository.StateStore
	Cfg       config.Config
	Logger    *zap.Logger
}

// NewAuthHandler wires dependencies.
func NewAuthHandler(
	accounts *service.AccountService,
	linker *service.SocialLinker,
	exchanger kakao.TokenExchanger,
	profiles kakao.ProfileAPI,
	states repository.StateStore,
	cfg config.Config,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		Accounts:  accounts,
		Linker:    linker,
		Exchanger: exchanger,
		Profiles:  profiles,
		States:    states,
		Cfg:       cfg,
		Logger:    logger,
	}
}

// Login authenticates email/password and returns both tokens. The refresh
// token additionally travels as an HttpOnly cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid payload."})
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Email and password are required."})
		return
	}

	result, err := h.Accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	h.setAuthCookies(c, result)
	c.JSON(http.StatusOK, result)
}

// Signup registers a new account and returns both tokens.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid payload."})
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Email and password are required."})
		return
	}

	result, err := h.Accounts.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	h.setAuthCookies(c, result)
	c.JSON(http.StatusOK, result)
}

// Exists reports whether an account with the given email is registered.
func (h *AuthHandler) Exists(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Email is required."})
		return
	}

	exists, err := h.Accounts.ExistsByEmail(c.Request.Context(), email)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

// Refresh exchanges the refresh_token cookie for a new access token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie("refresh_token")
	if err != nil || strings.TrimSpace(refreshToken) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Refresh token cookie required."})
		return
	}

	result, err := h.Accounts.RefreshByCookie(c.Request.Context(), refreshToken)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	h.setCookie(c, "access_token", result.AccessToken, int(h.Cfg.AccessTokenTTL.Seconds()))
	c.JSON(http.StatusOK, result)
}

// Me returns the authenticated user's local record.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Missing subject."})
		return
	}

	user, err := h.Accounts.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// KakaoProfile fetches a fresh provider profile for the authenticated user.
func (h *AuthHandler) KakaoProfile(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Missing subject."})
		return
	}

	user, err := h.Accounts.SocialProfile(c.Request.Context(), userID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// KakaoStart persists an anti-forgery state and redirects to the provider
// authorization endpoint.
func (h *AuthHandler) KakaoStart(c *gin.Context) {
	state, err := randomState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Could not start sign-in."})
		return
	}

	record := repository.LoginState{
		State:       state,
		Provider:    kakao.Provider,
		RedirectURI: h.Cfg.KakaoRedirectURI,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.States.SaveState(c.Request.Context(), stateKey(state), record, loginStateTTL); err != nil {
		respondAuthError(c, fmt.Errorf("%w: save login state: %v", domain.ErrStoreUnavailable, err))
		return
	}

	query := url.Values{}
	query.Set("client_id", h.Cfg.KakaoClientID)
	query.Set("redirect_uri", h.Cfg.KakaoRedirectURI)
	query.Set("response_type", "code")
	query.Set("state", state)

	c.Redirect(http.StatusFound, h.Cfg.KakaoAuthURL+"?"+query.Encode())
}

// KakaoCallback completes the provider handshake: validates state, redeems
// the code, links the profile to a local account, and issues tokens.
func (h *AuthHandler) KakaoCallback(c *gin.Context) {
	code := strings.TrimSpace(c.Query("code"))
	state := strings.TrimSpace(c.Query("state"))
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Code and state are required."})
		return
	}

	stored, err := h.States.GetState(c.Request.Context(), stateKey(state))
	if err != nil {
		respondAuthError(c, fmt.Errorf("%w: load login state: %v", domain.ErrStoreUnavailable, err))
		return
	}
	if stored == nil || stored.State != state {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_state", "error_description": "Unknown or expired state."})
		return
	}
	_ = h.States.DeleteState(c.Request.Context(), stateKey(state))

	providerToken, err := h.Exchanger.ExchangeCode(c.Request.Context(), code, stored.RedirectURI)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	profile, err := h.Profiles.FetchProfile(c.Request.Context(), providerToken)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	principal, err := h.Linker.Link(c.Request.Context(), service.ProviderSignIn{
		Provider:        kakao.Provider,
		ProviderUserID:  strconv.FormatInt(profile.ID, 10),
		AccessToken:     providerToken,
		Email:           profile.Email,
		Nickname:        profile.Nickname,
		ProfileImageURL: profile.ProfileImageURL,
		Attributes:      profile.Attributes,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	result, err := h.Accounts.LoginSocial(c.Request.Context(), principal.UserID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	h.setAuthCookies(c, result)
	c.JSON(http.StatusOK, result)
}

func (h *AuthHandler) setAuthCookies(c *gin.Context, result domain.AuthResult) {
	h.setCookie(c, "access_token", result.AccessToken, int(h.Cfg.AccessTokenTTL.Seconds()))
	if result.RefreshToken != "" {
		h.setCookie(c, "refresh_token", result.RefreshToken, int(h.Cfg.RefreshTokenTTL.Seconds()))
	}
}

func (h *AuthHandler) setCookie(c *gin.Context, name, value string, maxAge int) {
	secure := h.Cfg.Environment == "production"
	c.SetCookie(name, value, maxAge, "/", "", secure, true)
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials", "error_description": "Email or password is incorrect."})
	case errors.Is(err, domain.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "account_not_found", "error_description": "No account for that identifier."})
	case errors.Is(err, domain.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate_email", "error_description": "An account with that email already exists."})
	case errors.Is(err, domain.ErrDuplicateIdentity):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate_identity", "error_description": "That provider account is already linked."})
	case errors.Is(err, domain.ErrExpiredToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "expired_token", "error_description": "Token has expired."})
	case errors.Is(err, domain.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Token is invalid."})
	case errors.Is(err, domain.ErrUnsupportedProvider):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported_provider", "error_description": "That sign-in provider is not supported."})
	case errors.Is(err, domain.ErrProviderUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "provider_unavailable", "error_description": "The sign-in provider did not respond."})
	case errors.Is(err, domain.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store_unavailable", "error_description": "Please retry shortly."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": err.Error()})
	}
}

func stateKey(state string) string {
	return "login_state:" + state
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
