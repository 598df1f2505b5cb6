package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/menuhub/auth-service/internal/domain"
	"github.com/menuhub/auth-service/internal/token"
)

const userIDKey = "authUserID"

// Auth validates the access token and attaches the subject to the request.
type Auth struct {
	Tokens *token.Provider
}

// RequireUser rejects requests without a valid access token. The token comes
// from the Authorization header or, failing that, the access_token cookie.
func (m *Auth) RequireUser(c *gin.Context) {
	raw := bearerToken(c)
	if raw == "" {
		if cookie, err := c.Cookie("access_token"); err == nil {
			raw = cookie
		}
	}
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Access token required."})
		return
	}

	userID, err := m.Tokens.ResolveSubject(raw, token.KeyClassAccess)
	if err != nil {
		code := "invalid_token"
		if errors.Is(err, domain.ErrExpiredToken) {
			code = "expired_token"
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code, "error_description": "Invalid access token."})
		return
	}

	c.Set(userIDKey, userID)
	c.Next()
}

// GetUserID returns the authenticated subject set by RequireUser.
func GetUserID(c *gin.Context) (int64, bool) {
	value, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	userID, ok := value.(int64)
	return userID, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
