package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"

	"github.com/menuhub/auth-service/internal/domain"
)

// KeyClass selects which signing key a token must verify against. An access
// token never resolves in the refresh class and vice versa.
type KeyClass int

const (
	KeyClassAccess KeyClass = iota
	KeyClassRefresh
)

var allowedAlgorithms = []gojose.SignatureAlgorithm{gojose.HS256}

// Provider signs and verifies the two classes of session tokens. Both keys
// are read-only after construction.
type Provider struct {
	accessKey  []byte
	refreshKey []byte
}

// NewProvider constructs a token provider from the two independent secrets.
func NewProvider(accessKey, refreshKey []byte) *Provider {
	return &Provider{accessKey: accessKey, refreshKey: refreshKey}
}

// IssueAccessToken mints a short-lived token carrying only the subject claim.
func (p *Provider) IssueAccessToken(userID int64, validFor time.Duration) (string, error) {
	return p.issue(userID, validFor, p.accessKey)
}

// IssueRefreshToken mints a long-lived token in the refresh key class.
func (p *Provider) IssueRefreshToken(userID int64, validFor time.Duration) (string, error) {
	return p.issue(userID, validFor, p.refreshKey)
}

func (p *Provider) issue(userID int64, validFor time.Duration, key []byte) (string, error) {
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.HS256, Key: key},
		(&gojose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("new signer: %w", err)
	}

	now := time.Now().UTC()
	claims := gojwt.Claims{
		Subject:  strconv.FormatInt(userID, 10),
		IssuedAt: gojwt.NewNumericDate(now),
		Expiry:   gojwt.NewNumericDate(now.Add(validFor)),
	}

	token, err := gojwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize token: %w", err)
	}
	return token, nil
}

// ResolveSubject verifies signature and expiry against the key of the given
// class and returns the numeric subject. Signature failures yield
// domain.ErrInvalidToken, past expiry domain.ErrExpiredToken.
func (p *Provider) ResolveSubject(token string, class KeyClass) (int64, error) {
	key := p.accessKey
	if class == KeyClassRefresh {
		key = p.refreshKey
	}

	parsed, err := gojwt.ParseSigned(token, allowedAlgorithms)
	if err != nil {
		return 0, domain.ErrInvalidToken
	}

	var claims gojwt.Claims
	if err := parsed.Claims(key, &claims); err != nil {
		return 0, domain.ErrInvalidToken
	}

	if err := claims.Validate(gojwt.Expected{Time: time.Now().UTC()}); err != nil {
		if errors.Is(err, gojwt.ErrExpired) {
			return 0, domain.ErrExpiredToken
		}
		return 0, domain.ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, domain.ErrInvalidToken
	}
	return userID, nil
}
