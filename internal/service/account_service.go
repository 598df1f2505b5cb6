package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/menuhub/auth-service/internal/adapter/kakao"
	"github.com/menuhub/auth-service/internal/config"
	"github.com/menuhub/auth-service/internal/domain"
	pw "github.com/menuhub/auth-service/internal/password"
	"github.com/menuhub/auth-service/internal/repository"
	"github.com/menuhub/auth-service/internal/token"
)

// AccountService encapsulates the password login, signup, and refresh flows.
type AccountService struct {
	store     repository.AuthStore
	tokens    *token.Provider
	profiles  kakao.ProfileAPI
	snowflake *snowflake.Node
	cfg       config.Config
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewAccountService wires dependencies.
func NewAccountService(store repository.AuthStore, tokens *token.Provider, profiles kakao.ProfileAPI, node *snowflake.Node, cfg config.Config, logger *zap.Logger) *AccountService {
	return &AccountService{
		store:     store,
		tokens:    tokens,
		profiles:  profiles,
		snowflake: node,
		cfg:       cfg,
		logger:    logger,
		tracer:    otel.Tracer("github.com/menuhub/auth-service/internal/service"),
	}
}

// ExistsByEmail reports whether an account with the email exists. No side effects.
func (s *AccountService) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.store.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Login authenticates an email/password pair and mints both token classes.
// A missing account and a wrong password stay distinguishable: the former is
// ErrAccountNotFound, the latter ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (domain.AuthResult, error) {
	ctx, span := s.startSpan(ctx, "AccountService.Login")
	defer span.End()

	user, err := s.store.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		span.RecordError(err)
		return domain.AuthResult{}, err
	}

	cred, err := s.store.GetCredential(ctx, user.ID)
	if err != nil {
		// Social-only accounts have no credential row; password login is
		// impossible for them, not "account missing".
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.AuthResult{}, domain.ErrInvalidCredentials
		}
		span.RecordError(err)
		return domain.AuthResult{}, err
	}

	valid, err := pw.Verify(password, cred.PasswordHash)
	if err != nil || !valid {
		return domain.AuthResult{}, domain.ErrInvalidCredentials
	}

	result, err := s.issueTokens(user, true)
	if err != nil {
		span.RecordError(err)
		return domain.AuthResult{}, err
	}

	s.audit("password.login.success", "user_id", user.ID)
	return result, nil
}

// Signup creates the user, credential, and default authority rows as one
// atomic unit, then mints both token classes. A concurrent signup for the
// same email loses with ErrDuplicateEmail and leaves nothing behind.
func (s *AccountService) Signup(ctx context.Context, email, password string) (domain.AuthResult, error) {
	ctx, span := s.startSpan(ctx, "AccountService.Signup")
	defer span.End()

	normalized := normalizeEmail(email)
	if normalized == "" {
		return domain.AuthResult{}, domain.ErrInvalidCredentials
	}
	if strings.TrimSpace(password) == "" {
		return domain.AuthResult{}, domain.ErrInvalidCredentials
	}

	hashed, err := pw.Hash(password)
	if err != nil {
		span.RecordError(err)
		return domain.AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	var created domain.User
	err = s.store.InTx(ctx, func(tx repository.AuthStore) error {
		user := domain.User{
			ID:    s.snowflake.Generate().Int64(),
			Email: normalized,
			Name:  displayNameFromEmail(normalized),
		}
		if err := tx.InsertUser(ctx, user); err != nil {
			return err
		}
		if err := tx.InsertCredential(ctx, domain.Credential{UserID: user.ID, PasswordHash: hashed}); err != nil {
			return err
		}
		if err := tx.InsertAuthority(ctx, domain.Authority{UserID: user.ID, Role: domain.DefaultRole}); err != nil {
			return err
		}
		var readErr error
		created, readErr = tx.FindUserByID(ctx, user.ID)
		return readErr
	})
	if err != nil {
		span.RecordError(err)
		return domain.AuthResult{}, err
	}

	result, err := s.issueTokens(created, true)
	if err != nil {
		span.RecordError(err)
		return domain.AuthResult{}, err
	}

	s.audit("password.signup.success", "user_id", created.ID, "email", created.Email)
	return result, nil
}

// RefreshByCookie exchanges a refresh token for a new access token. No new
// refresh token is issued.
func (s *AccountService) RefreshByCookie(ctx context.Context, refreshToken string) (domain.AuthResult, error) {
	ctx, span := s.startSpan(ctx, "AccountService.RefreshByCookie")
	defer span.End()

	userID, err := s.tokens.ResolveSubject(refreshToken, token.KeyClassRefresh)
	if err != nil {
		return domain.AuthResult{}, err
	}

	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return domain.AuthResult{}, err
	}

	result, err := s.issueTokens(user, false)
	if err != nil {
		span.RecordError(err)
		return domain.AuthResult{}, err
	}

	s.audit("refresh.success", "user_id", user.ID)
	return result, nil
}

// LoginSocial mints both token classes for an already-linked account. The
// social callback calls this after the linker resolves the local user id.
func (s *AccountService) LoginSocial(ctx context.Context, userID int64) (domain.AuthResult, error) {
	ctx, span := s.startSpan(ctx, "AccountService.LoginSocial")
	defer span.End()

	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return domain.AuthResult{}, err
	}

	result, err := s.issueTokens(user, true)
	if err != nil {
		span.RecordError(err)
		return domain.AuthResult{}, err
	}

	s.audit("social.login.success", "user_id", user.ID)
	return result, nil
}

// GetUser loads the local user record by id.
func (s *AccountService) GetUser(ctx context.Context, userID int64) (domain.User, error) {
	return s.store.FindUserByID(ctx, userID)
}

// SocialProfile retrieves the stored provider access token for the user,
// calls the provider profile API, and maps the response into a transient
// user shape with the default role. The local user row is never touched;
// this serves display refresh only.
func (s *AccountService) SocialProfile(ctx context.Context, userID int64) (domain.User, error) {
	ctx, span := s.startSpan(ctx, "AccountService.SocialProfile")
	defer span.End()

	accessToken, err := s.store.GetProviderAccessToken(ctx, userID, kakao.Provider)
	if err != nil {
		span.RecordError(err)
		return domain.User{}, err
	}

	profile, err := s.profiles.FetchProfile(ctx, accessToken)
	if err != nil {
		span.RecordError(err)
		return domain.User{}, err
	}

	return domain.User{
		Email:      profile.Email,
		Name:       profile.Nickname,
		ProfileURL: profile.ProfileImageURL,
		Roles:      []string{domain.DefaultRole},
	}, nil
}

func (s *AccountService) issueTokens(user domain.User, withRefresh bool) (domain.AuthResult, error) {
	access, err := s.tokens.IssueAccessToken(user.ID, s.cfg.AccessTokenTTL)
	if err != nil {
		return domain.AuthResult{}, fmt.Errorf("issue access token: %w", err)
	}

	result := domain.AuthResult{AccessToken: access, User: user}
	if withRefresh {
		refresh, err := s.tokens.IssueRefreshToken(user.ID, s.cfg.RefreshTokenTTL)
		if err != nil {
			return domain.AuthResult{}, fmt.Errorf("issue refresh token: %w", err)
		}
		result.RefreshToken = refresh
	}
	return result, nil
}

func (s *AccountService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *AccountService) audit(event string, attrs ...any) {
	logger := s.log()
	if logger == nil {
		return
	}
	fields := make([]zap.Field, 0, len(attrs)/2+2)
	fields = append(fields, zap.String("event", event), zap.Time("timestamp", time.Now().UTC()))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	logger.Info("audit", fields...)
}

func (s *AccountService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func displayNameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
