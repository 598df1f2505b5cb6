package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/menuhub/auth-service/internal/adapter/kakao"
	"github.com/menuhub/auth-service/internal/domain"
	"github.com/menuhub/auth-service/internal/repository"
)

// ProviderSignIn carries a verified provider profile into the linker.
type ProviderSignIn struct {
	Provider        string
	ProviderUserID  string
	AccessToken     string
	Email           string
	Nickname        string
	ProfileImageURL string
	Attributes      map[string]any
}

// Principal is the authenticated outcome of a social sign-in: the local user
// id plus the raw provider attributes for downstream consumers.
type Principal struct {
	UserID     int64
	Attributes map[string]any
}

// SocialLinker resolves a provider sign-in to a local account, creating one
// on first contact and refreshing the stored provider token on every pass.
type SocialLinker struct {
	store     repository.AuthStore
	snowflake *snowflake.Node
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewSocialLinker wires dependencies.
func NewSocialLinker(store repository.AuthStore, node *snowflake.Node, logger *zap.Logger) *SocialLinker {
	return &SocialLinker{
		store:     store,
		snowflake: node,
		logger:    logger,
		tracer:    otel.Tracer("github.com/menuhub/auth-service/internal/service"),
	}
}

// Link maps the provider profile onto a local account keyed by email. The
// first sign-in creates the user, identity, and default authority rows in one
// transaction; every sign-in, first or repeat, ends by persisting the fresh
// provider access token on the identity row.
func (l *SocialLinker) Link(ctx context.Context, in ProviderSignIn) (*Principal, error) {
	ctx, span := l.startSpan(ctx, "SocialLinker.Link")
	defer span.End()

	if in.Provider != kakao.Provider {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, in.Provider)
	}

	email := normalizeEmail(in.Email)
	user, err := l.store.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		// Existing account, possibly created by password signup. The identity
		// row may not exist yet when the emails collide across channels.
	case errors.Is(err, domain.ErrAccountNotFound):
		user, err = l.provision(ctx, email, in)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
	default:
		span.RecordError(err)
		return nil, err
	}

	userID, err := l.store.UpdateIdentityToken(ctx, in.Provider, in.ProviderUserID, in.AccessToken)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			// Email matched a password account with no identity row yet.
			// Attach the identity to it and retry the token write.
			identity := domain.Identity{
				UserID:         user.ID,
				Provider:       in.Provider,
				ProviderUserID: in.ProviderUserID,
				AccessToken:    in.AccessToken,
			}
			if err := l.store.InsertIdentity(ctx, identity); err != nil {
				span.RecordError(err)
				return nil, err
			}
			userID = user.ID
		} else {
			span.RecordError(err)
			return nil, err
		}
	}

	l.log().Info("social sign-in linked",
		zap.String("provider", in.Provider),
		zap.Int64("user_id", userID),
	)
	return &Principal{UserID: userID, Attributes: in.Attributes}, nil
}

func (l *SocialLinker) provision(ctx context.Context, email string, in ProviderSignIn) (domain.User, error) {
	var created domain.User
	err := l.store.InTx(ctx, func(tx repository.AuthStore) error {
		user := domain.User{
			ID:         l.snowflake.Generate().Int64(),
			Email:      email,
			Name:       in.Nickname,
			ProfileURL: in.ProfileImageURL,
		}
		if user.Name == "" {
			user.Name = displayNameFromEmail(email)
		}
		if err := tx.InsertUser(ctx, user); err != nil {
			return err
		}
		identity := domain.Identity{
			UserID:         user.ID,
			Provider:       in.Provider,
			ProviderUserID: in.ProviderUserID,
			AccessToken:    in.AccessToken,
		}
		if err := tx.InsertIdentity(ctx, identity); err != nil {
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
		// A concurrent first sign-in for the same email may win the race.
		// Fall back to the row it created.
		if errors.Is(err, domain.ErrDuplicateEmail) || errors.Is(err, domain.ErrDuplicateIdentity) {
			return l.store.FindUserByEmail(ctx, email)
		}
		return domain.User{}, err
	}

	l.log().Info("social account provisioned",
		zap.String("provider", in.Provider),
		zap.Int64("user_id", created.ID),
	)
	return created, nil
}

func (l *SocialLinker) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if l == nil || l.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return l.tracer.Start(ctx, name)
}

func (l *SocialLinker) log() *zap.Logger {
	if l != nil && l.logger != nil {
		return l.logger
	}
	return zap.L()
}
