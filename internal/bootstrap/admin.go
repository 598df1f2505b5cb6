package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/menuhub/auth-service/internal/config"
	"github.com/menuhub/auth-service/internal/domain"
	"github.com/menuhub/auth-service/internal/password"
	"github.com/menuhub/auth-service/internal/repository"
)

const adminRole = "ROLE_ADMIN"

// EnsureAdmin creates a default admin account for dev/e2e when configured.
// Skipped entirely when ADMIN_EMAIL is not set.
func EnsureAdmin(lc fx.Lifecycle, cfg config.Config, store repository.AuthStore, node *snowflake.Node, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return ensureAdmin(ctx, cfg, store, node, logger)
		},
	})
}

func ensureAdmin(ctx context.Context, cfg config.Config, store repository.AuthStore, node *snowflake.Node, logger *zap.Logger) error {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" {
		return nil
	}
	if strings.TrimSpace(cfg.AdminPassword) == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required when ADMIN_EMAIL is set")
	}

	if _, err := store.FindUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return fmt.Errorf("bootstrap lookup admin: %w", err)
	}

	hashed, err := password.Hash(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap hash password: %w", err)
	}

	var created domain.User
	err = store.InTx(ctx, func(tx repository.AuthStore) error {
		user := domain.User{
			ID:    node.Generate().Int64(),
			Email: email,
			Name:  "Admin",
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
		if err := tx.InsertAuthority(ctx, domain.Authority{UserID: user.ID, Role: adminRole}); err != nil {
			return err
		}
		created = user
		return nil
	})
	if err != nil {
		// A parallel instance may have won the race; that still counts as done.
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil
		}
		return fmt.Errorf("bootstrap create admin: %w", err)
	}

	if logger != nil {
		logger.Info("bootstrap admin user created",
			zap.String("email", created.Email),
			zap.Int64("user_id", created.ID),
		)
	}
	return nil
}
