package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cacheadapter "github.com/menuhub/auth-service/internal/adapter/cache"
	"github.com/menuhub/auth-service/internal/adapter/kakao"
	"github.com/menuhub/auth-service/internal/bootstrap"
	"github.com/menuhub/auth-service/internal/config"
	httptransport "github.com/menuhub/auth-service/internal/http"
	"github.com/menuhub/auth-service/internal/http/handler"
	httpmiddleware "github.com/menuhub/auth-service/internal/http/middleware"
	"github.com/menuhub/auth-service/internal/repository"
	"github.com/menuhub/auth-service/internal/server"
	"github.com/menuhub/auth-service/internal/service"
	"github.com/menuhub/auth-service/internal/telemetry"
	"github.com/menuhub/auth-service/internal/token"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newAuthStore,
			newRedisClient,
			newStateStore,
			newTokenProvider,
			newKakaoClient,
			newProfileAPI,
			newTokenExchanger,
			newAccountService,
			service.NewSocialLinker,
			handler.NewAuthHandler,
			newAuthMiddleware,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, runMigrations, bootstrap.EnsureAdmin, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	node, err := snowflake.NewNode(1)
	return node, err
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newAuthStore(pool *pgxpool.Pool) repository.AuthStore {
	return repository.NewPostgresAuthStore(pool)
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newStateStore(client redis.UniversalClient) repository.StateStore {
	return cacheadapter.NewRedisStateStore(client)
}

func newTokenProvider(cfg config.Config) *token.Provider {
	return token.NewProvider(cfg.AccessTokenSecret, cfg.RefreshTokenSecret)
}

func newKakaoClient(cfg config.Config) *kakao.Client {
	return kakao.NewClient(
		&http.Client{Timeout: 10 * time.Second},
		cfg.KakaoClientID,
		cfg.KakaoClientSecret,
		cfg.KakaoTokenURL,
		cfg.KakaoProfileURL,
	)
}

func newProfileAPI(client *kakao.Client) kakao.ProfileAPI {
	return client
}

func newTokenExchanger(client *kakao.Client) kakao.TokenExchanger {
	return client
}

func newAccountService(
	store repository.AuthStore,
	tokens *token.Provider,
	profiles kakao.ProfileAPI,
	node *snowflake.Node,
	cfg config.Config,
	logger *zap.Logger,
) *service.AccountService {
	return service.NewAccountService(store, tokens, profiles, node, cfg, logger)
}

func newAuthMiddleware(tokens *token.Provider) *httpmiddleware.Auth {
	return &httpmiddleware.Auth{Tokens: tokens}
}

func runMigrations(cfg config.Config, logger *zap.Logger) error {
	return repository.Migrate(cfg.DatabaseURL, logger)
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
