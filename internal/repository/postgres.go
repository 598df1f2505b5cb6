package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/menuhub/auth-service/internal/domain"
)

var _ AuthStore = (*PostgresAuthStore)(nil)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresAuthStore implements AuthStore on pgx.
type PostgresAuthStore struct {
	db   querier
	pool *pgxpool.Pool
}

// NewPostgresAuthStore wraps the connection pool.
func NewPostgresAuthStore(pool *pgxpool.Pool) *PostgresAuthStore {
	return &PostgresAuthStore{db: pool, pool: pool}
}

const selectUserSQL = `
SELECT u.id, u.email, u.name, u.profile_url, u.created_at,
       COALESCE(array_agg(a.role ORDER BY a.role) FILTER (WHERE a.role IS NOT NULL), '{}')
FROM users u
LEFT JOIN user_authorities a ON a.user_id = u.id
`

func (s *PostgresAuthStore) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := s.db.QueryRow(ctx, selectUserSQL+"WHERE u.email = $1 GROUP BY u.id", email)
	return scanUser(row, "find user by email")
}

func (s *PostgresAuthStore) FindUserByID(ctx context.Context, userID int64) (domain.User, error) {
	row := s.db.QueryRow(ctx, selectUserSQL+"WHERE u.id = $1 GROUP BY u.id", userID)
	return scanUser(row, "find user by id")
}

func scanUser(row pgx.Row, op string) (domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.ProfileURL, &user.CreatedAt, &user.Roles)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrAccountNotFound
		}
		return domain.User{}, storeErr(op, err)
	}
	return user, nil
}

func (s *PostgresAuthStore) InsertUser(ctx context.Context, user domain.User) error {
	const query = `INSERT INTO users (id, email, name, profile_url) VALUES ($1, $2, $3, $4)`
	if _, err := s.db.Exec(ctx, query, user.ID, user.Email, user.Name, user.ProfileURL); err != nil {
		return storeErr("insert user", err)
	}
	return nil
}

func (s *PostgresAuthStore) GetCredential(ctx context.Context, userID int64) (domain.Credential, error) {
	const query = `SELECT user_id, password_hash FROM user_credentials WHERE user_id = $1`
	var cred domain.Credential
	if err := s.db.QueryRow(ctx, query, userID).Scan(&cred.UserID, &cred.PasswordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Credential{}, domain.ErrAccountNotFound
		}
		return domain.Credential{}, storeErr("get credential", err)
	}
	return cred, nil
}

func (s *PostgresAuthStore) InsertCredential(ctx context.Context, cred domain.Credential) error {
	const query = `INSERT INTO user_credentials (user_id, password_hash) VALUES ($1, $2)`
	if _, err := s.db.Exec(ctx, query, cred.UserID, cred.PasswordHash); err != nil {
		return storeErr("insert credential", err)
	}
	return nil
}

func (s *PostgresAuthStore) InsertAuthority(ctx context.Context, auth domain.Authority) error {
	const query = `INSERT INTO user_authorities (user_id, role) VALUES ($1, $2)`
	if _, err := s.db.Exec(ctx, query, auth.UserID, auth.Role); err != nil {
		return storeErr("insert authority", err)
	}
	return nil
}

func (s *PostgresAuthStore) InsertIdentity(ctx context.Context, ident domain.Identity) error {
	const query = `INSERT INTO user_identities (user_id, provider, provider_user_id, access_token)
VALUES ($1, $2, $3, $4)`
	if _, err := s.db.Exec(ctx, query, ident.UserID, ident.Provider, ident.ProviderUserID, ident.AccessToken); err != nil {
		return storeErr("insert identity", err)
	}
	return nil
}

func (s *PostgresAuthStore) UpdateIdentityToken(ctx context.Context, provider, providerUserID, accessToken string) (int64, error) {
	const query = `UPDATE user_identities
SET access_token = $3, updated_at = now()
WHERE provider = $1 AND provider_user_id = $2
RETURNING user_id`
	var userID int64
	if err := s.db.QueryRow(ctx, query, provider, providerUserID, accessToken).Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrAccountNotFound
		}
		return 0, storeErr("update identity token", err)
	}
	return userID, nil
}

func (s *PostgresAuthStore) GetProviderAccessToken(ctx context.Context, userID int64, provider string) (string, error) {
	const query = `SELECT access_token FROM user_identities WHERE user_id = $1 AND provider = $2`
	var accessToken string
	if err := s.db.QueryRow(ctx, query, userID, provider).Scan(&accessToken); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrAccountNotFound
		}
		return "", storeErr("get provider access token", err)
	}
	return accessToken, nil
}

// InTx begins a transaction and runs fn against it. Nested calls reuse the
// surrounding transaction.
func (s *PostgresAuthStore) InTx(ctx context.Context, fn func(AuthStore) error) error {
	if s.pool == nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storeErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PostgresAuthStore{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return storeErr("commit tx", err)
	}
	return nil
}

// storeErr maps low-level pgx failures onto the domain taxonomy. Unique
// violations keep their constraint-specific identity; everything else is a
// store availability problem.
func storeErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if strings.Contains(pgErr.ConstraintName, "email") {
			return domain.ErrDuplicateEmail
		}
		if strings.Contains(pgErr.ConstraintName, "identities") {
			return domain.ErrDuplicateIdentity
		}
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
}
