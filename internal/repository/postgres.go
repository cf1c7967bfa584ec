package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sproutline/social-connector/internal/domain/social"
)

// PgxPool is the slice of *pgxpool.Pool the repository needs. It is
// satisfied by pgxpool.Pool and pgxmock.PgxPoolIface.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Compile-time interface assertion.
var _ ConnectionRepository = (*PostgresConnectionRepo)(nil)

// PostgresConnectionRepo implements ConnectionRepository on Postgres.
type PostgresConnectionRepo struct {
	db PgxPool
}

// NewPostgresConnectionRepo constructs the repository.
func NewPostgresConnectionRepo(db PgxPool) *PostgresConnectionRepo {
	return &PostgresConnectionRepo{db: db}
}

const getConnectionSQL = `
SELECT user_id, platform, access_token, refresh_token, expires_at, platform_user_id, platform_username, connected_at
FROM social_connections
WHERE user_id = $1 AND platform = $2`

func (r *PostgresConnectionRepo) Get(ctx context.Context, userID string, platform social.Platform) (*social.Connection, error) {
	row := r.db.QueryRow(ctx, getConnectionSQL, userID, string(platform))
	conn, err := scanConnection(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, social.ErrNotConnected
		}
		return nil, fmt.Errorf("get connection: %w", err)
	}
	return conn, nil
}

// A single keyed upsert keeps the at-most-one-record invariant under
// concurrent callbacks; the loser of the race fully overwrites the
// winner (accepted last-write-wins).
const upsertConnectionSQL = `
INSERT INTO social_connections (user_id, platform, access_token, refresh_token, expires_at, platform_user_id, platform_username, connected_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now())
ON CONFLICT (user_id, platform) DO UPDATE SET
	access_token = EXCLUDED.access_token,
	refresh_token = EXCLUDED.refresh_token,
	expires_at = EXCLUDED.expires_at,
	platform_user_id = EXCLUDED.platform_user_id,
	platform_username = EXCLUDED.platform_username,
	connected_at = now()
RETURNING user_id, platform, access_token, refresh_token, expires_at, platform_user_id, platform_username, connected_at`

func (r *PostgresConnectionRepo) Upsert(ctx context.Context, conn social.Connection) (*social.Connection, error) {
	if conn.AccessToken == "" {
		return nil, fmt.Errorf("upsert connection: empty access token: %w", social.ErrInvalidRequest)
	}
	row := r.db.QueryRow(ctx, upsertConnectionSQL,
		conn.UserID,
		string(conn.Platform),
		conn.AccessToken,
		nullableString(conn.RefreshToken),
		conn.ExpiresAt,
		nullableString(conn.PlatformUserID),
		nullableString(conn.PlatformUsername),
	)
	stored, err := scanConnection(row)
	if err != nil {
		return nil, fmt.Errorf("upsert connection: %w", err)
	}
	return stored, nil
}

func (r *PostgresConnectionRepo) Remove(ctx context.Context, userID string, platform social.Platform) error {
	const q = `DELETE FROM social_connections WHERE user_id = $1 AND platform = $2`
	if _, err := r.db.Exec(ctx, q, userID, string(platform)); err != nil {
		return fmt.Errorf("remove connection: %w", err)
	}
	return nil
}

const listConnectionsSQL = `
SELECT user_id, platform, access_token, refresh_token, expires_at, platform_user_id, platform_username, connected_at
FROM social_connections
WHERE user_id = $1
ORDER BY platform`

func (r *PostgresConnectionRepo) ListByUser(ctx context.Context, userID string) ([]social.Connection, error) {
	rows, err := r.db.Query(ctx, listConnectionsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	var conns []social.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("list connections: %w", err)
		}
		conns = append(conns, *conn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	return conns, nil
}

func scanConnection(row pgx.Row) (*social.Connection, error) {
	var (
		conn         social.Connection
		platform     string
		refreshToken *string
		platformUID  *string
		platformName *string
	)
	if err := row.Scan(
		&conn.UserID,
		&platform,
		&conn.AccessToken,
		&refreshToken,
		&conn.ExpiresAt,
		&platformUID,
		&platformName,
		&conn.ConnectedAt,
	); err != nil {
		return nil, err
	}
	conn.Platform = social.Platform(platform)
	if refreshToken != nil {
		conn.RefreshToken = *refreshToken
	}
	if platformUID != nil {
		conn.PlatformUserID = *platformUID
	}
	if platformName != nil {
		conn.PlatformUsername = *platformName
	}
	return &conn, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
