// Package session resolves opaque session identifiers against the
// shared Redis session store written by the platform's auth service.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/sproutline/social-connector/internal/domain/social"
	"github.com/sproutline/social-connector/internal/repository"
)

const sessionPrefix = "session:"

// RedisResolver implements repository.SessionResolver backed by Redis.
type RedisResolver struct {
	client redis.UniversalClient
}

var _ repository.SessionResolver = (*RedisResolver)(nil)

// NewRedisResolver constructs a Redis-backed session resolver.
func NewRedisResolver(client redis.UniversalClient) *RedisResolver {
	return &RedisResolver{client: client}
}

// Ping reports Redis liveness for the health endpoint.
func (r *RedisResolver) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Resolve looks up the session record and returns its user ID. A
// missing or expired session maps to social.ErrUnauthorized. The
// session's JSON shape is owned by the auth service; only user_id is
// read here, with a plain-string fallback for legacy keys.
func (r *RedisResolver) Resolve(ctx context.Context, sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", social.ErrUnauthorized
	}

	raw, err := r.client.Get(ctx, sessionPrefix+sessionID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return "", social.ErrUnauthorized
		}
		return "", fmt.Errorf("load session: %w", err)
	}

	var record struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(raw, &record); err == nil && record.UserID != "" {
		return record.UserID, nil
	}
	if userID := strings.TrimSpace(string(raw)); userID != "" {
		return userID, nil
	}
	return "", social.ErrUnauthorized
}
