package repository

import (
	"context"

	"github.com/sproutline/social-connector/internal/domain/social"
)

// ConnectionRepository persists one credential record per (user, platform).
type ConnectionRepository interface {
	// Get loads the connection or returns social.ErrNotConnected.
	Get(ctx context.Context, userID string, platform social.Platform) (*social.Connection, error)
	// Upsert creates or fully replaces the record for the connection's
	// key in a single keyed write; connected_at is refreshed every call.
	Upsert(ctx context.Context, conn social.Connection) (*social.Connection, error)
	// Remove deletes the record; removing an absent record is a no-op.
	Remove(ctx context.Context, userID string, platform social.Platform) error
	// ListByUser returns the user's connections ordered by platform.
	ListByUser(ctx context.Context, userID string) ([]social.Connection, error)
}

// SessionResolver maps an opaque session identifier to a user ID.
// Session issuance and validation live outside this service; the
// connector only consumes the mapping.
type SessionResolver interface {
	// Resolve returns the user ID or social.ErrUnauthorized.
	Resolve(ctx context.Context, sessionID string) (string, error)
}
