package social

import (
	"strings"
	"time"
)

// Platform identifies a supported third-party publishing platform.
type Platform string

const (
	// PlatformX is X (formerly Twitter); OAuth2 with mandatory PKCE.
	PlatformX Platform = "x"
	// PlatformLinkedIn is LinkedIn; OAuth2 with client-secret authentication.
	PlatformLinkedIn Platform = "linkedin"
)

// ParsePlatform normalizes a platform selector from user input.
// The legacy alias "twitter" maps to PlatformX.
func ParsePlatform(raw string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "x", "twitter":
		return PlatformX, nil
	case "linkedin":
		return PlatformLinkedIn, nil
	default:
		return "", ErrUnknownPlatform
	}
}

// Connection is the persisted credential record for one (user, platform)
// pair. At most one live record exists per pair.
type Connection struct {
	UserID           string
	Platform         Platform
	AccessToken      string
	RefreshToken     string
	ExpiresAt        *time.Time
	PlatformUserID   string
	PlatformUsername string
	ConnectedAt      time.Time
}

// Summary returns the secret-stripped projection of the connection.
// Token values never leave the repository layer through this shape.
func (c Connection) Summary() ConnectionSummary {
	return ConnectionSummary{
		Platform:         c.Platform,
		Connected:        c.AccessToken != "",
		PlatformUserID:   c.PlatformUserID,
		PlatformUsername: c.PlatformUsername,
		ConnectedAt:      c.ConnectedAt,
		ExpiresAt:        c.ExpiresAt,
	}
}

// ConnectionSummary is the externally listable projection of a Connection.
type ConnectionSummary struct {
	Platform         Platform   `json:"platform"`
	Connected        bool       `json:"connected"`
	PlatformUserID   string     `json:"platform_user_id,omitempty"`
	PlatformUsername string     `json:"platform_username,omitempty"`
	ConnectedAt      time.Time  `json:"connected_at"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
}

// TransitState is the session context carried through the OAuth redirect
// round trip inside the state query parameter. It is never persisted;
// CodeVerifier is set only for the PKCE platform.
type TransitState struct {
	SessionID    string `json:"sessionId"`
	CodeVerifier string `json:"codeVerifier,omitempty"`
}

// TokenSet is the normalized result of a token-endpoint exchange.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// Profile is the normalized platform profile used to label a connection.
type Profile struct {
	ID       string
	Username string
}

// PostResult describes a successfully published post.
type PostResult struct {
	Platform Platform `json:"platform"`
	PostID   string   `json:"postId"`
	PostURL  string   `json:"postUrl,omitempty"`
}
