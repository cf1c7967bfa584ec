// Package platform contains the per-platform OAuth and publishing
// adapters. Everything platform-specific — PKCE vs. client-secret
// exchange, scopes, post payload shapes, content limits — stays behind
// the Adapter interface; nothing above it parses raw platform JSON.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sproutline/social-connector/internal/domain/social"
)

// Adapter is the capability set every supported platform implements.
type Adapter interface {
	Platform() social.Platform
	// RequiresPKCE reports whether connect-initiation must generate a
	// PKCE pair for this platform.
	RequiresPKCE() bool
	// AuthorizationURL builds the platform authorize endpoint URL with
	// the encoded transit state. challenge is empty for non-PKCE
	// platforms.
	AuthorizationURL(state, challenge string) (string, error)
	// ExchangeCode redeems an authorization code at the token endpoint.
	// verifier is the PKCE verifier recovered from transit state; it is
	// ignored by non-PKCE platforms.
	ExchangeCode(ctx context.Context, code, verifier string) (*social.TokenSet, error)
	// FetchProfile loads the authenticated profile. Best-effort: callers
	// tolerate failure and leave profile fields absent.
	FetchProfile(ctx context.Context, accessToken string) (*social.Profile, error)
	// Post publishes text through the platform posting API using the
	// stored connection's credentials.
	Post(ctx context.Context, conn *social.Connection, text string) (*social.PostResult, error)
}

// Registry resolves adapters by platform. Only platforms with
// configured credentials are registered.
type Registry struct {
	adapters map[social.Platform]Adapter
}

// NewRegistry builds a registry from the configured adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[social.Platform]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Platform()] = a
	}
	return &Registry{adapters: m}
}

// Lookup returns the adapter or social.ErrNotConfigured.
func (r *Registry) Lookup(p social.Platform) (Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, social.ErrNotConfigured)
	}
	return a, nil
}

func defaultClient(client *http.Client) *http.Client {
	if client == nil {
		return &http.Client{Timeout: 10 * time.Second}
	}
	return client
}

// tokenResponse covers the overlapping token-endpoint shapes of both
// platforms.
type tokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresIn    json.RawMessage `json:"expires_in"`
}

func (t tokenResponse) toTokenSet(now time.Time) (*social.TokenSet, error) {
	if t.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token: %w", social.ErrExchangeFailed)
	}
	set := &social.TokenSet{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
	}
	if secs := expiresInSeconds(t.ExpiresIn); secs > 0 {
		expiry := now.Add(time.Duration(secs) * time.Second)
		set.ExpiresAt = &expiry
	}
	return set, nil
}

// expiresInSeconds tolerates both numeric and string renderings that
// platforms use for expires_in.
func expiresInSeconds(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// classifyPostStatus converts a non-2xx posting response into a
// PostError, flagging credential failures as reconnect-required.
func classifyPostStatus(p social.Platform, status int, body string) *social.PostError {
	return &social.PostError{
		Platform:          p,
		StatusCode:        status,
		Body:              body,
		ReconnectRequired: status == http.StatusUnauthorized || status == http.StatusForbidden,
	}
}
