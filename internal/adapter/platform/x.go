package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sproutline/social-connector/internal/config"
	"github.com/sproutline/social-connector/internal/domain/social"
	"github.com/sproutline/social-connector/internal/pkce"
)

// X enforces a hard content limit; longer text is truncated with a
// trailing ellipsis so the transmitted length is exactly the limit.
const (
	xPostLimit      = 280
	xTruncateLength = 277
)

const xScopes = "tweet.read tweet.write users.read offline.access"

type xAdapter struct {
	creds        config.PlatformCredentials
	redirectURI  string
	authorizeURL string
	tokenURL     string
	apiBaseURL   string
	httpClient   *http.Client
}

var _ Adapter = (*xAdapter)(nil)

// NewX constructs the X adapter. A nil client gets a bounded default.
func NewX(creds config.PlatformCredentials, redirectBaseURL string, client *http.Client) Adapter {
	return &xAdapter{
		creds:        creds,
		redirectURI:  redirectBaseURL + "/auth/x/callback",
		authorizeURL: "https://x.com/i/oauth2/authorize",
		tokenURL:     "https://api.x.com/2/oauth2/token",
		apiBaseURL:   "https://api.x.com",
		httpClient:   defaultClient(client),
	}
}

func (a *xAdapter) Platform() social.Platform { return social.PlatformX }

func (a *xAdapter) RequiresPKCE() bool { return true }

func (a *xAdapter) AuthorizationURL(state, challenge string) (string, error) {
	if challenge == "" {
		return "", fmt.Errorf("x authorization url: missing pkce challenge: %w", social.ErrInvalidRequest)
	}
	authURL, err := url.Parse(a.authorizeURL)
	if err != nil {
		return "", fmt.Errorf("parse authorize url: %w", err)
	}
	params := authURL.Query()
	params.Set("response_type", "code")
	params.Set("client_id", a.creds.ClientID)
	params.Set("redirect_uri", a.redirectURI)
	params.Set("scope", xScopes)
	params.Set("state", state)
	params.Set("code_challenge", challenge)
	params.Set("code_challenge_method", pkce.Method)
	authURL.RawQuery = params.Encode()
	return authURL.String(), nil
}

func (a *xAdapter) ExchangeCode(ctx context.Context, code, verifier string) (*social.TokenSet, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", a.redirectURI)
	data.Set("client_id", a.creds.ClientID)
	data.Set("code_verifier", verifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// X requires confidential clients to authenticate the token call
	// even with PKCE in play.
	req.SetBasicAuth(a.creds.ClientID, a.creds.ClientSecret)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("x token endpoint status=%d body=%s: %w", resp.StatusCode, string(body), social.ErrExchangeFailed)
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return token.toTokenSet(time.Now())
}

func (a *xAdapter) FetchProfile(ctx context.Context, accessToken string) (*social.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiBaseURL+"/2/users/me", nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("x profile endpoint status=%d", resp.StatusCode)
	}

	var payload struct {
		Data struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &social.Profile{ID: payload.Data.ID, Username: payload.Data.Username}, nil
}

func (a *xAdapter) Post(ctx context.Context, conn *social.Connection, text string) (*social.PostResult, error) {
	payload, err := json.Marshal(map[string]string{"text": truncateForX(text)})
	if err != nil {
		return nil, fmt.Errorf("marshal post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiBaseURL+"/2/tweets", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build post request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read post response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, classifyPostStatus(social.PlatformX, resp.StatusCode, string(body))
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode post response: %w", err)
	}
	return &social.PostResult{
		Platform: social.PlatformX,
		PostID:   result.Data.ID,
		PostURL:  "https://x.com/i/web/status/" + result.Data.ID,
	}, nil
}

func truncateForX(text string) string {
	runes := []rune(text)
	if len(runes) <= xPostLimit {
		return text
	}
	return string(runes[:xTruncateLength]) + "..."
}
