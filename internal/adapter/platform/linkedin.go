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
)

const linkedinScopes = "openid profile w_member_social"

type linkedinAdapter struct {
	creds        config.PlatformCredentials
	redirectURI  string
	authorizeURL string
	tokenURL     string
	apiBaseURL   string
	httpClient   *http.Client
}

var _ Adapter = (*linkedinAdapter)(nil)

// NewLinkedIn constructs the LinkedIn adapter.
func NewLinkedIn(creds config.PlatformCredentials, redirectBaseURL string, client *http.Client) Adapter {
	return &linkedinAdapter{
		creds:        creds,
		redirectURI:  redirectBaseURL + "/auth/linkedin/callback",
		authorizeURL: "https://www.linkedin.com/oauth/v2/authorization",
		tokenURL:     "https://www.linkedin.com/oauth/v2/accessToken",
		apiBaseURL:   "https://api.linkedin.com",
		httpClient:   defaultClient(client),
	}
}

func (a *linkedinAdapter) Platform() social.Platform { return social.PlatformLinkedIn }

func (a *linkedinAdapter) RequiresPKCE() bool { return false }

func (a *linkedinAdapter) AuthorizationURL(state, _ string) (string, error) {
	authURL, err := url.Parse(a.authorizeURL)
	if err != nil {
		return "", fmt.Errorf("parse authorize url: %w", err)
	}
	params := authURL.Query()
	params.Set("response_type", "code")
	params.Set("client_id", a.creds.ClientID)
	params.Set("redirect_uri", a.redirectURI)
	params.Set("scope", linkedinScopes)
	params.Set("state", state)
	authURL.RawQuery = params.Encode()
	return authURL.String(), nil
}

// ExchangeCode authenticates with the client secret; LinkedIn does not
// use PKCE, so the verifier is ignored.
func (a *linkedinAdapter) ExchangeCode(ctx context.Context, code, _ string) (*social.TokenSet, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", a.redirectURI)
	data.Set("client_id", a.creds.ClientID)
	data.Set("client_secret", a.creds.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

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
		return nil, fmt.Errorf("linkedin token endpoint status=%d body=%s: %w", resp.StatusCode, string(body), social.ErrExchangeFailed)
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return token.toTokenSet(time.Now())
}

// FetchProfile reads the OpenID userinfo endpoint, which carries the
// member URN in sub and a display name.
func (a *linkedinAdapter) FetchProfile(ctx context.Context, accessToken string) (*social.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiBaseURL+"/v2/userinfo", nil)
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
		return nil, fmt.Errorf("linkedin profile endpoint status=%d", resp.StatusCode)
	}

	var payload struct {
		Sub        string `json:"sub"`
		Name       string `json:"name"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	name := payload.Name
	if name == "" {
		name = strings.TrimSpace(payload.GivenName + " " + payload.FamilyName)
	}
	return &social.Profile{ID: payload.Sub, Username: name}, nil
}

// Post publishes a ugcPost. The author URN is built from the stored
// platform user ID; without it the post fails before any network call.
func (a *linkedinAdapter) Post(ctx context.Context, conn *social.Connection, text string) (*social.PostResult, error) {
	if conn.PlatformUserID == "" {
		return nil, fmt.Errorf("linkedin post: %w", social.ErrMissingAuthor)
	}

	payload, err := json.Marshal(map[string]any{
		"author":         "urn:li:person:" + conn.PlatformUserID,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]string{"text": text},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiBaseURL+"/v2/ugcPosts", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build post request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

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
		return nil, classifyPostStatus(social.PlatformLinkedIn, resp.StatusCode, string(body))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode post response: %w", err)
	}
	postID := result.ID
	if postID == "" {
		postID = resp.Header.Get("X-RestLi-Id")
	}
	return &social.PostResult{
		Platform: social.PlatformLinkedIn,
		PostID:   postID,
		PostURL:  "https://www.linkedin.com/feed/update/" + postID,
	}, nil
}
