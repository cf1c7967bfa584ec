package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sproutline/social-connector/internal/config"
	"github.com/sproutline/social-connector/internal/domain/social"
	"github.com/sproutline/social-connector/internal/service/connect"
	"github.com/sproutline/social-connector/internal/service/publish"
)

func newTestRouter(h *SocialHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/auth/:platform/connect", h.Connect)
	r.GET("/auth/:platform/callback", h.Callback)
	r.POST("/api/social/post", h.Post)
	r.GET("/api/social/connections", h.ListConnections)
	r.GET("/api/social/connections/:platform", h.GetConnection)
	r.DELETE("/api/social/connections/:platform", h.Disconnect)
	return r
}

func newSocialHandler(connections connect.ConnectionService, publisher publish.Publisher) *SocialHandler {
	cfg := config.Config{AppBaseURL: "https://app.example.com", AppRedirectPath: "/dashboard/settings"}
	return NewSocialHandler(cfg, connections, publisher, zap.NewNop())
}

func TestConnect_Redirects(t *testing.T) {
	svc := &fakeConnectionService{initiateURL: "https://x.com/i/oauth2/authorize?state=abc"}
	r := newTestRouter(newSocialHandler(svc, &fakePublisher{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/x/connect?session_id=sess-1", nil))

	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, svc.initiateURL, w.Header().Get("Location"))
	require.Equal(t, "sess-1", svc.gotSessionID)
	require.Equal(t, "x", svc.gotPlatform)
}

func TestConnect_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"missing session", social.ErrInvalidRequest, http.StatusBadRequest, "missing_session"},
		{"unknown platform", social.ErrUnknownPlatform, http.StatusBadRequest, "unknown_platform"},
		{"not configured", social.ErrNotConfigured, http.StatusServiceUnavailable, "platform_not_configured"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(newSocialHandler(&fakeConnectionService{initiateErr: tc.err}, &fakePublisher{}))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/x/connect", nil))

			require.Equal(t, tc.wantStatus, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.Equal(t, tc.wantError, body["error"])
		})
	}
}

func TestCallback_SuccessRedirect(t *testing.T) {
	svc := &fakeConnectionService{outcome: connect.CallbackOutcome{
		Connected: true,
		Platform:  social.PlatformX,
		Username:  "sprouter",
	}}
	r := newTestRouter(newSocialHandler(svc, &fakePublisher{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/x/callback?code=c&state=s", nil))

	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(loc.String(), "https://app.example.com/dashboard/settings?"))
	require.Equal(t, "x", loc.Query().Get("social_connected"))
	require.Equal(t, "sprouter", loc.Query().Get("username"))
	require.Equal(t, "c", svc.gotCallback.Code)
	require.Equal(t, "s", svc.gotCallback.State)
}

func TestCallback_FailureRedirect(t *testing.T) {
	svc := &fakeConnectionService{outcome: connect.CallbackOutcome{
		Platform: social.PlatformLinkedIn,
		Reason:   "access_denied",
	}}
	r := newTestRouter(newSocialHandler(svc, &fakePublisher{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/linkedin/callback?error=access_denied", nil))

	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "access_denied", loc.Query().Get("social_error"))
	require.False(t, loc.Query().Has("social_connected"))
	require.Equal(t, "access_denied", svc.gotCallback.PlatformError)
}

func TestPost_OK(t *testing.T) {
	pub := &fakePublisher{result: &social.PostResult{
		Platform: social.PlatformX,
		PostID:   "777",
		PostURL:  "https://x.com/i/web/status/777",
	}}
	r := newTestRouter(newSocialHandler(&fakeConnectionService{}, pub))

	body := `{"session_id":"sess-1","platform":"x","text":"hello"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/social/post", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool   `json:"success"`
		PostID  string `json:"postId"`
		PostURL string `json:"postUrl"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "777", resp.PostID)
	require.Equal(t, "hello", pub.gotInput.Text)
}

func TestPost_ErrorMapping(t *testing.T) {
	cases := []struct {
		name          string
		err           error
		wantStatus    int
		wantReconnect bool
	}{
		{"invalid session", social.ErrUnauthorized, http.StatusUnauthorized, false},
		{"not connected", social.ErrNotConnected, http.StatusUnauthorized, false},
		{"empty text", social.ErrInvalidRequest, http.StatusBadRequest, false},
		{"missing author", social.ErrMissingAuthor, http.StatusUnauthorized, true},
		{
			"revoked credentials",
			&social.PostError{Platform: social.PlatformX, StatusCode: 401, ReconnectRequired: true},
			http.StatusUnauthorized,
			true,
		},
		{
			"platform outage",
			&social.PostError{Platform: social.PlatformX, StatusCode: 500, Body: "oops"},
			http.StatusBadGateway,
			false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(newSocialHandler(&fakeConnectionService{}, &fakePublisher{err: tc.err}))
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/social/post", strings.NewReader(`{"session_id":"s","platform":"x","text":"t"}`))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			require.Equal(t, tc.wantStatus, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			_, hasReconnect := body["needsReconnect"]
			require.Equal(t, tc.wantReconnect, hasReconnect)
		})
	}
}

func TestPost_MalformedBody(t *testing.T) {
	r := newTestRouter(newSocialHandler(&fakeConnectionService{}, &fakePublisher{}))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/social/post", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConnections_ListGetDisconnect(t *testing.T) {
	svc := &fakeConnectionService{
		summaries: []social.ConnectionSummary{{Platform: social.PlatformX, PlatformUsername: "sprouter", Connected: true}},
	}
	r := newTestRouter(newSocialHandler(svc, &fakePublisher{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/social/connections?session_id=sess-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var listResp struct {
		Connections []social.ConnectionSummary `json:"connections"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	require.Len(t, listResp.Connections, 1)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/social/connections/x?session_id=sess-1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/social/connections/x?session_id=sess-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "disconnected")
}

func TestGetConnection_NotFound(t *testing.T) {
	svc := &fakeConnectionService{getErr: social.ErrNotConnected}
	r := newTestRouter(newSocialHandler(svc, &fakePublisher{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/social/connections/x?session_id=sess-1", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

// ---- fakes ----

type fakeConnectionService struct {
	initiateURL string
	initiateErr error
	outcome     connect.CallbackOutcome
	summaries   []social.ConnectionSummary
	getErr      error

	gotSessionID string
	gotPlatform  string
	gotCallback  connect.CallbackInput
}

func (f *fakeConnectionService) InitiateConnect(_ context.Context, sessionID, platformName string) (string, error) {
	f.gotSessionID = sessionID
	f.gotPlatform = platformName
	if f.initiateErr != nil {
		return "", f.initiateErr
	}
	return f.initiateURL, nil
}

func (f *fakeConnectionService) HandleCallback(_ context.Context, _ string, in connect.CallbackInput) connect.CallbackOutcome {
	f.gotCallback = in
	return f.outcome
}

func (f *fakeConnectionService) Disconnect(context.Context, string, string) error {
	return f.getErr
}

func (f *fakeConnectionService) ListConnections(context.Context, string) ([]social.ConnectionSummary, error) {
	return f.summaries, f.getErr
}

func (f *fakeConnectionService) GetConnection(context.Context, string, string) (*social.ConnectionSummary, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if len(f.summaries) == 0 {
		return &social.ConnectionSummary{}, nil
	}
	return &f.summaries[0], nil
}

type fakePublisher struct {
	result *social.PostResult
	err    error

	gotInput publish.Input
}

func (f *fakePublisher) Post(_ context.Context, in publish.Input) (*social.PostResult, error) {
	f.gotInput = in
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &social.PostResult{}, nil
}
