package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sproutline/social-connector/internal/config"
	"github.com/sproutline/social-connector/internal/domain/social"
	"github.com/sproutline/social-connector/internal/service/connect"
	"github.com/sproutline/social-connector/internal/service/publish"
)

// SocialHandler exposes the connect flow and the publishing API.
type SocialHandler struct {
	Connections connect.ConnectionService
	Publisher   publish.Publisher

	appRedirectURL string
	logger         *zap.Logger
}

// NewSocialHandler creates the handler set.
func NewSocialHandler(cfg config.Config, connections connect.ConnectionService, publisher publish.Publisher, logger *zap.Logger) *SocialHandler {
	return &SocialHandler{
		Connections:    connections,
		Publisher:      publisher,
		appRedirectURL: strings.TrimSuffix(cfg.AppBaseURL, "/") + cfg.AppRedirectPath,
		logger:         logger,
	}
}

// Connect starts the authorization flow and redirects the browser to
// the platform's consent screen.
func (h *SocialHandler) Connect(c *gin.Context) {
	authURL, err := h.Connections.InitiateConnect(c.Request.Context(), c.Query("session_id"), c.Param("platform"))
	if err != nil {
		switch {
		case errors.Is(err, social.ErrNotConfigured):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "platform_not_configured"})
		case errors.Is(err, social.ErrUnknownPlatform):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_platform"})
		case errors.Is(err, social.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing_session"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		}
		return
	}
	c.Redirect(http.StatusFound, authURL)
}

// Callback terminates the authorization flow. The browser always gets
// a redirect back to the app; the outcome rides in query parameters.
func (h *SocialHandler) Callback(c *gin.Context) {
	outcome := h.Connections.HandleCallback(c.Request.Context(), c.Param("platform"), connect.CallbackInput{
		Code:          c.Query("code"),
		State:         c.Query("state"),
		PlatformError: c.Query("error"),
	})

	params := url.Values{}
	if outcome.Connected {
		params.Set("social_connected", string(outcome.Platform))
		params.Set("username", outcome.Username)
	} else {
		params.Set("social_error", outcome.Reason)
	}
	c.Redirect(http.StatusFound, h.appRedirectURL+"?"+params.Encode())
}

// Post publishes text through a connected account.
func (h *SocialHandler) Post(c *gin.Context) {
	var req struct {
		SessionID string         `json:"session_id"`
		Platform  string         `json:"platform"`
		Text      string         `json:"text"`
		Extra     map[string]any `json:"extra"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	result, err := h.Publisher.Post(c.Request.Context(), publish.Input{
		SessionID: req.SessionID,
		Platform:  req.Platform,
		Text:      req.Text,
		Extra:     req.Extra,
	})
	if err != nil {
		h.respondPostError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"platform": result.Platform,
		"postId":   result.PostID,
		"postUrl":  result.PostURL,
	})
}

func (h *SocialHandler) respondPostError(c *gin.Context, err error) {
	var postErr *social.PostError
	switch {
	case errors.Is(err, social.ErrInvalidRequest), errors.Is(err, social.ErrUnknownPlatform):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
	case errors.Is(err, social.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "platform_not_configured"})
	case errors.Is(err, social.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_session"})
	case errors.Is(err, social.ErrNotConnected):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not_connected"})
	case errors.Is(err, social.ErrMissingAuthor):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing_author", "needsReconnect": true})
	case errors.As(err, &postErr):
		if postErr.ReconnectRequired {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "platform_rejected_credentials", "needsReconnect": true})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "platform_error"})
	default:
		h.log().Error("publish failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
	}
}

// ListConnections returns all of the session user's connections,
// secrets stripped.
func (h *SocialHandler) ListConnections(c *gin.Context) {
	summaries, err := h.Connections.ListConnections(c.Request.Context(), c.Query("session_id"))
	if err != nil {
		h.respondConnectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connections": summaries})
}

// GetConnection returns one connection summary or 404.
func (h *SocialHandler) GetConnection(c *gin.Context) {
	summary, err := h.Connections.GetConnection(c.Request.Context(), c.Query("session_id"), c.Param("platform"))
	if err != nil {
		h.respondConnectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Disconnect removes the stored connection for one platform.
func (h *SocialHandler) Disconnect(c *gin.Context) {
	if err := h.Connections.Disconnect(c.Request.Context(), c.Query("session_id"), c.Param("platform")); err != nil {
		h.respondConnectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}

func (h *SocialHandler) respondConnectionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, social.ErrUnknownPlatform):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_platform"})
	case errors.Is(err, social.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_session"})
	case errors.Is(err, social.ErrNotConnected):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_connected"})
	default:
		h.log().Error("connection request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
	}
}

func (h *SocialHandler) log() *zap.Logger {
	if h != nil && h.logger != nil {
		return h.logger
	}
	return zap.L()
}
