package connect

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sproutline/social-connector/internal/adapter/platform"
	"github.com/sproutline/social-connector/internal/domain/social"
	"github.com/sproutline/social-connector/internal/pkce"
	"github.com/sproutline/social-connector/internal/repository"
	"github.com/sproutline/social-connector/internal/transit"
)

// ConnectionService orchestrates the authorization flow and account
// management for social platform connections.
type ConnectionService interface {
	InitiateConnect(ctx context.Context, sessionID, platformName string) (string, error)
	HandleCallback(ctx context.Context, platformName string, in CallbackInput) CallbackOutcome
	Disconnect(ctx context.Context, sessionID, platformName string) error
	ListConnections(ctx context.Context, sessionID string) ([]social.ConnectionSummary, error)
	GetConnection(ctx context.Context, sessionID, platformName string) (*social.ConnectionSummary, error)
}

// CallbackInput captures the query parameters a platform sends back on
// the redirect.
type CallbackInput struct {
	Code          string
	State         string
	PlatformError string
}

// CallbackOutcome is the terminal result of a callback. Callbacks never
// surface transport errors to the browser; every path collapses into an
// outcome the handler turns into a redirect.
type CallbackOutcome struct {
	Connected bool
	Platform  social.Platform
	Username  string
	Reason    string
}

// Failure reasons carried back to the app on the redirect.
const (
	ReasonMissingParams  = "missing_params"
	ReasonExchangeFailed = "token_exchange_failed"
	ReasonCallbackFailed = "callback_failed"
)

type connectionService struct {
	registry *platform.Registry
	codec    *transit.Codec
	repo     repository.ConnectionRepository
	sessions repository.SessionResolver
	logger   *zap.Logger
}

// NewConnectionService wires the connection service implementation.
func NewConnectionService(
	registry *platform.Registry,
	codec *transit.Codec,
	repo repository.ConnectionRepository,
	sessions repository.SessionResolver,
	logger *zap.Logger,
) ConnectionService {
	return &connectionService{
		registry: registry,
		codec:    codec,
		repo:     repo,
		sessions: sessions,
		logger:   logger,
	}
}

func (s *connectionService) InitiateConnect(ctx context.Context, sessionID, platformName string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", social.ErrInvalidRequest
	}

	p, err := social.ParsePlatform(platformName)
	if err != nil {
		return "", err
	}
	adapter, err := s.registry.Lookup(p)
	if err != nil {
		return "", err
	}

	state := social.TransitState{SessionID: sessionID}
	challenge := ""
	if adapter.RequiresPKCE() {
		pair, err := pkce.Generate()
		if err != nil {
			return "", err
		}
		state.CodeVerifier = pair.Verifier
		challenge = pair.Challenge
	}

	encoded, err := s.codec.Encode(state)
	if err != nil {
		return "", err
	}

	authURL, err := adapter.AuthorizationURL(encoded, challenge)
	if err != nil {
		return "", err
	}

	s.log().Info("authorization initiated",
		zap.String("platform", string(p)),
		zap.Bool("pkce", adapter.RequiresPKCE()))
	return authURL, nil
}

func (s *connectionService) HandleCallback(ctx context.Context, platformName string, in CallbackInput) CallbackOutcome {
	p, err := social.ParsePlatform(platformName)
	if err != nil {
		return failure(social.Platform(platformName), ReasonCallbackFailed)
	}
	adapter, err := s.registry.Lookup(p)
	if err != nil {
		return failure(p, ReasonCallbackFailed)
	}

	// The user declined on the platform's consent screen. Nothing to
	// exchange; report the platform's own error value.
	if in.PlatformError != "" {
		s.log().Info("authorization denied",
			zap.String("platform", string(p)),
			zap.String("error", in.PlatformError))
		return failure(p, in.PlatformError)
	}

	if strings.TrimSpace(in.Code) == "" || strings.TrimSpace(in.State) == "" {
		return failure(p, ReasonMissingParams)
	}

	state, err := s.codec.Decode(in.State)
	if err != nil {
		s.log().Warn("undecodable callback state", zap.String("platform", string(p)), zap.Error(err))
		return failure(p, ReasonCallbackFailed)
	}

	tokens, err := adapter.ExchangeCode(ctx, in.Code, state.CodeVerifier)
	if err != nil {
		s.log().Warn("token exchange failed", zap.String("platform", string(p)), zap.Error(err))
		return failure(p, ReasonExchangeFailed)
	}

	userID, err := s.sessions.Resolve(ctx, state.SessionID)
	if err != nil {
		s.log().Warn("session resolution failed", zap.String("platform", string(p)), zap.Error(err))
		return failure(p, ReasonCallbackFailed)
	}

	// Profile enrichment is best effort. A connection without a
	// platform username is still usable; LinkedIn posting will surface
	// the missing author on its own.
	var platformUserID, platformUsername string
	if profile, err := adapter.FetchProfile(ctx, tokens.AccessToken); err != nil {
		s.log().Warn("profile fetch failed", zap.String("platform", string(p)), zap.Error(err))
	} else {
		platformUserID = profile.ID
		platformUsername = profile.Username
	}

	conn := social.Connection{
		UserID:           userID,
		Platform:         p,
		AccessToken:      tokens.AccessToken,
		RefreshToken:     tokens.RefreshToken,
		ExpiresAt:        tokens.ExpiresAt,
		PlatformUserID:   platformUserID,
		PlatformUsername: platformUsername,
		ConnectedAt:      time.Now().UTC(),
	}
	if _, err := s.repo.Upsert(ctx, conn); err != nil {
		s.log().Error("persist connection failed", zap.String("platform", string(p)), zap.Error(err))
		return failure(p, ReasonCallbackFailed)
	}

	s.log().Info("platform connected",
		zap.String("platform", string(p)),
		zap.String("platform_user_id", platformUserID))
	return CallbackOutcome{Connected: true, Platform: p, Username: platformUsername}
}

func (s *connectionService) Disconnect(ctx context.Context, sessionID, platformName string) error {
	userID, p, err := s.resolve(ctx, sessionID, platformName)
	if err != nil {
		return err
	}
	return s.repo.Remove(ctx, userID, p)
}

func (s *connectionService) ListConnections(ctx context.Context, sessionID string) ([]social.ConnectionSummary, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, social.ErrUnauthorized
	}
	userID, err := s.sessions.Resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	conns, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	summaries := make([]social.ConnectionSummary, 0, len(conns))
	for _, conn := range conns {
		summaries = append(summaries, conn.Summary())
	}
	return summaries, nil
}

func (s *connectionService) GetConnection(ctx context.Context, sessionID, platformName string) (*social.ConnectionSummary, error) {
	userID, p, err := s.resolve(ctx, sessionID, platformName)
	if err != nil {
		return nil, err
	}
	conn, err := s.repo.Get(ctx, userID, p)
	if err != nil {
		return nil, err
	}
	summary := conn.Summary()
	return &summary, nil
}

func (s *connectionService) resolve(ctx context.Context, sessionID, platformName string) (string, social.Platform, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", "", social.ErrUnauthorized
	}
	p, err := social.ParsePlatform(platformName)
	if err != nil {
		return "", "", err
	}
	userID, err := s.sessions.Resolve(ctx, sessionID)
	if err != nil {
		return "", "", err
	}
	return userID, p, nil
}

func (s *connectionService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}

func failure(p social.Platform, reason string) CallbackOutcome {
	return CallbackOutcome{Platform: p, Reason: reason}
}
