package publish

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sproutline/social-connector/internal/adapter/platform"
	"github.com/sproutline/social-connector/internal/domain/social"
	"github.com/sproutline/social-connector/internal/repository"
)

// Publisher republishes content through a connected platform account.
type Publisher interface {
	Post(ctx context.Context, in Input) (*social.PostResult, error)
}

// Input is a single publish request. Extra carries platform-specific
// options; current adapters accept none and ignore it.
type Input struct {
	SessionID string
	Platform  string
	Text      string
	Extra     map[string]any
}

type publisher struct {
	registry *platform.Registry
	repo     repository.ConnectionRepository
	sessions repository.SessionResolver
	logger   *zap.Logger
}

// NewPublisher wires the publisher implementation.
func NewPublisher(
	registry *platform.Registry,
	repo repository.ConnectionRepository,
	sessions repository.SessionResolver,
	logger *zap.Logger,
) Publisher {
	return &publisher{
		registry: registry,
		repo:     repo,
		sessions: sessions,
		logger:   logger,
	}
}

func (p *publisher) Post(ctx context.Context, in Input) (*social.PostResult, error) {
	if strings.TrimSpace(in.SessionID) == "" {
		return nil, social.ErrUnauthorized
	}
	if strings.TrimSpace(in.Text) == "" {
		return nil, social.ErrInvalidRequest
	}

	target, err := social.ParsePlatform(in.Platform)
	if err != nil {
		return nil, err
	}
	adapter, err := p.registry.Lookup(target)
	if err != nil {
		return nil, err
	}

	userID, err := p.sessions.Resolve(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	// No network call without a stored connection.
	conn, err := p.repo.Get(ctx, userID, target)
	if err != nil {
		return nil, err
	}

	result, err := adapter.Post(ctx, conn, in.Text)
	if err != nil {
		// Credential failures are reported but the stored record is
		// left alone; the user reconnects through the normal flow.
		if social.ReconnectRequired(err) {
			p.log().Warn("platform rejected stored credentials",
				zap.String("platform", string(target)),
				zap.String("user_id", userID))
		} else {
			p.log().Error("publish failed",
				zap.String("platform", string(target)),
				zap.Error(err))
		}
		return nil, err
	}

	p.log().Info("published",
		zap.String("platform", string(target)),
		zap.String("post_id", result.PostID))
	return result, nil
}

func (p *publisher) log() *zap.Logger {
	if p != nil && p.logger != nil {
		return p.logger
	}
	return zap.L()
}
