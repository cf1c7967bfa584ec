package social

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownPlatform indicates an unsupported platform selector.
	ErrUnknownPlatform = errors.New("social: unknown platform")
	// ErrNotConfigured signals missing client credentials for a platform.
	ErrNotConfigured = errors.New("social: platform not configured")
	// ErrInvalidRequest indicates caller input validation errors.
	ErrInvalidRequest = errors.New("social: invalid request")
	// ErrInvalidState indicates the transit state blob could not be decoded.
	ErrInvalidState = errors.New("social: invalid state")
	// ErrExchangeFailed indicates the platform token endpoint rejected the code.
	ErrExchangeFailed = errors.New("social: token exchange failed")
	// ErrNotConnected signals no stored credential for the (user, platform) pair.
	ErrNotConnected = errors.New("social: not connected")
	// ErrUnauthorized indicates the session identifier did not resolve to a user.
	ErrUnauthorized = errors.New("social: unauthorized")
	// ErrMissingAuthor indicates posting requires a platform user ID that is absent.
	ErrMissingAuthor = errors.New("social: platform user id required for posting")
)

// PostError carries a platform's rejection of a post request.
// ReconnectRequired marks unauthorized/expired credentials, which a
// caller can only recover from by re-running the connect flow.
type PostError struct {
	Platform          Platform
	StatusCode        int
	Body              string
	ReconnectRequired bool
}

func (e *PostError) Error() string {
	if e.ReconnectRequired {
		return fmt.Sprintf("social: %s rejected post (status %d): credentials expired", e.Platform, e.StatusCode)
	}
	return fmt.Sprintf("social: %s rejected post (status %d)", e.Platform, e.StatusCode)
}

// ReconnectRequired reports whether err is a PostError signaling expired
// credentials.
func ReconnectRequired(err error) bool {
	var pe *PostError
	return errors.As(err, &pe) && pe.ReconnectRequired
}
