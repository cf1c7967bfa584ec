// Package transit encodes the OAuth state parameter that carries session
// context across the browser redirect. The value has no server-side
// storage: it is issued at connect-initiation and consumed at callback.
package transit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sproutline/social-connector/internal/domain/social"
)

// Codec round-trips TransitState through a URL-safe opaque string.
// With a signing key it appends an HMAC-SHA256 tag and rejects values
// that fail verification; without one the blob is unsigned.
type Codec struct {
	signingKey []byte
}

// NewCodec constructs a codec. An empty key disables signing.
func NewCodec(signingKey string) *Codec {
	c := &Codec{}
	if strings.TrimSpace(signingKey) != "" {
		c.signingKey = []byte(signingKey)
	}
	return c
}

// Encode serializes the state into a base64url string usable unescaped
// inside a query parameter.
func (c *Codec) Encode(state social.TransitState) (string, error) {
	if strings.TrimSpace(state.SessionID) == "" {
		return "", fmt.Errorf("encode state: %w", social.ErrInvalidRequest)
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)
	if c.signingKey == nil {
		return payload, nil
	}
	return payload + "." + c.sign(payload), nil
}

// Decode reverses Encode. Any malformed, unverifiable, or incomplete
// value fails with social.ErrInvalidState; callers treat that as
// terminal for the request.
func (c *Codec) Decode(value string) (*social.TransitState, error) {
	payload := strings.TrimSpace(value)
	if payload == "" {
		return nil, fmt.Errorf("empty state: %w", social.ErrInvalidState)
	}

	if c.signingKey != nil {
		idx := strings.LastIndex(payload, ".")
		if idx < 0 {
			return nil, fmt.Errorf("unsigned state: %w", social.ErrInvalidState)
		}
		body, tag := payload[:idx], payload[idx+1:]
		if !hmac.Equal([]byte(c.sign(body)), []byte(tag)) {
			return nil, fmt.Errorf("state signature mismatch: %w", social.ErrInvalidState)
		}
		payload = body
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode state: %w", social.ErrInvalidState)
	}
	var state social.TransitState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", social.ErrInvalidState)
	}
	if strings.TrimSpace(state.SessionID) == "" {
		return nil, fmt.Errorf("state missing session: %w", social.ErrInvalidState)
	}
	return &state, nil
}

func (c *Codec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.signingKey)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
