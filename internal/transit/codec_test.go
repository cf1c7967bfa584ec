package transit

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sproutline/social-connector/internal/domain/social"
)

func TestCodec_RoundTrip(t *testing.T) {
	codec := NewCodec("")

	encoded, err := codec.Encode(social.TransitState{
		SessionID:    "sess-123",
		CodeVerifier: "verifier-abc",
	})
	require.NoError(t, err)
	require.NotEmpty(t, encoded)
	// Must survive a query string without escaping.
	require.Equal(t, encoded, url.QueryEscape(encoded))

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, "sess-123", decoded.SessionID)
	require.Equal(t, "verifier-abc", decoded.CodeVerifier)
}

func TestCodec_RoundTrip_NoVerifier(t *testing.T) {
	codec := NewCodec("")

	encoded, err := codec.Encode(social.TransitState{SessionID: "sess-456"})
	require.NoError(t, err)

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, "sess-456", decoded.SessionID)
	require.Empty(t, decoded.CodeVerifier)
}

func TestCodec_Encode_EmptySession(t *testing.T) {
	codec := NewCodec("")
	_, err := codec.Encode(social.TransitState{})
	require.ErrorIs(t, err, social.ErrInvalidRequest)
}

func TestCodec_Decode_Garbage(t *testing.T) {
	codec := NewCodec("")
	for _, input := range []string{"", "   ", "!!!not-base64!!!", "bm90LWpzb24", "e30"} {
		_, err := codec.Decode(input)
		require.ErrorIs(t, err, social.ErrInvalidState, "input %q", input)
	}
}

func TestCodec_Signed_RoundTrip(t *testing.T) {
	codec := NewCodec("signing-secret")

	encoded, err := codec.Encode(social.TransitState{SessionID: "sess-789"})
	require.NoError(t, err)
	require.Equal(t, encoded, url.QueryEscape(encoded))

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, "sess-789", decoded.SessionID)
}

func TestCodec_Signed_RejectsTamperAndUnsigned(t *testing.T) {
	signed := NewCodec("signing-secret")
	unsigned := NewCodec("")

	encoded, err := signed.Encode(social.TransitState{SessionID: "sess-789"})
	require.NoError(t, err)

	// Flip the tag.
	tampered := encoded[:len(encoded)-2] + "xx"
	_, err = signed.Decode(tampered)
	require.ErrorIs(t, err, social.ErrInvalidState)

	// A blob produced without a signature must not verify.
	plain, err := unsigned.Encode(social.TransitState{SessionID: "sess-789"})
	require.NoError(t, err)
	_, err = signed.Decode(plain)
	require.True(t, errors.Is(err, social.ErrInvalidState))
}
