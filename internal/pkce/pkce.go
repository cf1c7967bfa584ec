// Package pkce implements the S256 Proof Key for Code Exchange pair
// used by platforms that bind authorization codes to the client.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const verifierBytes = 32

// Pair holds a PKCE verifier and its derived S256 challenge. The
// verifier is disclosed only inside transit state; the challenge only
// in the authorization URL.
type Pair struct {
	Verifier  string
	Challenge string
}

// Method is the challenge transform advertised to the platform.
const Method = "S256"

// Generate produces a fresh pair from crypto/rand. Callers invoke it
// exactly once per connect-initiation; regenerating mid-flow makes the
// platform reject the exchange.
func Generate() (Pair, error) {
	buf := make([]byte, verifierBytes)
	if _, err := rand.Read(buf); err != nil {
		return Pair{}, fmt.Errorf("generate pkce verifier: %w", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(buf)
	return Pair{Verifier: verifier, Challenge: Challenge(verifier)}, nil
}

// Challenge returns the S256 challenge for a verifier.
func Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
