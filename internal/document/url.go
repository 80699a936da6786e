package document

import (
	"crypto/rand"
	"encoding/hex"
)

const urlTokenBytes = 32

// URLProvider issues opaque document URL tokens.
type URLProvider interface {
	NewURL() (string, error)
}

type randomURLProvider struct{}

// NewRandomURLProvider constructs a URLProvider backed by crypto/rand,
// issuing 256-bit hex-encoded tokens.
func NewRandomURLProvider() URLProvider {
	return &randomURLProvider{}
}

func (p *randomURLProvider) NewURL() (string, error) {
	token := make([]byte, urlTokenBytes)
	if _, err := rand.Read(token); err != nil {
		return "", err
	}
	return hex.EncodeToString(token), nil
}
