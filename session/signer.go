package session

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const minSecretBytes = 32

var (
	ErrBadSignature = errors.New("session cookie signature invalid")
	ErrWeakSecret   = errors.New("session secret must be at least 32 bytes")
)

// Signer signs session tokens for the cookie with HMAC-SHA256, so a forged
// or truncated cookie is rejected before any store lookup.
type Signer struct {
	keys [][]byte
}

// NewSigner signs with secret and additionally accepts signatures made with
// any of previous, to allow secret rotation.
func NewSigner(secret []byte, previous ...[]byte) (*Signer, error) {
	if len(secret) < minSecretBytes {
		return nil, ErrWeakSecret
	}
	keys := make([][]byte, 0, len(previous)+1)
	keys = append(keys, append([]byte(nil), secret...))
	for _, k := range previous {
		if len(k) < minSecretBytes {
			return nil, ErrWeakSecret
		}
		keys = append(keys, append([]byte(nil), k...))
	}
	return &Signer{keys: keys}, nil
}

// Sign returns "<token>.<signature>".
func (s *Signer) Sign(token string) (string, error) {
	sig, err := jwt.SigningMethodHS256.Sign(token, s.keys[0])
	if err != nil {
		return "", err
	}
	return token + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// Unsign verifies a cookie value and returns the token it carries.
func (s *Signer) Unsign(value string) (string, error) {
	idx := strings.LastIndexByte(value, '.')
	if idx <= 0 || idx == len(value)-1 {
		return "", ErrBadSignature
	}
	token, encodedSig := value[:idx], value[idx+1:]

	sig, err := base64.RawURLEncoding.DecodeString(encodedSig)
	if err != nil {
		return "", ErrBadSignature
	}
	for _, key := range s.keys {
		if jwt.SigningMethodHS256.Verify(token, sig, key) == nil {
			if err := ParseToken(token); err != nil {
				return "", err
			}
			return token, nil
		}
	}
	return "", ErrBadSignature
}
