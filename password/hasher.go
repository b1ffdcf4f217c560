package password

import (
	"errors"
	"strings"
)

const (
	AlgorithmArgon2id = "argon2id"
	AlgorithmBcrypt   = "bcrypt"
)

var (
	ErrEmptySecret          = errors.New("secret must not be empty")
	ErrSecretTooLong        = errors.New("secret exceeds maximum length")
	ErrMalformedHash        = errors.New("malformed password hash")
	ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")
)

// Hasher is a one-way salted secret hasher.
type Hasher interface {
	Algorithm() string
	Hash(secret string) (string, error)
	Verify(secret, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
}

// Suite hashes with one primary algorithm and verifies hashes from any
// algorithm it knows about, so stored hashes survive an algorithm switch.
type Suite struct {
	primary Hasher
	byAlg   map[string]Hasher
}

// NewSuite builds a Suite. primary is also registered for verification.
func NewSuite(primary Hasher, others ...Hasher) *Suite {
	s := &Suite{
		primary: primary,
		byAlg:   make(map[string]Hasher, len(others)+1),
	}
	for _, h := range others {
		if h != nil {
			s.byAlg[h.Algorithm()] = h
		}
	}
	s.byAlg[primary.Algorithm()] = primary
	return s
}

func (s *Suite) Algorithm() string {
	return s.primary.Algorithm()
}

func (s *Suite) Hash(secret string) (string, error) {
	return s.primary.Hash(secret)
}

func (s *Suite) Verify(secret, encodedHash string) (bool, error) {
	h, err := s.lookup(encodedHash)
	if err != nil {
		return false, err
	}
	return h.Verify(secret, encodedHash)
}

// NeedsUpgrade is true for hashes from a non-primary algorithm and for
// hashes made with weaker parameters than the primary's.
func (s *Suite) NeedsUpgrade(encodedHash string) (bool, error) {
	alg := AlgorithmOf(encodedHash)
	if alg == "" {
		return false, ErrUnsupportedAlgorithm
	}
	if alg != s.primary.Algorithm() {
		return true, nil
	}
	return s.primary.NeedsUpgrade(encodedHash)
}

func (s *Suite) lookup(encodedHash string) (Hasher, error) {
	h, ok := s.byAlg[AlgorithmOf(encodedHash)]
	if !ok {
		return nil, ErrUnsupportedAlgorithm
	}
	return h, nil
}

// AlgorithmOf identifies the algorithm of an encoded hash, or "" when it is
// not recognised.
func AlgorithmOf(encodedHash string) string {
	switch {
	case strings.HasPrefix(encodedHash, argon2Prefix):
		return AlgorithmArgon2id
	case isBcryptHash(encodedHash):
		return AlgorithmBcrypt
	default:
		return ""
	}
}
