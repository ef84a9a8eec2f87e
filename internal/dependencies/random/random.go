package random

import (
	"crypto/rand"
	"math/big"
)

// Random provides random number generation that can be mocked for testing
type Random interface {
	// Int64n returns a random int64 in [0, n)
	Int64n(n int64) (int64, error)
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Int64n returns a cryptographically random int64 in [0, n)
func (r *CryptoRandom) Int64n(n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	result, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0, err
	}
	return result.Int64(), nil
}
