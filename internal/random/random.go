package random

import (
	"crypto/rand"
	"math/big"
	mathrand "math/rand/v2"
)

var allowedLetters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

// Letters returns n cryptographically random ASCII letters, e.g. for conversation identifiers.
func Letters(n uint) (string, error) {
	letters := make([]rune, n)
	upper := big.NewInt(int64(len(allowedLetters)))
	for i := range letters {
		letterIndex, err := rand.Int(rand.Reader, upper)
		if err != nil {
			return "", err //nolint:wrapcheck // crypto/rand failures are fatal anyway
		}
		letters[i] = allowedLetters[letterIndex.Int64()]
	}
	return string(letters), nil
}

// Source picks uniformly distributed indexes. It is satisfied by *math/rand/v2.Rand.
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int {
	return mathrand.IntN(n) //nolint:gosec // wording choice, not security sensitive
}

// NewSource returns a Source backed by the automatically seeded global generator.
func NewSource() Source {
	return globalSource{}
}

// NewSeededSource returns a deterministic Source for tests.
func NewSeededSource(seed uint64) Source {
	return mathrand.New(mathrand.NewPCG(seed, seed)) //nolint:gosec // see globalSource
}
