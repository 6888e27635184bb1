package auth

import (
	"crypto/rand"
	"math/big"
	"time"
)

const (
	// CodeMin and CodeMax bound the five digit verification and reset codes.
	CodeMin = 10000
	CodeMax = 99999

	// DefaultCodeWindowMinutes is how long any issued code stays valid.
	DefaultCodeWindowMinutes = 5
)

// CodeGenerator produces short-lived numeric codes and answers expiry questions
// against its clock.
type CodeGenerator struct {
	now func() time.Time
}

// NewCodeGenerator creates a generator. A nil clock means time.Now.
func NewCodeGenerator(now func() time.Time) *CodeGenerator {
	if now == nil {
		now = time.Now
	}
	return &CodeGenerator{now: now}
}

// Generate returns a uniformly random integer in [CodeMin, CodeMax].
func (g *CodeGenerator) Generate() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(CodeMax-CodeMin+1))
	if err != nil {
		return 0, err
	}
	return CodeMin + int(n.Int64()), nil
}

// ExpiryIn returns the absolute time minutes from now.
func (g *CodeGenerator) ExpiryIn(minutes int) time.Time {
	return g.now().Add(time.Duration(minutes) * time.Minute)
}

// HasExpired is true iff ts is strictly in the past.
func (g *CodeGenerator) HasExpired(ts time.Time) bool {
	return ts.Before(g.now())
}

// Now exposes the generator clock so callers compare against the same time source.
func (g *CodeGenerator) Now() time.Time {
	return g.now()
}
