// Package referral generates and validates referral codes.
//
// A code is 6 characters drawn from a 32-character alphabet of upper-case
// letters and digits with the look-alikes I, O, 0 and 1 removed. Uniqueness
// is a storage concern: callers insert the code and retry on collision.
package referral

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	mathrand "math/rand/v2"
	"strings"
)

const (
	// Alphabet is the set of characters a code may contain.
	Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// CodeLength is the exact length of every code.
	CodeLength = 6
)

// ErrStrongRandomUnavailable is returned by a strict Generator when the
// cryptographic source fails.
var ErrStrongRandomUnavailable = errors.New("referral: cryptographic random source unavailable")

// Assurance describes which random source produced a code.
type Assurance int

const (
	// AssuranceNone accompanies an error: no code was produced.
	AssuranceNone Assurance = iota

	// AssuranceStrong means the code came from crypto/rand.
	AssuranceStrong

	// AssuranceDegraded means the code came from math/rand. Such codes are
	// guessable by anyone who can observe or reconstruct the PRNG state and
	// must not back anything of monetary value.
	AssuranceDegraded
)

func (a Assurance) String() string {
	switch a {
	case AssuranceStrong:
		return "strong"
	case AssuranceDegraded:
		return "degraded"
	}
	return "none"
}

// alphabetIndex maps an upper-case byte to true when it is in Alphabet.
var alphabetIndex = func() [256]bool {
	var idx [256]bool
	for i := 0; i < len(Alphabet); i++ {
		idx[Alphabet[i]] = true
	}
	return idx
}()

// Generator produces referral codes.
type Generator struct {
	// Strong is the cryptographic source. Defaults to crypto/rand.Reader.
	Strong io.Reader

	// Weak is the non-cryptographic fallback. Defaults to a math/rand/v2
	// generator seeded by the runtime.
	Weak func(n int) int

	// RequireStrong turns a strong-source failure into an error instead of
	// falling back to Weak.
	RequireStrong bool
}

// NewGenerator creates a Generator backed by crypto/rand.
func NewGenerator(requireStrong bool) *Generator {
	return &Generator{RequireStrong: requireStrong}
}

// Generate returns a new code and the assurance of the source that made it.
func (g *Generator) Generate() (string, Assurance, error) {
	strong := g.Strong
	if strong == nil {
		strong = rand.Reader
	}

	code, err := sampleStrong(strong)
	if err == nil {
		return code, AssuranceStrong, nil
	}
	if g.RequireStrong {
		return "", AssuranceNone, fmt.Errorf("%w: %v", ErrStrongRandomUnavailable, err)
	}

	weak := g.Weak
	if weak == nil {
		weak = mathrand.IntN
	}
	buf := make([]byte, CodeLength)
	for i := range buf {
		buf[i] = Alphabet[weak(len(Alphabet))]
	}
	return string(buf), AssuranceDegraded, nil
}

// Generate returns a code from crypto/rand, falling back to math/rand when
// the system source is unavailable. The fallback is NOT cryptographically
// secure; use a strict Generator where codes carry value.
func Generate() string {
	code, _, _ := (&Generator{}).Generate()
	return code
}

// sampleStrong draws CodeLength uniform characters using rejection sampling
// so no character is favoured by modulo bias.
func sampleStrong(r io.Reader) (string, error) {
	const limit = 256 - 256%len(Alphabet)

	out := make([]byte, 0, CodeLength)
	buf := make([]byte, CodeLength*2)
	for len(out) < CodeLength {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, Alphabet[int(b)%len(Alphabet)])
			if len(out) == CodeLength {
				break
			}
		}
	}
	return string(out), nil
}

// IsValidFormat reports whether code has the right length and only uses
// alphabet characters, ignoring case. It does not check existence or expiry.
func IsValidFormat(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if !alphabetIndex[c] {
			return false
		}
	}
	return true
}

// Normalize trims surrounding whitespace and upper-cases user input.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
