// Package joincode generates and validates the 5-digit codes used to join a group.
package joincode

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
)

const (
	// Length is the number of digits in a join code.
	Length = 5

	minCode = 10000
	maxCode = 99999

	// DefaultMaxAttempts bounds EnsureUnique when Generator.MaxAttempts is unset.
	DefaultMaxAttempts = 20
)

var (
	// ErrExhausted is returned when no unused code was found within MaxAttempts.
	ErrExhausted = errors.New("could not find an unused join code")
	// ErrMalformed is returned by Validate for anything but exactly 5 digits.
	ErrMalformed = errors.New("join code must be exactly 5 digits")
)

// Generate returns a code drawn uniformly from [10000, 99999].
// A nil r uses the global source.
func Generate(r *rand.Rand) string {
	var n int
	if r == nil {
		n = minCode + rand.IntN(maxCode-minCode+1)
	} else {
		n = minCode + r.IntN(maxCode-minCode+1)
	}
	return fmt.Sprintf("%05d", n)
}

// Validate trims code and checks it is exactly 5 ASCII digits.
func Validate(code string) error {
	code = strings.TrimSpace(code)
	if len(code) != Length {
		return ErrMalformed
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return ErrMalformed
		}
	}
	return nil
}

// LookupFunc reports whether a join code is already used by an existing group.
type LookupFunc func(ctx context.Context, code string) (bool, error)

// Generator draws candidate codes until one is unused.
type Generator struct {
	Lookup      LookupFunc
	MaxAttempts int
	Rand        *rand.Rand
}

// EnsureUnique returns an unused code and the number of candidates tried.
//
// The check is not atomic with group creation; stores enforce uniqueness
// with an index and callers retry on a clash.
func (g Generator) EnsureUnique(ctx context.Context) (string, int, error) {
	limit := g.MaxAttempts
	if limit <= 0 {
		limit = DefaultMaxAttempts
	}

	for attempt := 1; attempt <= limit; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", attempt - 1, err
		}
		code := Generate(g.Rand)
		taken, err := g.Lookup(ctx, code)
		if err != nil {
			return "", attempt, fmt.Errorf("failed to look up join code: %w", err)
		}
		if !taken {
			return code, attempt, nil
		}
	}
	return "", limit, ErrExhausted
}
