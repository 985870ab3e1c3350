// Package uid generates and checks DICOM unique identifiers.
package uid

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// Root is the arc under which a UUID may be written as a UID (PS3.5 B.2)
const Root = "2.25"

// MaxLength is the longest UID the UI value representation allows
const MaxLength = 64

var (
	ErrEmpty       = errors.New("uid is empty")
	ErrTooLong     = errors.New("uid exceeds 64 characters")
	ErrCharacter   = errors.New("uid contains a character other than a digit or dot")
	ErrComponent   = errors.New("uid has an empty component")
	ErrLeadingZero = errors.New("uid component has a leading zero")
)

// New returns a fresh UID derived from a random version 4 UUID. The result
// is at most 44 characters.
func New() string {
	return FromUUID(uuid.New())
}

// FromUUID renders a UUID as 2.25.<128 bit integer>
func FromUUID(u uuid.UUID) string {
	n := new(big.Int).SetBytes(u[:])
	return Root + "." + n.String()
}

// Validate checks the UID syntax: digits and dots, no empty components,
// no leading zeros in multi-digit components, at most 64 characters.
func Validate(s string) error {
	if s == "" {
		return ErrEmpty
	}
	if len(s) > MaxLength {
		return fmt.Errorf("%w: %q has %d", ErrTooLong, s, len(s))
	}
	for _, comp := range strings.Split(s, ".") {
		if comp == "" {
			return fmt.Errorf("%w: %q", ErrComponent, s)
		}
		for _, r := range comp {
			if r < '0' || r > '9' {
				return fmt.Errorf("%w: %q", ErrCharacter, s)
			}
		}
		if len(comp) > 1 && comp[0] == '0' {
			return fmt.Errorf("%w: %q", ErrLeadingZero, s)
		}
	}
	return nil
}

// IsValid reports whether Validate accepts s
func IsValid(s string) bool {
	return Validate(s) == nil
}
