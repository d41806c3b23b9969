// Package wallet validates competitor wallet addresses before any state
// is created for them.
package wallet

import (
	"errors"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

var (
	// ErrInvalidAddress is returned for addresses that do not decode to
	// a 32-byte public key.
	ErrInvalidAddress = errors.New("invalid wallet address")

	// ErrNotOnCurve is returned for 32-byte keys that are not valid
	// ed25519 points. Program-derived accounts fall here and cannot
	// compete directly.
	ErrNotOnCurve = errors.New("wallet address not on ed25519 curve")
)

// Validate checks that addr is a base58-encoded 32-byte ed25519 public
// key.
func Validate(addr string) error {
	decoded, err := base58.Decode(addr)
	if err != nil || len(decoded) != 32 {
		return ErrInvalidAddress
	}
	if !isOnCurve(decoded) {
		return ErrNotOnCurve
	}
	return nil
}

// IsValid reports whether addr passes Validate.
func IsValid(addr string) bool {
	return Validate(addr) == nil
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
