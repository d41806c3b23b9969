package wallet

import (
	"bytes"
	"errors"
	"testing"

	"github.com/mr-tron/base58"
)

func TestValidate_SystemAddress(t *testing.T) {
	// 32 zero bytes: a canonical curve point, commonly seen as the
	// system program address.
	addr := base58.Encode(bytes.Repeat([]byte{0}, 32))

	if err := Validate(addr); err != nil {
		t.Errorf("expected valid address, got %v", err)
	}
	if !IsValid(addr) {
		t.Error("IsValid must agree with Validate")
	}
}

func TestValidate_BadEncoding(t *testing.T) {
	if err := Validate("not-base58-0OIl"); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress, got %v", err)
	}
	if err := Validate(""); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress for empty string, got %v", err)
	}
}

func TestValidate_WrongLength(t *testing.T) {
	short := base58.Encode(bytes.Repeat([]byte{1}, 16))
	if err := Validate(short); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress for 16 bytes, got %v", err)
	}

	long := base58.Encode(bytes.Repeat([]byte{1}, 64))
	if err := Validate(long); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress for 64 bytes, got %v", err)
	}
}

func TestValidate_NonCanonicalPoint(t *testing.T) {
	// All-ones encodes a y coordinate above the field prime, which the
	// curve library rejects.
	addr := base58.Encode(bytes.Repeat([]byte{0xff}, 32))

	if err := Validate(addr); !errors.Is(err, ErrNotOnCurve) {
		t.Errorf("expected ErrNotOnCurve, got %v", err)
	}
}
