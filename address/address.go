// Package address validates account identifiers supplied to administrative
// commands.
package address

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	tonaddress "github.com/xssnick/tonutils-go/address"
)

// ErrMalformed is wrapped by every validation failure.
var ErrMalformed = errors.New("address: malformed")

// Validator checks that a string is a well-formed account identifier.
type Validator interface {
	Validate(addr string) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(addr string) error

// Validate implements Validator.
func (f ValidatorFunc) Validate(addr string) error { return f(addr) }

// Format names a built-in validator.
type Format string

const (
	FormatHex Format = "hex"
	FormatTON Format = "ton"
	FormatAny Format = "any"
)

// ForFormat returns the built-in validator for f.
func ForFormat(f Format) (Validator, error) {
	switch f {
	case FormatHex, "":
		return Hex{}, nil
	case FormatTON:
		return TON{}, nil
	case FormatAny:
		return Any{}, nil
	default:
		return nil, fmt.Errorf("address: unknown format %q", f)
	}
}

var hexAddress = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{40}$`)

// Hex accepts 20-byte hex addresses with an optional 0x prefix.
type Hex struct{}

func (Hex) Validate(addr string) error {
	if !hexAddress.MatchString(addr) {
		return fmt.Errorf("%w: %q is not a 40-digit hex address", ErrMalformed, addr)
	}
	return nil
}

// TON accepts user-friendly (base64) and raw ("0:abcd...") TON addresses.
type TON struct{}

func (TON) Validate(addr string) error {
	if _, err := tonaddress.ParseAddr(addr); err == nil {
		return nil
	}
	if _, err := tonaddress.ParseRawAddr(addr); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrMalformed, addr, err)
	}
	return nil
}

// Any accepts every non-empty identifier without whitespace.
type Any struct{}

func (Any) Validate(addr string) error {
	if addr == "" || strings.ContainsAny(addr, " \t\r\n") {
		return fmt.Errorf("%w: %q", ErrMalformed, addr)
	}
	return nil
}
