package address_test

import (
	"errors"
	"testing"

	"github.com/xraph/vesting/address"
)

func TestValidators(t *testing.T) {
	tests := []struct {
		name   string
		format address.Format
		addr   string
		valid  bool
	}{
		{"hex plain", address.FormatHex, "71C7656EC7ab88b098defB751B7401B5f6d8976F", true},
		{"hex prefixed", address.FormatHex, "0x71C7656EC7ab88b098defB751B7401B5f6d8976F", true},
		{"hex short", address.FormatHex, "71C7656EC7ab88b098", false},
		{"hex non-hex", address.FormatHex, "juno1qyqszqgpqyqszqgpqyqszqgpqyqszqgpjnp7du", false},
		{"ton friendly", address.FormatTON, "EQB3ncyBUTjZUA5EnFKR5_EnOMI9V1tTEAAPaiU71gc4TiUt", true},
		{"ton raw", address.FormatTON, "0:086FA2A675F74347B08DD4606A549B8FDB98829CB282BC1949D3B12FBAED9DCC", true},
		{"ton bad checksum", address.FormatTON, "EQB3ncyBUTjZUA5EnFKR5_EnOMI9V1tTEAAPaiU71gc4TiUu", false},
		{"ton garbage", address.FormatTON, "not-an-address", false},
		{"any juno", address.FormatAny, "juno1qyqszqgpqyqszqgpqyqszqgpqyqszqgpjnp7du", true},
		{"any empty", address.FormatAny, "", false},
		{"any whitespace", address.FormatAny, "juno1 abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := address.ForFormat(tt.format)
			if err != nil {
				t.Fatalf("ForFormat: %v", err)
			}
			err = v.Validate(tt.addr)
			if tt.valid && err != nil {
				t.Errorf("Validate(%q) = %v, want nil", tt.addr, err)
			}
			if !tt.valid && !errors.Is(err, address.ErrMalformed) {
				t.Errorf("Validate(%q) = %v, want ErrMalformed", tt.addr, err)
			}
		})
	}
}

func TestForFormatUnknown(t *testing.T) {
	if _, err := address.ForFormat("bech32"); err == nil {
		t.Error("expected error for unknown format")
	}
}
