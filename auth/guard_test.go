package auth_test

import (
	"testing"

	"github.com/xraph/vesting/auth"
	"github.com/xraph/vesting/config"
)

func TestGuard(t *testing.T) {
	cfg := &config.Config{Owner: "owner", Treasury: "treasury"}

	tests := []struct {
		name   string
		rule   auth.Rule
		caller string
		want   bool
	}{
		{"permissive owner", auth.RulePermissive, "owner", true},
		{"permissive treasury", auth.RulePermissive, "treasury", true},
		{"permissive stranger", auth.RulePermissive, "mallory", false},
		{"owner only owner", auth.RuleOwnerOnly, "owner", true},
		{"owner only treasury", auth.RuleOwnerOnly, "treasury", false},
		{"empty caller", auth.RulePermissive, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := auth.NewGuard(tt.rule).IsAuthorized(tt.caller, cfg); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsOwner(t *testing.T) {
	cfg := &config.Config{Owner: "owner", Treasury: "treasury"}
	if !auth.IsOwner("owner", cfg) {
		t.Error("owner should be owner")
	}
	if auth.IsOwner("treasury", cfg) {
		t.Error("treasury should not be owner")
	}
	if auth.IsOwner("", &config.Config{}) {
		t.Error("empty caller should never match an empty owner")
	}
}

func TestParseRule(t *testing.T) {
	tests := []struct {
		in      string
		want    auth.Rule
		wantErr bool
	}{
		{"", auth.RulePermissive, false},
		{"permissive", auth.RulePermissive, false},
		{"owner_only", auth.RuleOwnerOnly, false},
		{"treasury_only", "", true},
	}
	for _, tt := range tests {
		got, err := auth.ParseRule(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRule(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseRule(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
