// Package auth decides whether a caller may run an administrative command.
package auth

import (
	"fmt"

	"github.com/xraph/vesting/config"
)

// Rule selects which identities count as administrators.
type Rule string

const (
	// RulePermissive admits the owner and the treasury.
	RulePermissive Rule = "permissive"
	// RuleOwnerOnly admits the owner alone.
	RuleOwnerOnly Rule = "owner_only"
)

// ParseRule parses a rule name. The empty string selects RulePermissive.
func ParseRule(s string) (Rule, error) {
	switch Rule(s) {
	case "", RulePermissive:
		return RulePermissive, nil
	case RuleOwnerOnly:
		return RuleOwnerOnly, nil
	default:
		return "", fmt.Errorf("auth: unknown rule %q", s)
	}
}

// Guard is a stateless authorization predicate.
type Guard struct {
	Rule Rule
}

// NewGuard returns a Guard for rule.
func NewGuard(rule Rule) Guard {
	return Guard{Rule: rule}
}

// IsAuthorized reports whether caller may run a guarded command.
func (g Guard) IsAuthorized(caller string, cfg *config.Config) bool {
	if caller == "" {
		return false
	}
	if caller == cfg.Owner {
		return true
	}
	return g.Rule != RuleOwnerOnly && caller == cfg.Treasury
}

// IsOwner reports whether caller is the configured owner. Config replacement
// always requires this, whatever the Guard's rule.
func IsOwner(caller string, cfg *config.Config) bool {
	return caller != "" && caller == cfg.Owner
}
