package auth

import (
	"net/url"
	"strings"

	"github.com/Skotchmaster/storefront/internal/service"
)

type Rule int

const (
	RuleAuthenticated Rule = iota
	RuleAdmin
)

type Outcome int

const (
	Allow Outcome = iota
	// DenyAnonymous sends the visitor to the login page.
	DenyAnonymous
	// DenyForbidden sends an authenticated non-admin back to the home page.
	DenyForbidden
)

type Decision struct {
	Outcome Outcome
	Reason  string
}

func (d Decision) Allowed() bool { return d.Outcome == Allow }

// Check decides whether identity satisfies rule. It has no side effects.
func Check(id *service.Identity, rule Rule) Decision {
	switch rule {
	case RuleAuthenticated:
		if id == nil {
			return Decision{Outcome: DenyAnonymous, Reason: "login required"}
		}
	case RuleAdmin:
		if id == nil || !id.IsAdmin {
			return Decision{Outcome: DenyForbidden, Reason: "admin access required"}
		}
	default:
		return Decision{Outcome: DenyForbidden, Reason: "unknown rule"}
	}
	return Decision{Outcome: Allow}
}

// SafeNext returns next when it is a path on this site, otherwise fallback.
// Absolute URLs, scheme-relative "//host" and backslash tricks are refused.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}

// LoginURL builds the login redirect that returns to requestURI afterwards.
func LoginURL(requestURI string) string {
	return "/login?next=" + url.QueryEscape(requestURI)
}
