// Package identity extracts a sender identity (phone number or email
// address) from an opaque channel session key.
//
// Extraction is a heuristic, not validation: any matching token is accepted.
package identity

import (
	"regexp"
	"strings"
)

// Kind is the type of an identity.
type Kind string

const (
	Phone Kind = "phone"
	Email Kind = "email"
)

// Identity is a normalized sender identity. Two identities are equal iff
// Kind and Value match exactly.
type Identity struct {
	Kind  Kind   `json:"type"`
	Value string `json:"value"`
}

// Key returns "kind:value", used for per-identity cache slots.
func (i Identity) Key() string {
	return string(i.Kind) + ":" + i.Value
}

// String implements fmt.Stringer.
func (i Identity) String() string {
	return i.Key()
}

var (
	phonePattern = regexp.MustCompile(`\+?\d{10,15}`)
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

// Extract finds the identity embedded in a session key such as
// "agent:default:+15551234567". A phone match takes precedence over an
// email match. Returns false when the key is empty or contains neither.
func Extract(sessionKey string) (Identity, bool) {
	if strings.TrimSpace(sessionKey) == "" {
		return Identity{}, false
	}

	if m := phonePattern.FindString(sessionKey); m != "" {
		return Identity{Kind: Phone, Value: NormalizePhone(m)}, true
	}

	if m := emailPattern.FindString(sessionKey); m != "" {
		return Identity{Kind: Email, Value: strings.ToLower(m)}, true
	}

	return Identity{}, false
}

// NormalizePhone converts a digit run to an E.164-like form. Bare 10-digit
// numbers are assumed to be US numbers (+1 prefix); bare 11-digit numbers
// starting with 1 get a leading +.
func NormalizePhone(raw string) string {
	if strings.HasPrefix(raw, "+") {
		return raw
	}
	switch {
	case len(raw) == 10:
		return "+1" + raw
	case len(raw) == 11 && raw[0] == '1':
		return "+" + raw
	default:
		return "+" + raw
	}
}
