package unifi

import "fmt"

// redacted is what a Secret renders as anywhere it could leak.
const redacted = "[REDACTED]"

// Secret holds sensitive material (password, session cookie, CSRF token)
// and renders as a fixed placeholder in every textual representation:
// fmt verbs, %#v, JSON marshaling, and struct dumps all produce [REDACTED].
//
// The wrapped value is only reachable through Reveal, which keeps accidental
// disclosure (logging a config struct, formatting an error) from including
// credential material.
type Secret struct {
	value string
}

// NewSecret wraps a sensitive value.
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// Reveal returns the wrapped value.
func (s Secret) Reveal() string {
	return s.value
}

// IsZero reports whether no value is held.
func (s Secret) IsZero() bool {
	return s.value == ""
}

// String implements fmt.Stringer.
func (s Secret) String() string {
	return redacted
}

// GoString implements fmt.GoStringer, covering the %#v verb.
func (s Secret) GoString() string {
	return "unifi.Secret{" + redacted + "}"
}

// Format implements fmt.Formatter so that every verb, including %v on
// structs containing a Secret, renders the placeholder.
func (s Secret) Format(f fmt.State, verb rune) {
	switch verb {
	case 'v':
		if f.Flag('#') {
			fmt.Fprint(f, s.GoString())
			return
		}
		fmt.Fprint(f, redacted)
	default:
		fmt.Fprint(f, redacted)
	}
}

// MarshalJSON implements json.Marshaler.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}
