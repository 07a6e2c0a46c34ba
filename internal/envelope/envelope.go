// Package envelope decodes the classic controller response envelope.
//
// Every Network application endpoint wraps its payload as
//
//	{"meta": {"rc": "ok" | "error", "msg": "..."}, "data": [...]}
//
// This package is the single place that understands that shape; callers get
// back the raw data payload and the meta verdict.
package envelope

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// LoginRequired is the meta.msg the controller uses to report an expired or
// missing session on an otherwise-200 response.
const LoginRequired = "api.err.LoginRequired"

// Meta carries the controller's verdict for a response.
type Meta struct {
	RC  string `json:"rc"`
	Msg string `json:"msg,omitempty"`
}

// Envelope is the decoded response wrapper.
type Envelope struct {
	Meta Meta            `json:"meta"`
	Data json.RawMessage `json:"data"`
}

// OK reports whether the controller accepted the request.
func (e *Envelope) OK() bool {
	return e.Meta.RC == "ok"
}

// Decode parses a response body. An empty body decodes to an ok envelope
// with no data; UniFi OS login responses legitimately have no body.
func Decode(body []byte) (*Envelope, error) {
	if len(body) == 0 {
		return &Envelope{Meta: Meta{RC: "ok"}}, nil
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Wrap(err, "parsing response envelope")
	}
	return &env, nil
}

// IsLoginRequired reports whether a body is an error envelope carrying the
// LoginRequired marker. It is lenient: bodies that are not envelopes at all
// report false.
func IsLoginRequired(body []byte) bool {
	env, err := Decode(body)
	if err != nil {
		return false
	}
	return !env.OK() && env.Meta.Msg == LoginRequired
}
