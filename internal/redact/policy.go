// Package redact masks sensitive fields and values in captured payloads
// before they are written to disk or included in a shareable bundle.
package redact

import (
	"regexp"

	"github.com/replaykit/replaykit/internal/canon"
)

// DefaultMask replaces a redacted value.
const DefaultMask = "[REDACTED]"

// PolicyVersion is stamped onto bundles built with a given redaction
// policy, so downstream tooling knows which rules produced a bundle.
const PolicyVersion = "1"

// SensitiveFieldNames lists object keys whose values are masked
// regardless of content, unless the key also appears in SafeFieldNames.
var SensitiveFieldNames = map[string]bool{
	"authorization": true, "proxy-authorization": true,
	"x-api-key": true, "api-key": true, "apikey": true, "api_key": true,
	"token": true, "access_token": true, "refresh_token": true,
	"password": true, "secret": true,
	"set-cookie": true, "cookie": true,
}

// SafeFieldNames overrides SensitiveFieldNames for keys that are safe to
// keep in the clear even though they might look sensitive by naming
// convention.
var SafeFieldNames = map[string]bool{
	"tool": true, "model": true, "provider": true, "method": true,
	"url": true, "status": true, "status_code": true, "name": true,
	"host": true, "path": true,
}

// secretValuePatterns matches values that look like secrets regardless
// of the field name they appear under.
var secretValuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bbearer\s+[a-z0-9._~+/=-]{10,}\b`),
	regexp.MustCompile(`\bsk-[a-zA-Z0-9]{16,}\b`),
	regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
	regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`),
	regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`),
}

// Policy configures how redact masks payloads.
type Policy struct {
	Version           string
	Enabled           bool
	Mask              string
	SensitiveFields   map[string]bool
	SafeFields        map[string]bool
}

// Default returns the built-in redaction policy applied unless a config
// file overrides it.
func Default() Policy {
	return Policy{
		Version:         PolicyVersion,
		Enabled:         true,
		Mask:            DefaultMask,
		SensitiveFields: SensitiveFieldNames,
		SafeFields:      SafeFieldNames,
	}
}

// None returns a policy that never redacts anything, for callers that
// explicitly opt out (e.g. `--redaction none` on a trusted local bundle).
func None() Policy {
	return Policy{Version: PolicyVersion, Enabled: false}
}

// Value returns a redacted copy of v. Object keys are compared
// case-insensitively against SensitiveFields/SafeFields; string values
// not under a sensitive key are still scanned against value patterns.
func (p Policy) Value(v canon.Value) canon.Value {
	if !p.Enabled {
		return v
	}
	return p.redact(v, false)
}

func (p Policy) redact(v canon.Value, forceMask bool) canon.Value {
	switch t := v.(type) {
	case canon.Object:
		out := make(canon.Object, len(t))
		for k, val := range t {
			lower := lowerASCII(k)
			switch {
			case p.SafeFields[lower]:
				out[k] = p.redact(val, false)
			case p.SensitiveFields[lower]:
				out[k] = canon.String(p.Mask)
			default:
				out[k] = p.redact(val, forceMask)
			}
		}
		return out
	case canon.Array:
		out := make(canon.Array, len(t))
		for i, elem := range t {
			out[i] = p.redact(elem, forceMask)
		}
		return out
	case canon.String:
		if forceMask {
			return canon.String(p.Mask)
		}
		return canon.String(p.redactString(string(t)))
	default:
		return v
	}
}

func (p Policy) redactString(s string) string {
	for _, pattern := range secretValuePatterns {
		s = pattern.ReplaceAllString(s, p.Mask)
	}
	return s
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
