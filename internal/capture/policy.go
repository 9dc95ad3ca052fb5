// Package capture records model, tool, and HTTP boundary crossings into
// an in-memory run while a workflow executes.
package capture

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/replaykit/replaykit/internal/policyexpr"
)

// Boundary identifies which kind of call site is being checked against
// policy.
type Boundary string

const (
	BoundaryModel Boundary = "model"
	BoundaryTool  Boundary = "tool"
	BoundaryHTTP  Boundary = "http"
)

// Policy controls which boundary crossings capture is allowed to record
// versus block outright.
type Policy struct {
	AllowModel        bool
	AllowTool         bool
	AllowHTTP         bool
	AllowedHosts      []string
	BlockedHosts      []string
	CaptureHTTPBodies bool

	// AllowExpression, if set, is evaluated for every boundary crossing
	// in addition to the static allow/deny fields above. It receives
	// `boundary` and `target` as expression variables and must evaluate
	// to a bool; a false result blocks the call even if the static
	// fields would have allowed it.
	AllowExpression string
}

// DefaultPolicy allows model and tool calls but blocks outbound HTTP,
// matching the conservative default of most replay-safe capture setups.
func DefaultPolicy() Policy {
	return Policy{AllowModel: true, AllowTool: true, AllowHTTP: false}
}

// AssertAllowed returns a *PolicyError if boundary/target is not
// permitted under p.
func (p Policy) AssertAllowed(boundary Boundary, target string) error {
	allowed, reason := p.staticallyAllowed(boundary, target)
	if allowed && p.AllowExpression != "" {
		ok, err := policyexpr.EvalBool(p.AllowExpression, map[string]any{
			"boundary": string(boundary),
			"target":   target,
		})
		if err != nil {
			return &PolicyError{Boundary: boundary, Target: target, Reason: fmt.Sprintf("allow expression error: %v", err)}
		}
		if !ok {
			return &PolicyError{Boundary: boundary, Target: target, Reason: "blocked by allow expression"}
		}
		return nil
	}
	if !allowed {
		return &PolicyError{Boundary: boundary, Target: target, Reason: reason}
	}
	return nil
}

func (p Policy) staticallyAllowed(boundary Boundary, target string) (bool, string) {
	switch boundary {
	case BoundaryModel:
		if !p.AllowModel {
			return false, "model calls are disabled by policy"
		}
	case BoundaryTool:
		if !p.AllowTool {
			return false, "tool calls are disabled by policy"
		}
	case BoundaryHTTP:
		if !p.AllowHTTP {
			return false, "http calls are disabled by policy"
		}
		host := extractHost(target)
		if host != "" {
			for _, blocked := range p.BlockedHosts {
				if strings.EqualFold(blocked, host) {
					return false, fmt.Sprintf("host %q is blocked by policy", host)
				}
			}
			if len(p.AllowedHosts) > 0 {
				ok := false
				for _, allowed := range p.AllowedHosts {
					if strings.EqualFold(allowed, host) {
						ok = true
						break
					}
				}
				if !ok {
					return false, fmt.Sprintf("host %q is not in the allowed host list", host)
				}
			}
		}
	}
	return true, ""
}

func extractHost(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
