package canon

import "fmt"

// StructuralKind categorizes a canonicalization/decode failure per the
// "Structural" error taxonomy: malformed input that can never be
// canonicalized, as opposed to an integrity or policy failure.
type StructuralKind string

const (
	KindInvalidJSON     StructuralKind = "invalid_json"
	KindDuplicateKey    StructuralKind = "duplicate_key"
	KindNonFiniteNumber StructuralKind = "non_finite_number"
	KindCycle           StructuralKind = "cycle"
)

// StructuralError reports a value that cannot be canonicalized: invalid
// JSON, a rejected duplicate object key, a non-finite number, or a cycle.
type StructuralError struct {
	Kind    StructuralKind
	Message string
	Details map[string]string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("canon: %s: %s", e.Kind, e.Message)
}

// IsDuplicateKey reports whether err is a StructuralError caused by a
// duplicate object key.
func IsDuplicateKey(err error) bool {
	se, ok := err.(*StructuralError)
	return ok && se.Kind == KindDuplicateKey
}

// IsCycle reports whether err is a StructuralError caused by a Value
// tree that contains itself.
func IsCycle(err error) bool {
	se, ok := err.(*StructuralError)
	return ok && se.Kind == KindCycle
}

// IsNonFiniteNumber reports whether err is a StructuralError caused by a
// NaN or Infinity Float that has no JSON representation.
func IsNonFiniteNumber(err error) bool {
	se, ok := err.(*StructuralError)
	return ok && se.Kind == KindNonFiniteNumber
}
