package canon

import (
	"path"
	"regexp"
	"strings"
	"time"
)

// VolatileFieldNames lists metadata keys that vary run-to-run for reasons
// unrelated to the semantic content of a step (timings, correlation ids,
// process identity) and are stripped before hashing so that two runs of
// the same workflow produce the same step hash.
var VolatileFieldNames = map[string]bool{
	"duration_ms":  true,
	"latency_ms":   true,
	"wall_time_ms": true,
	"elapsed_ms":   true,
	"request_id":   true,
	"trace_id":     true,
	"span_id":      true,
	"captured_at":  true,
	"captured_ns":  true,
	"thread_id":    true,
	"pid":          true,
}

// PathFieldHints identifies keys whose string values are filesystem paths,
// which get normalized to forward slashes so hashes are stable across
// operating systems.
var PathFieldHints = map[string]bool{
	"path": true, "file": true, "filepath": true, "file_path": true,
	"cwd": true, "dir": true, "directory": true, "working_directory": true,
}

// TimestampFieldHints identifies keys whose string values are timestamps.
// Offset-bearing values are normalized to UTC so that two equivalent
// timestamps expressed in different offsets canonicalize identically;
// this is distinct from -- and independent of -- VolatileFieldNames,
// which controls what gets stripped for hashing.
var TimestampFieldHints = map[string]bool{
	"timestamp": true, "created_at": true, "updated_at": true,
	"started_at": true, "ended_at": true, "captured_at": true,
}

// isoOffsetPattern matches an ISO-8601 date-time with an explicit UTC
// offset ("Z" or "+HH:MM"/"-HH:MM"), the shape _normalize_timestamp in
// the reference implementation treats as normalizable. Timestamps without
// an offset are left untouched.
var isoOffsetPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})$`)

func hasPathSuffix(key string) bool {
	return strings.HasSuffix(key, "_path") || strings.HasSuffix(key, "_dir")
}

// Canonicalize walks a Value tree and applies field-name-driven
// normalization (volatile field stripping, path/timestamp normalization)
// before the tree is serialized for hashing. It never mutates the input.
func Canonicalize(v Value, stripVolatile bool) Value {
	return canonicalizeValue(v, stripVolatile)
}

func canonicalizeValue(v Value, stripVolatile bool) Value {
	switch t := v.(type) {
	case Object:
		out := make(Object, len(t))
		for k, val := range t {
			if stripVolatile && VolatileFieldNames[k] {
				continue
			}
			out[k] = normalizeField(k, val, stripVolatile)
		}
		return out
	case Array:
		out := make(Array, len(t))
		for i, elem := range t {
			out[i] = canonicalizeValue(elem, stripVolatile)
		}
		return out
	default:
		return v
	}
}

func normalizeField(key string, v Value, stripVolatile bool) Value {
	if s, ok := v.(String); ok {
		lk := strings.ToLower(key)
		switch {
		case PathFieldHints[lk] || hasPathSuffix(lk):
			return String(normalizePath(string(s)))
		case TimestampFieldHints[lk]:
			return String(normalizeTimestamp(string(s)))
		}
	}
	return canonicalizeValue(v, stripVolatile)
}

func normalizePath(p string) string {
	return path.Clean(strings.ReplaceAll(p, `\`, "/"))
}

// normalizeTimestamp normalizes an offset-bearing ISO-8601 timestamp to
// UTC with a "Z" suffix and at most 3 fractional digits. Strings without
// a recognizable offset are returned unchanged.
func normalizeTimestamp(s string) string {
	raw := strings.TrimSpace(s)
	if raw == "" || !isoOffsetPattern.MatchString(raw) {
		return s
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return s
	}
	utc := t.UTC()
	ms := utc.Nanosecond() / int(time.Millisecond)
	if ms == 0 {
		return utc.Format("2006-01-02T15:04:05") + "Z"
	}
	return utc.Format("2006-01-02T15:04:05") + "." + zeroPad3(ms) + "Z"
}

func zeroPad3(ms int) string {
	digits := [3]byte{'0', '0', '0'}
	digits[2] = byte('0' + ms%10)
	ms /= 10
	digits[1] = byte('0' + ms%10)
	ms /= 10
	digits[0] = byte('0' + ms%10)
	return string(digits[:])
}
