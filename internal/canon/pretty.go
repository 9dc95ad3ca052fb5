package canon

import "bytes"

// MarshalIndent renders v as human-readable JSON with sorted keys and a
// two-space indent, matching the on-disk formatting of .rpk artifact
// files. Key ordering and string/number formatting follow the same rules
// as MarshalCanonical; only whitespace differs.
func MarshalIndent(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeIndented(&buf, v, 0); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func writeIndented(buf *bytes.Buffer, v Value, depth int) error {
	switch t := v.(type) {
	case Array:
		if len(t) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteString("[\n")
		for i, elem := range t {
			writeIndent(buf, depth+1)
			if err := writeIndented(buf, elem, depth+1); err != nil {
				return err
			}
			if i < len(t)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		writeIndent(buf, depth)
		buf.WriteByte(']')
		return nil
	case Object:
		keys := t.SortedKeys()
		if len(keys) == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteString("{\n")
		for i, k := range keys {
			writeIndent(buf, depth+1)
			if err := writeCanonicalString(buf, k); err != nil {
				return err
			}
			buf.WriteString(": ")
			if err := writeIndented(buf, t[k], depth+1); err != nil {
				return err
			}
			if i < len(keys)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		writeIndent(buf, depth)
		buf.WriteByte('}')
		return nil
	default:
		return writeCanonical(buf, v, newCycleGuard())
	}
}

func writeIndent(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString("  ")
	}
}
