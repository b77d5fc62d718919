package intake

// Fields holds the collected conversation state as a flat key/value map.
// Values are strings, numbers, or booleans; empty values are never stored.
type Fields map[string]any

// phonePlaceholder is the sentinel some clients send before a real number is
// known. Fill-only merges treat it as absent.
const phonePlaceholder = "+1"

func emptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	return false
}

// Merge applies add on top of dst. Empty values in add carry no information
// and are skipped. In overwrite mode the incoming value always wins; in
// fill-only mode a key is set only when dst has no usable value for it yet.
func Merge(dst Fields, add map[string]any, overwrite bool) {
	for k, v := range add {
		if emptyValue(v) {
			continue
		}
		if overwrite {
			dst[k] = v
			continue
		}
		cur, ok := dst[k]
		if !ok || emptyValue(cur) || cur == phonePlaceholder {
			dst[k] = v
		}
	}
}

// Str returns the string value for key, or "" when absent or not a string.
func (f Fields) Str(key string) string {
	v, _ := f[key].(string)
	return v
}

// Has reports whether key holds a non-empty value.
func (f Fields) Has(key string) bool {
	return !emptyValue(f[key])
}

// Clone returns a shallow copy. Values are scalars, so a shallow copy is a
// full copy for merge purposes.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
