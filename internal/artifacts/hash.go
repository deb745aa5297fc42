package artifacts

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// hashPrefixLen is the length of the hex-encoded SHA-256 prefix used as a
// hash identifier (§6): "16-hex-character prefix of SHA-256 over the
// canonical form".
const hashPrefixLen = 16

// Canonical renders v into the canonical form used for hashing (§4.7): for
// maps/slices, JSON with sorted keys and stringified non-JSON-native
// values; for scalars, their string form.
func Canonical(v any) string {
	return canonicalValue(v)
}

// Hash returns the stable 16-hex-character SHA-256 prefix of s.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:hashPrefixLen]
}

// HashValue canonicalises v and hashes the result in one step.
func HashValue(v any) string {
	return Hash(Canonical(v))
}

func canonicalValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case map[string]any:
		return canonicalMap(t)
	case []any:
		return canonicalSlice(t)
	default:
		// Scalars (numbers, bools) and anything else JSON can represent
		// natively: marshal directly for a stable textual form.
		if data, err := json.Marshal(t); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", t)
	}
}

func canonicalMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		ordered[k] = json.RawMessage(canonicalJSONFragment(m[k]))
	}

	// Marshal a slice of key/value pairs to preserve sorted key order;
	// encoding/json would otherwise re-sort a map[string]json.RawMessage
	// identically, but building it this way keeps the intent explicit.
	var sb []byte
	sb = append(sb, '{')
	for i, k := range keys {
		if i > 0 {
			sb = append(sb, ',')
		}
		keyJSON, _ := json.Marshal(k)
		sb = append(sb, keyJSON...)
		sb = append(sb, ':')
		sb = append(sb, ordered[k]...)
	}
	sb = append(sb, '}')
	return string(sb)
}

func canonicalSlice(s []any) string {
	var sb []byte
	sb = append(sb, '[')
	for i, item := range s {
		if i > 0 {
			sb = append(sb, ',')
		}
		sb = append(sb, canonicalJSONFragment(item)...)
	}
	sb = append(sb, ']')
	return string(sb)
}

// canonicalJSONFragment returns a valid JSON fragment for embedding inside a
// larger canonical object/array, recursing through maps/slices and falling
// back to a JSON string for scalars that can't be represented natively by
// canonicalValue (mirrors "stringified non-JSON values" for nested scalars
// too, but numbers/bools still marshal to their native JSON form).
func canonicalJSONFragment(v any) string {
	switch t := v.(type) {
	case map[string]any:
		return canonicalMap(t)
	case []any:
		return canonicalSlice(t)
	case string:
		data, _ := json.Marshal(t)
		return string(data)
	case nil:
		return "null"
	default:
		if data, err := json.Marshal(t); err == nil {
			return string(data)
		}
		data, _ := json.Marshal(fmt.Sprintf("%v", t))
		return string(data)
	}
}
