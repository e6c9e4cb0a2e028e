package entrada

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FieldMap maps canonical identity keys (uuid, email, first_name, ...) to
// ordered lists of payload aliases. The first alias present in the payload
// with a non-nil value wins. Keys without a configured alias list fall back
// to the canonical key itself.
type FieldMap map[string][]string

// DefaultFieldMap covers the payload shapes of the stock providers: GitHub
// exposes login/avatar_url, Google given_name/family_name/picture, and so on.
func DefaultFieldMap() FieldMap {
	return FieldMap{
		"uuid":           {"id"},
		"email":          {"email"},
		"username":       {"username", "login"},
		"first_name":     {"first_name", "given_name"},
		"last_name":      {"last_name", "family_name"},
		"photo_url":      {"photo_url", "picture", "avatar_url"},
		"email_verified": {"verified_email", "email_verified"},
	}
}

// NormalizeFieldMap builds a FieldMap from loosely typed configuration where
// an alias list may be a single bare string, a []string, or a []any.
// Malformed entries are treated as "no mapping", never as an error.
func NormalizeFieldMap(raw map[string]any) FieldMap {
	out := FieldMap{}
	for key, val := range raw {
		switch v := val.(type) {
		case string:
			if v != "" {
				out[key] = []string{v}
			}
		case []string:
			out[key] = append([]string(nil), v...)
		case []any:
			aliases := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok && s != "" {
					aliases = append(aliases, s)
				}
			}
			if len(aliases) > 0 {
				out[key] = aliases
			}
		}
	}
	return out
}

// Extract resolves the canonical field value from the payload. The second
// return reports whether any alias matched with a non-nil value.
func (m FieldMap) Extract(payload Payload, canonicalKey string) (any, bool) {
	for _, alias := range m.aliases(canonicalKey) {
		if alias == "" {
			continue
		}
		if val, ok := payload[alias]; ok && val != nil {
			return val, true
		}
	}
	return nil, false
}

// ExtractString resolves the canonical field and renders scalar values as
// strings. Provider ids in particular arrive as strings, JSON numbers, or
// native integers depending on the provider.
func (m FieldMap) ExtractString(payload Payload, canonicalKey string) string {
	val, ok := m.Extract(payload, canonicalKey)
	if !ok {
		return ""
	}
	return stringValue(val)
}

// ExtractBool resolves the canonical field with loose truthiness: booleans,
// non-zero numbers, and the strings "true"/"1" count as true.
func (m FieldMap) ExtractBool(payload Payload, canonicalKey string) bool {
	val, ok := m.Extract(payload, canonicalKey)
	if !ok {
		return false
	}
	return truthyValue(val)
}

func (m FieldMap) aliases(canonicalKey string) []string {
	if aliases, ok := m[canonicalKey]; ok && len(aliases) > 0 {
		return aliases
	}
	return []string{canonicalKey}
}

func stringValue(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func truthyValue(val any) bool {
	switch v := val.(type) {
	case bool:
		return v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s != "" && s != "0" && s != "false"
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	default:
		return false
	}
}
