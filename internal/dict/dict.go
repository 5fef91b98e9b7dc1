// Package dict holds the data dictionary: the canonical string-to-string
// map every workflow run threads through its components. Storage is always
// string form; typed views are derived on demand. The dictionary is owned
// by a single task and is not safe for concurrent mutation.
package dict

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"greenscreen/internal/numeric"
)

// Dictionary maps canonical field names to string values.
type Dictionary map[string]string

// New builds a dictionary, optionally seeded from initial maps.
func New(seeds ...map[string]string) Dictionary {
	d := Dictionary{}
	for _, seed := range seeds {
		for k, v := range seed {
			d[k] = v
		}
	}
	return d
}

// Get returns the value for key, or "".
func (d Dictionary) Get(key string) string { return d[key] }

// Has reports whether key is present.
func (d Dictionary) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Set stores a value under key.
func (d Dictionary) Set(key, value string) { d[key] = value }

// Merge copies every entry of src into the dictionary.
func (d Dictionary) Merge(src map[string]string) {
	for k, v := range src {
		d[k] = v
	}
}

// Clone returns an independent copy.
func (d Dictionary) Clone() Dictionary {
	out := make(Dictionary, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Keys returns the sorted key set.
func (d Dictionary) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Int derives an integer view of key.
func (d Dictionary) Int(key string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(d[key]))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Bool derives a boolean view of key ("true", "1", "yes" are true).
func (d Dictionary) Bool(key string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(d[key])) {
	case "true", "1", "yes":
		return true, true
	case "false", "0", "no":
		return false, true
	}
	return false, false
}

// Decimal derives a decimal view of key, accepting currency symbols,
// thousands separators and parenthesized negatives.
func (d Dictionary) Decimal(key string) (float64, bool) {
	dec, ok := numeric.Parse(d[key])
	if !ok {
		return 0, false
	}
	f, _ := dec.Float64()
	return f, true
}

var placeholderPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Resolve substitutes every {{key}} occurrence in s with the dictionary
// value. Unknown placeholders survive verbatim, so substitution is
// idempotent as long as values introduce no new placeholders.
func (d Dictionary) Resolve(s string) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(m string) string {
		key := m[2 : len(m)-2]
		if v, ok := d[key]; ok {
			return v
		}
		return m
	})
}

// ResolveMap substitutes placeholders in every value of m, returning a new
// map.
func (d Dictionary) ResolveMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = d.Resolve(v)
	}
	return out
}

// SensitiveKeys is the case-insensitive denylist of keys whose values must
// never reach logs, error details or server-side data updates.
var SensitiveKeys = []string{"password", "passcode", "pin"}

// IsSensitiveKey reports whether key matches the denylist.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range SensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// SensitiveValues returns the current values of every sensitive key, for
// log scrubbing.
func (d Dictionary) SensitiveValues() []string {
	var out []string
	for k, v := range d {
		if v != "" && IsSensitiveKey(k) {
			out = append(out, v)
		}
	}
	return out
}

// Redact replaces any occurrence of a sensitive value in msg with asterisks.
func (d Dictionary) Redact(msg string) string {
	for _, v := range d.SensitiveValues() {
		msg = strings.ReplaceAll(msg, v, "******")
	}
	return msg
}
