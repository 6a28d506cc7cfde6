package device

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// TXT is the text view of a resolved service's TXT records.
type TXT struct {
	// Entries holds every entry that decoded as UTF-8, in received order
	Entries []string

	// Skipped holds the raw entries that were not valid text
	Skipped [][]byte
}

// ParseTXT decodes raw TXT records. Entries that are not valid UTF-8 are
// moved to Skipped and otherwise ignored.
func ParseTXT(records [][]byte) TXT {
	var txt TXT
	for _, rec := range records {
		if !utf8.Valid(rec) {
			txt.Skipped = append(txt.Skipped, rec)
			continue
		}
		txt.Entries = append(txt.Entries, string(rec))
	}
	return txt
}

// ParseTXTStrings is ParseTXT for records that are already strings,
// as delivered by plain mDNS resolvers.
func ParseTXTStrings(records []string) TXT {
	raw := make([][]byte, 0, len(records))
	for _, rec := range records {
		raw = append(raw, []byte(rec))
	}
	return ParseTXT(raw)
}

// Custom joins the text entries with a single space
func (t TXT) Custom() string {
	return strings.Join(t.Entries, " ")
}

// Get returns the value of the first entry whose key matches (case-insensitive),
// or an empty string. Entries without '=' have an empty value.
func (t TXT) Get(key string) string {
	v, _ := t.lookup(key)
	return v
}

// lookup returns the value of the earliest entry whose key matches any of keys
func (t TXT) lookup(keys ...string) (string, bool) {
	for _, e := range t.Entries {
		k, v, _ := strings.Cut(e, "=")
		for _, key := range keys {
			if strings.EqualFold(k, key) {
				return v, true
			}
		}
	}
	return "", false
}

func (t TXT) has(keys ...string) bool {
	_, ok := t.lookup(keys...)
	return ok
}

func (t TXT) first(keys ...string) string {
	v, _ := t.lookup(keys...)
	return v
}

func (t TXT) uint(keys ...string) uint64 {
	v := strings.TrimSpace(t.first(keys...))
	if v == "" {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
