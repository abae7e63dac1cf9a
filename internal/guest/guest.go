// Package guest derives guest identity from the personalized invitation link.
//
// A guest is identified only by the display name carried in the link's `to`
// query parameter. NameKey folds that display name into a stable key so that
// "Budi Santoso", "budi  santoso" and "BUDI-SANTOSO" all address the same guest.
package guest

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// QueryParam is the link parameter that carries the guest display name.
const QueryParam = "to"

// Separator replaces every run of characters outside [a-z0-9] in a key.
const Separator = '_'

// NameKey maps a free-text display name to its canonical key.
//
// The name is NFC-normalized, trimmed and lowercased; each maximal run of
// characters outside [a-z0-9] becomes a single Separator; leading and
// trailing separators are dropped. The result is either empty or matches
// ^[a-z0-9]+(_[a-z0-9]+)*$, so NameKey(NameKey(s)) == NameKey(s).
func NameKey(name string) string {
	name = strings.TrimSpace(norm.NFC.String(name))
	if name == "" {
		return ""
	}
	// Casers are stateful and must not be shared between goroutines.
	lower := cases.Lower(language.Und).String(name)

	var b strings.Builder
	b.Grow(len(lower))
	pending := false
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteRune(Separator)
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

// FromQuery returns the trimmed guest display name from link parameters.
// The second result is false when the parameter is absent or blank.
func FromQuery(q url.Values) (string, bool) {
	name := strings.TrimSpace(q.Get(QueryParam))
	if name == "" {
		return "", false
	}
	return name, true
}

// Personalized reports whether name identifies a guest, i.e. whether its key
// is non-empty. A name made only of punctuation does not.
func Personalized(name string) bool {
	return NameKey(name) != ""
}
