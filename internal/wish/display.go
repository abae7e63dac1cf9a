package wish

import (
	"fmt"
	"sort"
	"time"

	"github.com/meimodev/activid-web-sub001/internal/guest"
)

// Sort orders wishes most recent first. Zero CreatedAt sorts as oldest; ties
// are broken by ID ascending so the order is total.
func Sort(wishes []Wish) {
	sort.SliceStable(wishes, func(i, j int) bool {
		a, b := wishes[i], wishes[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// Dedupe keeps the first record per guest identity. Wishes must already be
// sorted, so the survivor is the most recent one.
//
// Identity is NameKey, or the normalized Name for records without a key.
// Records with neither (anonymous blank names) are always kept.
func Dedupe(wishes []Wish) []Wish {
	seen := make(map[string]bool, len(wishes))
	out := make([]Wish, 0, len(wishes))
	for _, w := range wishes {
		key := w.NameKey
		if key == "" {
			key = guest.NameKey(w.Name)
		}
		if key != "" {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, w)
	}
	return out
}

// TimeAgo renders the age of t relative to now in Indonesian, the way the
// invitation wish list shows it.
//
// Times in the future or under a minute old render as "baru saja". A zero t
// renders as "".
func TimeAgo(now, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "baru saja"
	case d < time.Hour:
		return fmt.Sprintf("%d menit yang lalu", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d jam yang lalu", int(d/time.Hour))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%d hari yang lalu", int(d/(24*time.Hour)))
	case d < 365*24*time.Hour:
		return fmt.Sprintf("%d bulan yang lalu", int(d/(30*24*time.Hour)))
	default:
		return fmt.Sprintf("%d tahun yang lalu", int(d/(365*24*time.Hour)))
	}
}
