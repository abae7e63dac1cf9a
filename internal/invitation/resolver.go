package invitation

import (
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when a slug matches neither a configured
// invitation nor a preview slug.
var ErrNotFound = errors.New("invitation not found")

// Resolver maps slugs to invitations. It is safe for concurrent use and
// can be reloaded in place.
type Resolver struct {
	mu   sync.RWMutex
	byID map[string]Invitation
}

// NewResolver returns a Resolver over invs.
func NewResolver(invs []Invitation) *Resolver {
	r := &Resolver{}
	r.Replace(invs)
	return r
}

// Replace swaps the configured invitations.
func (r *Resolver) Replace(invs []Invitation) {
	byID := make(map[string]Invitation, len(invs))
	for _, inv := range invs {
		byID[inv.ID] = inv
	}
	r.mu.Lock()
	r.byID = byID
	r.mu.Unlock()
}

// Resolve returns a copy of the invitation for slug. Preview slugs resolve
// to a synthesized demo invitation.
func (r *Resolver) Resolve(slug string) (*Invitation, error) {
	r.mu.RLock()
	inv, ok := r.byID[slug]
	r.mu.RUnlock()
	if ok {
		return &inv, nil
	}
	if tmpl, ok := PreviewTemplate(slug); ok {
		return Demo(slug, tmpl), nil
	}
	return nil, ErrNotFound
}

// List returns the configured slugs in order.
func (r *Resolver) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
