// Package photos resolves an invitation's photo pool and draws the
// background slideshow from it.
package photos

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/meimodev/activid-web-sub001/internal/invitation"
	"github.com/meimodev/activid-web-sub001/internal/selector"
)

// Photo is one displayable photo.
type Photo struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Library lists photo keys for an invitation and turns keys into URLs.
//
// Keys must be returned in a stable order: the background draw is made over
// keys, never over URLs, so signed URLs can change between requests without
// changing the selection.
type Library interface {
	Keys(ctx context.Context, inv *invitation.Invitation) ([]string, error)
	URL(ctx context.Context, inv *invitation.Invitation, key string) (string, error)
}

// Background returns the invitation's background photo set: a subset of
// the pool of size min(inv.Photos.Background, pool size), seeded by the
// invitation ID.
func Background(ctx context.Context, lib Library, inv *invitation.Invitation) ([]Photo, error) {
	keys, err := lib.Keys(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("list photos for %s: %w", inv.ID, err)
	}
	return resolve(ctx, lib, inv, selector.Pick(keys, inv.ID, inv.Photos.Background))
}

// All returns the whole pool in library order.
func All(ctx context.Context, lib Library, inv *invitation.Invitation) ([]Photo, error) {
	keys, err := lib.Keys(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("list photos for %s: %w", inv.ID, err)
	}
	return resolve(ctx, lib, inv, keys)
}

func resolve(ctx context.Context, lib Library, inv *invitation.Invitation, keys []string) ([]Photo, error) {
	out := make([]Photo, 0, len(keys))
	for _, key := range keys {
		u, err := lib.URL(ctx, inv, key)
		if err != nil {
			return nil, fmt.Errorf("photo url %s: %w", key, err)
		}
		out = append(out, Photo{Key: key, URL: u})
	}
	return out, nil
}

// Static serves the configured pool as-is. Relative keys are joined onto
// BaseURL.
type Static struct {
	BaseURL string
}

// Keys returns the configured pool.
func (s Static) Keys(_ context.Context, inv *invitation.Invitation) ([]string, error) {
	return inv.Photos.Pool, nil
}

// URL returns key unchanged when it is absolute.
func (s Static) URL(_ context.Context, _ *invitation.Invitation, key string) (string, error) {
	if isAbsolute(key) || s.BaseURL == "" {
		return key, nil
	}
	return url.JoinPath(s.BaseURL, key)
}

func isAbsolute(key string) bool {
	return strings.Contains(key, "://")
}
