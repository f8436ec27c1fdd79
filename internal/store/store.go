// Package store defines the path-addressable remote store the room
// protocol runs on: point reads, last-write-wins writes, field merges and
// push-based subscriptions, in the style of a realtime database tree.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrUnavailable is returned when the backing service cannot be reached
// or is misconfigured. Operations fail fast; retry policy is the caller's.
var ErrUnavailable = errors.New("remote store unavailable")

// Subscription is a live listener handle. Close detaches it; closing an
// already-closed subscription is a no-op.
type Subscription interface {
	Close() error
}

// RemoteStore is a shared, eventually-consistent key-value tree addressed
// by slash-separated paths.
//
// Notification semantics: a write at path P fans out to subscribers of P,
// of every ancestor of P and of affected descendants. Each subscriber
// receives the JSON value currently at its own subscribed path ("null"
// when absent). Delivery is ordered per path; there is no cross-path
// ordering guarantee.
type RemoteStore interface {
	// Write replaces the value at path, discarding any previous subtree.
	Write(ctx context.Context, path string, value any) error

	// Update merges fields into the object at path without disturbing
	// sibling fields. The object is created if absent.
	Update(ctx context.Context, path string, fields map[string]any) error

	// WriteIfAbsent writes value at path only if nothing exists there.
	// Returns true if the write was applied. This is the conditional
	// primitive that makes room creation and guest-slot assignment
	// race-free.
	WriteIfAbsent(ctx context.Context, path string, value any) (bool, error)

	// ReadOnce reads the value at path into dest. Returns false when the
	// path is absent, in which case dest is left untouched.
	ReadOnce(ctx context.Context, path string, dest any) (bool, error)

	// Delete removes the subtree at path.
	Delete(ctx context.Context, path string) error

	// Subscribe registers fn for changes under path. fn is first invoked
	// with the current value at path (possibly "null"), then once per
	// relevant write.
	Subscribe(ctx context.Context, path string, fn func(raw []byte)) (Subscription, error)

	// PushChildKey returns a fresh, unique child path under path, for
	// append-only collections.
	PushChildKey(path string) string
}

func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

func joinPath(segs []string) string {
	return strings.Join(segs, "/")
}

// ancestors returns every proper ancestor path of p, nearest first.
func ancestors(p string) []string {
	segs := splitPath(p)
	out := make([]string, 0, len(segs)-1)
	for i := len(segs) - 1; i > 0; i-- {
		out = append(out, joinPath(segs[:i]))
	}
	return out
}

// covers reports whether sub is an ancestor of, equal to, or a descendant
// of target, i.e. whether a write at target is visible at sub.
func covers(sub, target string) bool {
	if sub == target {
		return true
	}
	return strings.HasPrefix(target, sub+"/") || strings.HasPrefix(sub, target+"/")
}

func pushChildKey(path string) string {
	return path + "/" + uuid.New().String()
}
