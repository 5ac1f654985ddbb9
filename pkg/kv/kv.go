// Package kv stores small binary blobs under slash-separated keys with an
// optional time to live. The call bridge keeps rendered prompt audio here
// so an apology can be played without calling a speech vendor.
//
// Two implementations share the Store interface: Badger persists to disk
// (or runs in memory for tests), Memory is a map for tests and for runs
// without a data directory.
package kv

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"
)

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("kv: not found")

// ErrBadKey is returned for keys with empty or slash-containing segments.
var ErrBadKey = errors.New("kv: bad key")

// Key is a path of segments, for example Key{"prompt", "acme", "3f2a"}.
type Key []string

// String joins the segments with '/'.
func (k Key) String() string {
	return strings.Join(k, "/")
}

func (k Key) encode() ([]byte, error) {
	if len(k) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrBadKey)
	}
	for _, seg := range k {
		if seg == "" || strings.ContainsRune(seg, '/') {
			return nil, fmt.Errorf("%w: %q", ErrBadKey, k.String())
		}
	}
	return []byte(k.String()), nil
}

// prefix returns the encoded prefix that matches k and its descendants
// but not siblings sharing a leading substring.
func (k Key) prefix() []byte {
	if len(k) == 0 {
		return nil
	}
	return []byte(k.String() + "/")
}

func decodeKey(b []byte) Key {
	return Key(strings.Split(string(b), "/"))
}

// Entry is a stored key and value.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a key-value store.
type Store interface {
	// Get returns the value of key, or ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores value under key. A positive ttl expires the entry.
	Set(ctx context.Context, key Key, value []byte, ttl time.Duration) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key Key) error

	// List yields live entries below prefix in key order.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	Close() error
}
