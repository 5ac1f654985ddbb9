package kv

import (
	"bytes"
	"context"
	"iter"
	"slices"
	"sync"
	"time"
)

type memEntry struct {
	value   []byte
	expires time.Time
}

// Memory is a Store held in a map. It is safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	data map[string]memEntry

	// now is replaced in tests.
	now func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]memEntry), now: time.Now}
}

func (m *Memory) live(e memEntry) bool {
	return e.expires.IsZero() || m.now().Before(e.expires)
}

func (m *Memory) Get(_ context.Context, key Key) ([]byte, error) {
	k, err := key.encode()
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	e, ok := m.data[string(k)]
	m.mu.RUnlock()
	if !ok || !m.live(e) {
		return nil, ErrNotFound
	}
	return bytes.Clone(e.value), nil
}

func (m *Memory) Set(_ context.Context, key Key, value []byte, ttl time.Duration) error {
	k, err := key.encode()
	if err != nil {
		return err
	}
	e := memEntry{value: bytes.Clone(value)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.data[string(k)] = e
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key Key) error {
	k, err := key.encode()
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.data, string(k))
	m.mu.Unlock()
	return nil
}

func (m *Memory) List(_ context.Context, prefix Key) iter.Seq2[Entry, error] {
	p := prefix.prefix()

	m.mu.RLock()
	var keys []string
	for k, e := range m.data {
		if bytes.HasPrefix([]byte(k), p) && m.live(e) {
			keys = append(keys, k)
		}
	}
	entries := make([]Entry, 0, len(keys))
	slices.Sort(keys)
	for _, k := range keys {
		entries = append(entries, Entry{Key: decodeKey([]byte(k)), Value: bytes.Clone(m.data[k].value)})
	}
	m.mu.RUnlock()

	return func(yield func(Entry, error) bool) {
		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (m *Memory) Close() error {
	return nil
}
