package kv

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"testing"
	"time"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	b, err := NewBadger(BadgerOptions{InMemory: true, Logger: slog.New(slog.DiscardHandler)})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return map[string]Store{"memory": NewMemory(), "badger": b}
}

func TestStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			key := Key{"prompt", "acme", "abc"}
			if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get missing = %v, want ErrNotFound", err)
			}
			if err := s.Set(ctx, key, []byte("one"), 0); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := s.Set(ctx, key, []byte("two"), 0); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			got, err := s.Get(ctx, key)
			if err != nil || string(got) != "two" {
				t.Fatalf("Get = %q, %v", got, err)
			}
			if err := s.Delete(ctx, key); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get after delete = %v", err)
			}
			if err := s.Delete(ctx, Key{"no", "such"}); err != nil {
				t.Fatalf("Delete missing: %v", err)
			}
		})
	}
}

func TestStore_BadKey(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []Key{nil, {"a", ""}, {"a/b"}} {
				if err := s.Set(ctx, k, nil, 0); !errors.Is(err, ErrBadKey) {
					t.Errorf("Set(%q) = %v, want ErrBadKey", k.String(), err)
				}
			}
		})
	}
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []Key{
				{"prompt", "acme", "b"},
				{"prompt", "acme", "a"},
				{"prompt", "acmex", "c"},
				{"meta", "x"},
			} {
				if err := s.Set(ctx, k, []byte(k.String()), 0); err != nil {
					t.Fatal(err)
				}
			}
			var got []string
			for e, err := range s.List(ctx, Key{"prompt", "acme"}) {
				if err != nil {
					t.Fatal(err)
				}
				if string(e.Value) != e.Key.String() {
					t.Errorf("value %q under %q", e.Value, e.Key.String())
				}
				got = append(got, e.Key.String())
			}
			want := []string{"prompt/acme/a", "prompt/acme/b"}
			if !slices.Equal(got, want) {
				t.Errorf("List = %v, want %v", got, want)
			}

			n := 0
			for range s.List(ctx, nil) {
				n++
			}
			if n != 4 {
				t.Errorf("List(nil) = %d entries, want 4", n)
			}
		})
	}
}

func TestMemory_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	if err := m.Set(ctx, Key{"a"}, []byte("x"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(ctx, Key{"a"}); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := m.Get(ctx, Key{"a"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after expiry = %v, want ErrNotFound", err)
	}
	for range m.List(ctx, nil) {
		t.Fatal("expired entry listed")
	}
}
