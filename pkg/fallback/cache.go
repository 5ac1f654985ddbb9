package fallback

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/kv"
)

// DefaultCacheTTL is how long rendered prompts are kept.
const DefaultCacheTTL = 7 * 24 * time.Hour

// Cache stores rendered prompt audio in a kv store.
type Cache struct {
	store kv.Store
	ttl   time.Duration
}

// NewCache wraps store. A non-positive ttl uses DefaultCacheTTL.
func NewCache(store kv.Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{store: store, ttl: ttl}
}

type cacheEntry struct {
	Voice     string `msgpack:"voice"`
	Text      string `msgpack:"text"`
	MuLaw     []byte `msgpack:"mulaw"`
	CreatedAt int64  `msgpack:"created_at"`
}

func cacheKey(voice, text string) kv.Key {
	sum := sha256.Sum256([]byte(voice + "\x00" + text))
	return kv.Key{"prompt", hex.EncodeToString(sum[:16])}
}

// Get returns cached μ-law audio, or kv.ErrNotFound.
func (c *Cache) Get(ctx context.Context, voice, text string) ([]byte, error) {
	data, err := c.store.Get(ctx, cacheKey(voice, text))
	if err != nil {
		return nil, err
	}
	var e cacheEntry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("fallback: decode cache entry: %w", err)
	}
	// Guard against hash collisions.
	if e.Voice != voice || e.Text != text {
		return nil, kv.ErrNotFound
	}
	return e.MuLaw, nil
}

// Put stores μ-law audio.
func (c *Cache) Put(ctx context.Context, voice, text string, mu []byte) error {
	data, err := msgpack.Marshal(cacheEntry{
		Voice:     voice,
		Text:      text,
		MuLaw:     mu,
		CreatedAt: time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	return c.store.Set(ctx, cacheKey(voice, text), data, c.ttl)
}

// Len counts cached prompts.
func (c *Cache) Len(ctx context.Context) (int, error) {
	n := 0
	for _, err := range c.store.List(ctx, kv.Key{"prompt"}) {
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func isMiss(err error) bool {
	return errors.Is(err, kv.ErrNotFound)
}
