// Package words serves dictionary units, caching them in Redis when one is
// configured.
package words

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/playperu/wordrace/internal/wordrace"
)

// Source reads a contiguous slice of the dictionary.
type Source interface {
	Words(ctx context.Context, offset, limit int) ([]wordrace.Word, error)
}

type Catalog struct {
	layout Layout
	src    Source
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewCatalog returns a catalog over src. rdb may be nil, in which case every
// read goes to src.
func NewCatalog(layout Layout, src Source, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Catalog {
	return &Catalog{
		layout: layout,
		src:    src,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *Catalog) Layout() Layout { return c.layout }

const loadTimeout = 10 * time.Second

func cacheKey(book, unit int) string {
	return fmt.Sprintf("wordrace:unit:%d:%d", book, unit)
}

// Unit returns the words of (book, unit) in dictionary order.
func (c *Catalog) Unit(ctx context.Context, book, unit int) ([]wordrace.Word, error) {
	if !c.layout.Valid(book, unit) {
		return nil, ErrInvalidUnit
	}
	key := cacheKey(book, unit)
	ch := c.group.DoChan(key, func() (any, error) {
		// The load is shared by every caller waiting on key, so no single
		// caller's cancellation may abort it.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return c.load(ctx, key, book, unit)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// Results are shared between concurrent callers.
		return slices.Clone(res.Val.([]wordrace.Word)), nil
	}
}

func (c *Catalog) load(ctx context.Context, key string, book, unit int) ([]wordrace.Word, error) {
	if c.rdb != nil {
		words, err := c.cached(ctx, key)
		switch {
		case err == nil:
			return words, nil
		case !errors.Is(err, redis.Nil):
			c.logger.Warn("word cache read failed", "key", key, "error", err)
		}
	}

	words, err := c.src.Words(ctx, c.layout.Offset(book, unit), c.layout.WordsInUnit)
	if err != nil {
		return nil, fmt.Errorf("loading unit %d/%d: %w", book, unit, err)
	}

	if c.rdb != nil && len(words) > 0 {
		if err := c.store(ctx, key, words); err != nil {
			c.logger.Warn("word cache write failed", "key", key, "error", err)
		}
	}
	return words, nil
}

func (c *Catalog) cached(ctx context.Context, key string) ([]wordrace.Word, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var words []wordrace.Word
	if err := json.Unmarshal(data, &words); err != nil {
		return nil, fmt.Errorf("decoding cached unit: %w", err)
	}
	return words, nil
}

func (c *Catalog) store(ctx context.Context, key string, words []wordrace.Word) error {
	data, err := json.Marshal(words)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate drops every cached unit, used after the dictionary changes.
func (c *Catalog) Invalidate(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	iter := c.rdb.Scan(ctx, 0, "wordrace:unit:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Pick returns up to n words of (book, unit) in random order.
func (c *Catalog) Pick(ctx context.Context, book, unit, n int) ([]wordrace.Word, error) {
	words, err := c.Unit(ctx, book, unit)
	if err != nil {
		return nil, err
	}
	rand.Shuffle(len(words), func(i, j int) { words[i], words[j] = words[j], words[i] })
	if n < len(words) {
		words = words[:n]
	}
	return words, nil
}
