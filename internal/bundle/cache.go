// internal/bundle/cache.go
package bundle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/SyedDaiam9101/leaf-classifier/internal/disease"
	"github.com/SyedDaiam9101/leaf-classifier/internal/metrics"
)

// Cache holds at most one loaded Bundle per category. Population is
// serialized per category so concurrent first requests trigger a single
// load; a failed load is not remembered and the next Get retries.
type Cache struct {
	loader  Loader
	log     zerolog.Logger
	entries map[disease.Category]*entry
	onLoad  func(disease.Category)
}

type entry struct {
	mu     sync.Mutex
	bundle atomic.Pointer[Bundle]
}

// NewCache creates an empty cache backed by loader.
func NewCache(loader Loader, logger zerolog.Logger) *Cache {
	entries := make(map[disease.Category]*entry, len(disease.Categories))
	for _, c := range disease.Categories {
		entries[c] = &entry{}
	}
	return &Cache{loader: loader, log: logger, entries: entries}
}

// OnLoad registers fn to run after each successful load. It must be set
// before the cache is shared; fn runs with the category's lock held and
// must not call Get for the same category.
func (c *Cache) OnLoad(fn func(disease.Category)) {
	c.onLoad = fn
}

// Get returns the bundle for c, loading it on first use.
func (c *Cache) Get(ctx context.Context, cat disease.Category) (*Bundle, error) {
	e, ok := c.entries[cat]
	if !ok {
		return nil, &disease.InvalidCategoryError{Value: cat.String()}
	}
	if b := e.bundle.Load(); b != nil {
		return b, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// another caller may have finished loading while we waited
	if b := e.bundle.Load(); b != nil {
		return b, nil
	}

	c.log.Info().Str("category", cat.String()).Msg("loading model bundle")
	b, err := c.loader.Load(ctx, cat)
	metrics.RecordBundleLoad(cat.String(), err == nil)
	if err != nil {
		c.log.Error().Err(err).Str("category", cat.String()).Msg("model bundle load failed")
		return nil, err
	}
	if b == nil {
		return nil, &LoadError{Category: cat, Path: "", Err: fmt.Errorf("loader returned no bundle")}
	}
	e.bundle.Store(b)
	if c.onLoad != nil {
		c.onLoad(cat)
	}
	return b, nil
}

// Loaded reports whether the bundle for c is resident.
func (c *Cache) Loaded(cat disease.Category) bool {
	e, ok := c.entries[cat]
	return ok && e.bundle.Load() != nil
}

// Warm loads the given categories, or all of them when none are given.
// It attempts every category and returns the joined errors.
func (c *Cache) Warm(ctx context.Context, cats ...disease.Category) error {
	if len(cats) == 0 {
		cats = disease.Categories
	}
	var errs []error
	for _, cat := range cats {
		if _, err := c.Get(ctx, cat); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Clear drops every cached bundle and releases its resources. Callers must
// ensure no request is still using a bundle obtained from Get.
func (c *Cache) Clear() error {
	var errs []error
	for _, cat := range disease.Categories {
		e := c.entries[cat]
		e.mu.Lock()
		if b := e.bundle.Swap(nil); b != nil {
			if err := b.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		e.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Close releases all cached bundles.
func (c *Cache) Close() error {
	return c.Clear()
}
