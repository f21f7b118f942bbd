// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package ability

import (
	"crypto/rand"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

func newGeneration() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// objectKey identifies a cached Abilities result. local marks results that
// exclude treaty-shared abilities.
type objectKey struct {
	obj   Object
	local bool
}

type commonKey struct {
	obj   CommonObject
	emp   Empire
	local bool
}

// CacheStats counts cache traffic since the cache was created.
type CacheStats struct {
	Hits          uint64
	Misses        uint64
	Invalidations uint64
	Entries       int
}

// Cache memoises stacked ability sets for one generation of a galaxy
// snapshot. Entries are never invalidated one by one: anything that changes
// an ability input must call Invalidate, which discards the whole generation.
// Cache is not safe for concurrent use.
type Cache struct {
	generation ulid.ULID
	objects    map[objectKey][]*Ability
	common     map[commonKey][]*Ability
	stats      CacheStats
	logger     *slog.Logger
}

// NewCache creates an empty cache at a fresh generation.
func NewCache(logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		generation: newGeneration(),
		objects:    make(map[objectKey][]*Ability),
		common:     make(map[commonKey][]*Ability),
		logger:     logger,
	}
}

// Generation identifies the current cache generation.
func (c *Cache) Generation() ulid.ULID { return c.generation }

// Object returns the cached abilities of obj. The second result
// distinguishes "not computed" from "computed, empty".
func (c *Cache) Object(obj Object, local bool) ([]*Ability, bool) {
	abils, ok := c.objects[objectKey{obj: obj, local: local}]
	c.record("object", ok)
	return abils, ok
}

// StoreObject caches the abilities of obj.
func (c *Cache) StoreObject(obj Object, local bool, abils []*Ability) {
	if abils == nil {
		abils = []*Ability{}
	}
	c.objects[objectKey{obj: obj, local: local}] = abils
}

// Common returns the cached abilities of obj as seen by emp.
func (c *Cache) Common(obj CommonObject, emp Empire, local bool) ([]*Ability, bool) {
	abils, ok := c.common[commonKey{obj: obj, emp: emp, local: local}]
	c.record("common", ok)
	return abils, ok
}

// StoreCommon caches the abilities of obj as seen by emp.
func (c *Cache) StoreCommon(obj CommonObject, emp Empire, local bool, abils []*Ability) {
	if abils == nil {
		abils = []*Ability{}
	}
	c.common[commonKey{obj: obj, emp: emp, local: local}] = abils
}

// Invalidate discards every entry and starts a new generation.
func (c *Cache) Invalidate(reason string) {
	prev := c.generation
	dropped := len(c.objects) + len(c.common)
	c.objects = make(map[objectKey][]*Ability)
	c.common = make(map[commonKey][]*Ability)
	c.generation = newGeneration()
	c.stats.Invalidations++
	cacheInvalidations.Inc()
	c.logger.Debug("ability cache invalidated",
		slog.String("reason", reason),
		slog.String("previous_generation", prev.String()),
		slog.String("generation", c.generation.String()),
		slog.Int("dropped", dropped),
	)
}

// Stats returns traffic counters.
func (c *Cache) Stats() CacheStats {
	s := c.stats
	s.Entries = len(c.objects) + len(c.common)
	return s
}

func (c *Cache) record(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	cacheRequests.WithLabelValues(kind, result).Inc()
}
