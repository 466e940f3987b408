package engine

import (
	"context"
	"strconv"
	"strings"
)

// SignatureCacheKey is the cache key from spec.md §4.6: a player id plus
// the player's domains, copy-count and adjacency signals, absent set and
// called set. The Orchestrator skips regeneration when a key repeats.
// The per-player value cap that GenerateSignatures also takes (derived
// from ValueTracker counts) is not part of the key, so a repeated key
// returns the set computed under the cap in force when it was stored.
type SignatureCacheKey string

// signatureCacheKey derives the key for player p from the current
// BeliefStore/ValueTracker state. It is invalidated implicitly: an event
// that changes any of these components for p produces a different key.
func signatureCacheKey(cfg *Config, bs *BeliefStore, vt *ValueTracker, p int) SignatureCacheKey {
	var b strings.Builder
	b.WriteString(strconv.Itoa(p))
	b.WriteByte('|')
	for j := 0; j < cfg.L; j++ {
		b.WriteString(strconv.FormatUint(uint64(bs.GetDomain(p, j)), 16))
		b.WriteByte(',')
	}
	b.WriteByte('|')
	for _, s := range bs.CopyCountSignals(p) {
		b.WriteString(strconv.Itoa(s.pos))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(int(s.class)))
		b.WriteByte(',')
	}
	b.WriteByte('|')
	for _, s := range bs.AdjacencySignals(p) {
		b.WriteString(strconv.Itoa(s.pos))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(int(s.relation)))
		b.WriteByte(',')
	}
	b.WriteByte('|')
	b.WriteString(strconv.FormatUint(uint64(bs.Absent(p)), 16))
	b.WriteByte('|')
	b.WriteString(strconv.FormatUint(uint64(vt.CalledDomain(p)), 16))
	return SignatureCacheKey(b.String())
}

// SignatureCache memoizes GenerateSignatures output by SignatureCacheKey,
// owned exclusively by the Orchestrator (spec.md §5). It is a plain
// in-process map; service/internal/cache provides a distributed backing
// store with the same key shape for multi-replica deployments.
type SignatureCache struct {
	entries map[SignatureCacheKey]*SignatureSet
}

// NewSignatureCache returns an empty cache.
func NewSignatureCache() *SignatureCache {
	return &SignatureCache{entries: make(map[SignatureCacheKey]*SignatureSet)}
}

// Get returns the cached SignatureSet for key, if present.
func (c *SignatureCache) Get(key SignatureCacheKey) (*SignatureSet, bool) {
	s, ok := c.entries[key]
	return s, ok
}

// Put stores set under key.
func (c *SignatureCache) Put(key SignatureCacheKey, set *SignatureSet) {
	c.entries[key] = set
}

// InvalidatePlayer does nothing and drops no entry; the cache does not
// track per-player keys, so stale entries stay in the map and are simply
// not looked up again once p's key components change.
func (c *SignatureCache) InvalidatePlayer(int) {}

// Len reports the number of cached entries.
func (c *SignatureCache) Len() int { return len(c.entries) }

// SignatureBackingStore is a second-tier cache consulted on a local
// SignatureCache miss and populated on every local computation, letting
// several service replicas serving the same session share signature
// generation work. context.Context is threaded through so a Redis-backed
// implementation can honor deadlines/cancellation.
type SignatureBackingStore interface {
	Get(ctx context.Context, key SignatureCacheKey) (*SignatureSet, bool)
	Put(ctx context.Context, key SignatureCacheKey, set *SignatureSet)
}
