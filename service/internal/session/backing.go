package session

import (
	"context"

	"github.com/ettoremodina/bombbuster/engine"
	"github.com/ettoremodina/bombbuster/service/internal/cache"
)

// redisBackingStore adapts a shared *cache.SignatureCache to one Session's
// engine.SignatureBackingStore, scoping every key to sessionID so replicas
// serving different sessions never collide in the shared Redis keyspace.
type redisBackingStore struct {
	client    *cache.SignatureCache
	sessionID string
}

func (r *redisBackingStore) Get(ctx context.Context, key engine.SignatureCacheKey) (*engine.SignatureSet, bool) {
	var set engine.SignatureSet
	ok, err := r.client.Get(ctx, r.sessionID, string(key), &set)
	if err != nil || !ok {
		return nil, false
	}
	return &set, true
}

func (r *redisBackingStore) Put(ctx context.Context, key engine.SignatureCacheKey, set *engine.SignatureSet) {
	_ = r.client.Put(ctx, r.sessionID, string(key), set)
}

// SetCache attaches a distributed signature cache to every seat's
// Orchestrator, so a signature computation done by one replica can be
// reused by another serving the same session.
func (s *Session) SetCache(client *cache.SignatureCache) {
	if client == nil {
		return
	}
	backing := &redisBackingStore{client: client, sessionID: s.ID.String()}
	for _, orch := range s.orchestrators {
		orch.SetBackingStore(backing)
	}
}
