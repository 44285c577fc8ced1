package messaging

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

const defaultRegistryShards = 8

// registry maps message types to their subscriptions in insertion order.
// Buckets are spread over shards so that unrelated message types do not
// contend on one lock. Removal is two-phase: markRemoval flags the
// registration and queues it, applyRemovals compacts the buckets.
type registry struct {
	shards []*registryShard
	count  atomic.Int64

	pendingMu sync.Mutex
	pending   []*Registration
}

type registryShard struct {
	mx      sync.RWMutex
	buckets map[reflect.Type][]*Registration
}

func newRegistry(shardCount int) *registry {
	if shardCount <= 0 {
		shardCount = defaultRegistryShards
	}
	r := &registry{shards: make([]*registryShard, shardCount)}
	for i := range r.shards {
		r.shards[i] = &registryShard{buckets: make(map[reflect.Type][]*Registration)}
	}
	return r
}

func (r *registry) shardFor(key reflect.Type) *registryShard {
	return r.shards[xxhash.Sum64String(key.String())%uint64(len(r.shards))]
}

func (r *registry) add(reg *Registration) int64 {
	reg.owner = r
	s := r.shardFor(reg.key)
	s.mx.Lock()
	s.buckets[reg.key] = append(s.buckets[reg.key], reg)
	s.mx.Unlock()
	return r.count.Add(1)
}

// snapshot copies the bucket for key so callers can iterate it while the
// registry keeps changing.
func (r *registry) snapshot(key reflect.Type) []*Registration {
	s := r.shardFor(key)
	s.mx.RLock()
	defer s.mx.RUnlock()
	bucket := s.buckets[key]
	if len(bucket) == 0 {
		return nil
	}
	out := make([]*Registration, len(bucket))
	copy(out, bucket)
	return out
}

// markRemoval queues reg for removal. A registration owned by this registry
// stops receiving immediately.
func (r *registry) markRemoval(reg *Registration) {
	if reg.owner == r {
		reg.removed.Store(true)
	}
	r.pendingMu.Lock()
	r.pending = append(r.pending, reg)
	r.pendingMu.Unlock()
}

func (r *registry) hasPending() bool {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	return len(r.pending) > 0
}

// applyRemovals drops every queued registration from its bucket and returns
// one error per request that could not be honoured.
func (r *registry) applyRemovals() (removed int, errs []error) {
	r.pendingMu.Lock()
	pending := r.pending
	r.pending = nil
	r.pendingMu.Unlock()

	for _, reg := range pending {
		if err := r.remove(reg); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errs
}

func (r *registry) remove(reg *Registration) error {
	s := r.shardFor(reg.key)
	s.mx.Lock()
	defer s.mx.Unlock()

	bucket, ok := s.buckets[reg.key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSubscriptionsOfType, reg.key)
	}
	for i, candidate := range bucket {
		if candidate == reg {
			s.buckets[reg.key] = append(bucket[:i], bucket[i+1:]...)
			r.count.Add(-1)
			return nil
		}
	}
	return fmt.Errorf("%w: %s %s", ErrSubscriptionNotFound, reg.key, reg.id)
}

func (r *registry) len() int {
	return int(r.count.Load())
}

// clear drops every bucket and pending removal.
func (r *registry) clear() {
	for _, s := range r.shards {
		s.mx.Lock()
		for _, bucket := range s.buckets {
			for _, reg := range bucket {
				reg.removed.Store(true)
			}
		}
		s.buckets = make(map[reflect.Type][]*Registration)
		s.mx.Unlock()
	}
	r.count.Store(0)
	r.pendingMu.Lock()
	r.pending = nil
	r.pendingMu.Unlock()
}
