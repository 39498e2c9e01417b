package memo

import (
	"runtime"
	"sync"
	"weak"

	"github.com/on-the-ground/memo_ive_go/memo/internal/partition"
)

// entry is one slot of the table.
type entry struct {
	rec     *record
	cleanup runtime.Cleanup
}

type shard struct {
	sync.RWMutex
	entries map[weak.Pointer[identity]]*entry
}

// table maps callable identities to their single record. Keys are weak, so the
// table never keeps a callable alive.
type table struct {
	shards []*shard
}

// reclaimKey is handed to the runtime cleanup of an identity. It must not
// reference the identity itself, and holds the cache weakly.
type reclaimKey struct {
	cache weak.Pointer[Cache]
	ptr   weak.Pointer[identity]
	id    string
}

func newTable(numShards int) *table {
	shards := make([]*shard, numShards)
	for i := range shards {
		shards[i] = &shard{entries: make(map[weak.Pointer[identity]]*entry)}
	}
	return &table{shards: shards}
}

func (t *table) shardOf(id string) *shard {
	return t.shards[partition.Index(id, len(t.shards))]
}

func (t *table) len() int {
	n := 0
	for _, s := range t.shards {
		s.RLock()
		n += len(s.entries)
		s.RUnlock()
	}
	return n
}

// stopAll cancels the reclamation hooks of every entry and returns how many
// entries the table held.
func (t *table) stopAll() int {
	n := 0
	for _, s := range t.shards {
		s.Lock()
		for _, e := range s.entries {
			e.cleanup.Stop()
		}
		n += len(s.entries)
		s.Unlock()
	}
	return n
}

func (s *shard) lookup(key weak.Pointer[identity]) *record {
	s.RLock()
	defer s.RUnlock()
	if e, ok := s.entries[key]; ok {
		return e.rec
	}
	return nil
}

// store replaces or inserts the record of key. onInsert runs under the shard lock
// when the key had no entry, and returns the reclamation hook of the new entry,
// which store hands back with inserted set.
func (s *shard) store(key weak.Pointer[identity], rec *record, onInsert func() runtime.Cleanup) (cleanup runtime.Cleanup, inserted bool) {
	s.Lock()
	defer s.Unlock()
	if e, ok := s.entries[key]; ok {
		e.rec = rec
		return e.cleanup, false
	}
	e := &entry{rec: rec, cleanup: onInsert()}
	s.entries[key] = e
	return e.cleanup, true
}

// swap replaces the record of key with next only while it is still prev.
func (s *shard) swap(key weak.Pointer[identity], prev, next *record) bool {
	s.Lock()
	defer s.Unlock()
	if e, ok := s.entries[key]; ok && e.rec == prev {
		e.rec = next
		return true
	}
	return false
}

// delete removes key and reports whether it was present.
// stop cancels the reclamation hook of the removed entry.
func (s *shard) delete(key weak.Pointer[identity], stop bool) bool {
	s.Lock()
	defer s.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	delete(s.entries, key)
	if stop {
		e.cleanup.Stop()
	}
	return true
}
