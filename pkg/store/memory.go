package store

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// userTree is one user's subtree: collection -> record id -> record.
type userTree = map[string]map[string]Record

// subscription is one registered snapshot listener. closed flips when the
// unsubscribe function runs so an in-flight delivery can skip it.
type subscription struct {
	callback SnapshotFunc
	closed   atomic.Bool
}

// MemoryStore is the in-process realtime store. All user subtrees live in
// memory; an optional Persister makes mutations durable. Snapshot delivery is
// synchronous and ordered: a subscriber never observes an older snapshot
// after a newer one.
type MemoryStore struct {
	persister Persister
	debug     bool

	// notifyMu is held across mutate+deliver so deliveries cannot overtake
	// each other. stateMu alone guards the tree for reads.
	notifyMu sync.Mutex
	stateMu  sync.Mutex

	data    map[string]userTree
	loaded  map[string]bool
	subs    map[string][]*subscription // keyed by uid + "/" + collection
	entropy *ulid.MonotonicEntropy
}

// NewMemoryStore creates a store without durability (used by tests and by
// the client-core packages directly).
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithPersister(nil, false)
}

// NewMemoryStoreWithPersister creates a store backed by the given persister.
func NewMemoryStoreWithPersister(p Persister, debug bool) *MemoryStore {
	return &MemoryStore{
		persister: p,
		debug:     debug,
		data:      map[string]userTree{},
		loaded:    map[string]bool{},
		subs:      map[string][]*subscription{},
		entropy:   ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// Push appends a record under a collection and returns the generated id.
// Ids are monotonic ULIDs so lexicographic order is insertion order.
func (s *MemoryStore) Push(path string, fields Record) (string, error) {
	uid, collection, _, err := splitPath(path, false)
	if err != nil {
		return "", err
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.stateMu.Lock()
	s.ensureLoaded(uid)
	id := ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
	s.collectionLocked(uid, collection)[id] = copyRecord(fields)
	persistErr := s.persistLocked(uid)
	snap, targets := s.deliveryLocked(uid, collection)
	s.stateMu.Unlock()

	s.deliver(snap, targets)
	if persistErr != nil {
		return id, persistErr
	}
	return id, nil
}

// Update shallow-merges fields into the record at the target path, creating
// the record if it does not exist. Fields absent from the merge are kept.
func (s *MemoryStore) Update(path string, fields Record) error {
	uid, collection, recordID, err := splitPath(path, true)
	if err != nil {
		return err
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.stateMu.Lock()
	s.ensureLoaded(uid)
	coll := s.collectionLocked(uid, collection)
	record, ok := coll[recordID]
	if !ok {
		record = Record{}
		coll[recordID] = record
	}
	for k, v := range fields {
		record[k] = copyValue(v)
	}
	persistErr := s.persistLocked(uid)
	snap, targets := s.deliveryLocked(uid, collection)
	s.stateMu.Unlock()

	s.deliver(snap, targets)
	return persistErr
}

// Remove deletes the record subtree. Removing a missing record is not an
// error and notifies nobody.
func (s *MemoryStore) Remove(path string) error {
	uid, collection, recordID, err := splitPath(path, true)
	if err != nil {
		return err
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.stateMu.Lock()
	s.ensureLoaded(uid)
	coll, ok := s.data[uid][collection]
	if !ok {
		s.stateMu.Unlock()
		return nil
	}
	if _, exists := coll[recordID]; !exists {
		s.stateMu.Unlock()
		return nil
	}
	delete(coll, recordID)
	persistErr := s.persistLocked(uid)
	snap, targets := s.deliveryLocked(uid, collection)
	s.stateMu.Unlock()

	s.deliver(snap, targets)
	return persistErr
}

// Get returns the current collection snapshot without subscribing.
func (s *MemoryStore) Get(path string) (Snapshot, error) {
	uid, collection, _, err := splitPath(path, false)
	if err != nil {
		return nil, err
	}
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.ensureLoaded(uid)
	return s.snapshotLocked(uid, collection), nil
}

// Subscribe registers a snapshot listener on a collection. The callback runs
// once synchronously with the current snapshot before Subscribe returns.
func (s *MemoryStore) Subscribe(path string, callback SnapshotFunc) (UnsubscribeFunc, error) {
	uid, collection, _, err := splitPath(path, false)
	if err != nil {
		return nil, err
	}
	key := uid + "/" + collection
	sub := &subscription{callback: callback}

	s.notifyMu.Lock()
	s.stateMu.Lock()
	s.ensureLoaded(uid)
	s.subs[key] = append(s.subs[key], sub)
	snap := s.snapshotLocked(uid, collection)
	s.stateMu.Unlock()

	callback(snap)
	s.notifyMu.Unlock()

	return func() {
		if sub.closed.CompareAndSwap(false, true) {
			s.stateMu.Lock()
			subs := s.subs[key]
			if i := slices.Index(subs, sub); 0 <= i {
				s.subs[key] = slices.Delete(slices.Clone(subs), i, i+1)
			}
			s.stateMu.Unlock()
		}
	}, nil
}

// Close releases the persister.
func (s *MemoryStore) Close() error {
	if s.persister != nil {
		return s.persister.Close()
	}
	return nil
}

// ensureLoaded hydrates a user subtree from the persister on first touch.
// Must be called with stateMu held.
func (s *MemoryStore) ensureLoaded(uid string) {
	if s.loaded[uid] {
		return
	}
	s.loaded[uid] = true
	if s.persister == nil {
		return
	}
	tree, err := s.persister.LoadUser(uid)
	if err != nil {
		fmt.Printf("⚠️  Failed to load persisted data for user %s: %v\n", uid, err)
		return
	}
	if tree != nil {
		s.data[uid] = tree
	}
	if s.debug {
		fmt.Printf("📦 Hydrated %d collection(s) for user %s\n", len(tree), uid)
	}
}

// collectionLocked returns the mutable record map for a collection, creating
// intermediate nodes as needed. Must be called with stateMu held.
func (s *MemoryStore) collectionLocked(uid, collection string) map[string]Record {
	tree, ok := s.data[uid]
	if !ok {
		tree = userTree{}
		s.data[uid] = tree
	}
	coll, ok := tree[collection]
	if !ok {
		coll = map[string]Record{}
		tree[collection] = coll
	}
	return coll
}

// snapshotLocked builds a deep-copied snapshot ordered by record id.
func (s *MemoryStore) snapshotLocked(uid, collection string) Snapshot {
	coll := s.data[uid][collection]
	ids := maps.Keys(coll)
	slices.Sort(ids)
	snap := make(Snapshot, 0, len(ids))
	for _, id := range ids {
		snap = append(snap, Entry{ID: id, Fields: copyRecord(coll[id])})
	}
	return snap
}

// deliveryLocked captures the snapshot and subscriber list for a collection.
func (s *MemoryStore) deliveryLocked(uid, collection string) (Snapshot, []*subscription) {
	key := uid + "/" + collection
	return s.snapshotLocked(uid, collection), slices.Clone(s.subs[key])
}

// deliver invokes subscribers outside the state lock, each with its own copy.
func (s *MemoryStore) deliver(snap Snapshot, targets []*subscription) {
	for _, sub := range targets {
		if sub.closed.Load() {
			continue
		}
		sub.callback(copySnapshot(snap))
	}
}

func copySnapshot(snap Snapshot) Snapshot {
	out := make(Snapshot, len(snap))
	for i, e := range snap {
		out[i] = Entry{ID: e.ID, Fields: copyRecord(e.Fields)}
	}
	return out
}

// persistLocked writes the user subtree through the persister. The in-memory
// state stays authoritative for subscribers even when durability fails; the
// error is surfaced to the mutating caller.
func (s *MemoryStore) persistLocked(uid string) error {
	if s.persister == nil {
		return nil
	}
	tree := userTree{}
	for coll, records := range s.data[uid] {
		copied := make(map[string]Record, len(records))
		for id, r := range records {
			copied[id] = copyRecord(r)
		}
		tree[coll] = copied
	}
	if err := s.persister.SaveUser(uid, tree); err != nil {
		fmt.Printf("❌ Failed to persist data for user %s: %v\n", uid, err)
		return fmt.Errorf("persist user %s: %w", uid, err)
	}
	return nil
}
