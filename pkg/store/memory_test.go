package store

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestPushAssignsOrderedIds(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	var ids []string
	for i := 0; i < 10; i += 1 {
		id, err := s.Push("users/u1/leads", Record{"name": "lead"})
		assert.Equal(t, err, nil)
		ids = append(ids, id)
	}

	snap, err := s.Get("users/u1/leads")
	assert.Equal(t, err, nil)
	assert.Equal(t, len(snap), 10)
	for i, entry := range snap {
		assert.Equal(t, entry.ID, ids[i])
	}
}

func TestUserScopesAreIsolated(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	_, err := s.Push("users/u1/leads", Record{"name": "alpha"})
	assert.Equal(t, err, nil)
	_, err = s.Push("users/u2/leads", Record{"name": "beta"})
	assert.Equal(t, err, nil)

	snap1, _ := s.Get("users/u1/leads")
	snap2, _ := s.Get("users/u2/leads")
	assert.Equal(t, len(snap1), 1)
	assert.Equal(t, len(snap2), 1)
	assert.Equal(t, snap1[0].Fields["name"], "alpha")
	assert.Equal(t, snap2[0].Fields["name"], "beta")
}

func TestUpdateShallowMerges(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	id, err := s.Push("users/u1/leads", Record{
		"name":  "Acme",
		"stage": "New",
		"value": 100.0,
	})
	assert.Equal(t, err, nil)

	err = s.Update("users/u1/leads/"+id, Record{"stage": "Contacted"})
	assert.Equal(t, err, nil)

	snap, _ := s.Get("users/u1/leads")
	assert.Equal(t, len(snap), 1)
	assert.Equal(t, snap[0].Fields["stage"], "Contacted")
	assert.Equal(t, snap[0].Fields["name"], "Acme")
	assert.Equal(t, snap[0].Fields["value"], 100.0)
}

func TestUpdateCreatesMissingRecord(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	err := s.Update("users/u1/settings/current", Record{"template_id": "sales"})
	assert.Equal(t, err, nil)

	snap, _ := s.Get("users/u1/settings")
	assert.Equal(t, len(snap), 1)
	assert.Equal(t, snap[0].ID, "current")
	assert.Equal(t, snap[0].Fields["template_id"], "sales")
}

func TestRemoveIsIdempotentAndSilentWhenMissing(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	id, _ := s.Push("users/u1/leads", Record{"name": "Acme"})

	notifications := 0
	unsub, err := s.Subscribe("users/u1/leads", func(snap Snapshot) {
		notifications += 1
	})
	assert.Equal(t, err, nil)
	defer unsub()
	assert.Equal(t, notifications, 1) // initial snapshot

	assert.Equal(t, s.Remove("users/u1/leads/"+id), nil)
	assert.Equal(t, notifications, 2)

	// Removing again: still success, no notification.
	assert.Equal(t, s.Remove("users/u1/leads/"+id), nil)
	assert.Equal(t, notifications, 2)

	assert.Equal(t, s.Remove("users/u1/leads/never-existed"), nil)
	assert.Equal(t, notifications, 2)
}

func TestSubscribeDeliversSnapshotSynchronously(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	s.Push("users/u1/leads", Record{"name": "Acme"})

	delivered := false
	unsub, err := s.Subscribe("users/u1/leads", func(snap Snapshot) {
		delivered = true
		assert.Equal(t, len(snap), 1)
	})
	assert.Equal(t, err, nil)
	defer unsub()

	// The first snapshot arrived before Subscribe returned.
	assert.Equal(t, delivered, true)
}

func TestSnapshotsAreMonotonic(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	var sizes []int
	unsub, _ := s.Subscribe("users/u1/leads", func(snap Snapshot) {
		sizes = append(sizes, len(snap))
	})
	defer unsub()

	for i := 0; i < 20; i += 1 {
		s.Push("users/u1/leads", Record{"n": float64(i)})
	}

	assert.Equal(t, len(sizes), 21)
	for i, size := range sizes {
		assert.Equal(t, size, i)
	}
}

func TestUnsubscribeIsSynchronousAndFinal(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	count := 0
	unsub, _ := s.Subscribe("users/u1/leads", func(snap Snapshot) {
		count += 1
	})
	assert.Equal(t, count, 1)

	s.Push("users/u1/leads", Record{"name": "one"})
	assert.Equal(t, count, 2)

	unsub()
	s.Push("users/u1/leads", Record{"name": "two"})
	assert.Equal(t, count, 2)

	// Calling unsubscribe again is harmless.
	unsub()
	s.Push("users/u1/leads", Record{"name": "three"})
	assert.Equal(t, count, 2)
}

func TestSubscribersGetIndependentCopies(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	s.Push("users/u1/leads", Record{"name": "Acme", "tags": []interface{}{"vip"}})

	var first Snapshot
	unsub, _ := s.Subscribe("users/u1/leads", func(snap Snapshot) {
		if first == nil {
			first = snap
		}
	})
	defer unsub()

	// Corrupt the delivered copy, then confirm the store is untouched.
	first[0].Fields["name"] = "mutated"
	first[0].Fields["tags"].([]interface{})[0] = "mutated"

	snap, _ := s.Get("users/u1/leads")
	assert.Equal(t, snap[0].Fields["name"], "Acme")
	assert.Equal(t, snap[0].Fields["tags"].([]interface{})[0], "vip")
}

func TestInvalidPaths(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	_, err := s.Push("leads", Record{})
	assert.NotEqual(t, err, nil)

	// Update requires a record path.
	err = s.Update("users/u1/leads", Record{"a": 1})
	assert.NotEqual(t, err, nil)

	// Push takes a collection path, not a record path.
	_, err = s.Push("users/u1/leads/some-id", Record{})
	assert.NotEqual(t, err, nil)

	_, err = s.Get("users//leads")
	assert.NotEqual(t, err, nil)
}

func TestFilePersisterRoundTrip(t *testing.T) {
	dir := t.TempDir()

	p := NewFilePersister(dir)
	s := NewMemoryStoreWithPersister(p, false)
	id, err := s.Push("users/u1/leads", Record{"name": "Acme", "value": 250.0})
	assert.Equal(t, err, nil)
	assert.Equal(t, s.Close(), nil)

	// A fresh store hydrates the subtree lazily from disk.
	s2 := NewMemoryStoreWithPersister(NewFilePersister(dir), false)
	defer s2.Close()
	snap, err := s2.Get("users/u1/leads")
	assert.Equal(t, err, nil)
	assert.Equal(t, len(snap), 1)
	assert.Equal(t, snap[0].ID, id)
	assert.Equal(t, snap[0].Fields["name"], "Acme")
}
