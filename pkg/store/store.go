package store

import (
	"errors"
	"fmt"
	"strings"
)

// The realtime store is addressed by paths of the form
//
//	users/{uid}/{collection}[/{recordID}]
//
// Push appends under a collection and returns the generated record id.
// Update shallow-merges fields into the record at the target path, creating
// it if absent. Remove deletes the record subtree and is idempotent.
// Subscribe delivers the full collection snapshot once immediately and again
// after every change, and returns an unsubscribe function.
//
// Singleton records (workspace settings, project metadata) live in a
// collection with a single fixed record id.

// Record holds one record's fields. Values are JSON-shaped: strings, numbers,
// bools, []interface{} and nested maps.
type Record = map[string]interface{}

// Entry pairs a record with its id inside a snapshot.
type Entry struct {
	ID     string
	Fields Record
}

// Snapshot is a full point-in-time copy of a collection, ordered by record id.
// Push ids are ULIDs, so id order is insertion order.
type Snapshot []Entry

// SnapshotFunc receives collection snapshots. The slice and its records are
// the subscriber's own copy and may be mutated freely.
type SnapshotFunc func(Snapshot)

// UnsubscribeFunc detaches a single subscriber. Calling it more than once is
// harmless. After it returns no further callbacks fire for that subscriber.
type UnsubscribeFunc func()

// RealtimeStore is the remote collection store boundary.
type RealtimeStore interface {
	Push(path string, fields Record) (string, error)
	Update(path string, fields Record) error
	Remove(path string) error
	Get(path string) (Snapshot, error)
	Subscribe(path string, callback SnapshotFunc) (UnsubscribeFunc, error)
	Close() error
}

var (
	// ErrInvalidPath is returned for paths that do not match the
	// users/{uid}/{collection}[/{recordID}] shape required by the operation.
	ErrInvalidPath = errors.New("invalid store path")
)

// UserPath builds the scope root for a user.
func UserPath(uid string) string {
	return "users/" + uid
}

// CollectionPath builds the path for a user-scoped collection.
func CollectionPath(uid, collection string) string {
	return fmt.Sprintf("users/%s/%s", uid, collection)
}

// RecordPath builds the path for a record inside a user-scoped collection.
func RecordPath(uid, collection, recordID string) string {
	return fmt.Sprintf("users/%s/%s/%s", uid, collection, recordID)
}

// splitPath validates and splits a path. wantRecord selects between the
// collection form (3 segments) and the record form (4 segments).
func splitPath(path string, wantRecord bool) (uid, collection, recordID string, err error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 || parts[0] != "users" || parts[1] == "" || parts[2] == "" {
		err = fmt.Errorf("%w: %q", ErrInvalidPath, path)
		return
	}
	uid, collection = parts[1], parts[2]
	if wantRecord {
		if len(parts) != 4 || parts[3] == "" {
			err = fmt.Errorf("%w: %q (record path required)", ErrInvalidPath, path)
			return
		}
		recordID = parts[3]
		return
	}
	if len(parts) != 3 {
		err = fmt.Errorf("%w: %q (collection path required)", ErrInvalidPath, path)
	}
	return
}

// copyRecord deep-copies a record so subscribers can never corrupt the cache.
func copyRecord(r Record) Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch vv := v.(type) {
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, e := range vv {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		out := make([]string, len(vv))
		copy(out, vv)
		return out
	case map[string]interface{}:
		return copyRecord(vv)
	default:
		return v
	}
}
