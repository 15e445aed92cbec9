package sync

import (
	stdsync "sync"

	"golang.org/x/exp/slices"
)

type callbackEntry[T any] struct {
	callbackID int
	callback   T
}

// CallbackList is an id-keyed listener registry. The entry slice is copied
// on every update so Get returns a stable snapshot that can be iterated
// without holding the lock while callbacks run.
type CallbackList[T any] struct {
	mutex   stdsync.Mutex
	nextID  int
	entries []callbackEntry[T]
}

func NewCallbackList[T any]() *CallbackList[T] {
	return &CallbackList[T]{}
}

// Add registers a callback and returns its id for Remove.
func (l *CallbackList[T]) Add(callback T) int {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.nextID += 1
	nextEntries := slices.Clone(l.entries)
	l.entries = append(nextEntries, callbackEntry[T]{
		callbackID: l.nextID,
		callback:   callback,
	})
	return l.nextID
}

// Remove detaches a callback by id. Removing an unknown id is harmless.
func (l *CallbackList[T]) Remove(callbackID int) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	i := slices.IndexFunc(l.entries, func(e callbackEntry[T]) bool {
		return e.callbackID == callbackID
	})
	if i < 0 {
		// not present
		return
	}
	nextEntries := slices.Clone(l.entries)
	l.entries = slices.Delete(nextEntries, i, i+1)
}

// Get returns the registered callbacks in registration order.
func (l *CallbackList[T]) Get() []T {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	callbacks := make([]T, len(l.entries))
	for i, e := range l.entries {
		callbacks[i] = e.callback
	}
	return callbacks
}

// Len reports the number of registered callbacks.
func (l *CallbackList[T]) Len() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return len(l.entries)
}
