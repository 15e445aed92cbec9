package crm

import (
	"errors"
	"fmt"

	"trace-crm-sync/pkg/store"
)

// Collection names under each user scope. Settings and project metadata are
// singleton collections holding one record with a fixed id.
const (
	LeadsCollection    = "leads"
	TasksCollection    = "tasks"
	SettingsCollection = "settings"
	ProjectCollection  = "project"

	singletonID = "current"
)

var (
	// ErrNotAuthenticated is returned when an operation runs without a user
	// scope. Callers treat this as a sign-in prompt, not a retry.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotFound is returned when a record id does not exist in the scope.
	ErrNotFound = errors.New("record not found")
)

// Service is the domain data access layer: validated lead/task/workspace
// operations on top of the path-addressed store. Every method takes the
// caller's user id and fails with ErrNotAuthenticated when it is empty, so
// the same service backs both JWT-authenticated handlers and the realtime
// session surface.
type Service struct {
	store store.RealtimeStore
}

// NewService wraps the shared store.
func NewService(st store.RealtimeStore) *Service {
	return &Service{store: st}
}

// Store exposes the underlying realtime store for subscription wiring.
func (s *Service) Store() store.RealtimeStore {
	return s.store
}

func requireUID(uid string) error {
	if uid == "" {
		return ErrNotAuthenticated
	}
	return nil
}

// writeErr wraps store write failures with the failed operation. The store
// keeps its in-memory state authoritative on persistence errors, so these
// surface to the caller without rolling anything back.
func writeErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
