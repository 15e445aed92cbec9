// Package sync keeps per-collection view caches in step with the realtime
// store and fans snapshots out to any number of view listeners.
package sync

import (
	"fmt"
	stdsync "sync"

	"trace-crm-sync/pkg/auth"
	"trace-crm-sync/pkg/crm"
	"trace-crm-sync/pkg/models"
	"trace-crm-sync/pkg/store"

	"golang.org/x/exp/slices"
)

// LeadsFunc receives lead snapshots.
type LeadsFunc func([]models.Lead)

// TasksFunc receives task snapshots.
type TasksFunc func([]models.Task)

// SettingsFunc receives workspace settings changes.
type SettingsFunc func(models.WorkspaceSettings)

// ProjectFunc receives project name changes.
type ProjectFunc func(string)

// Synchronizer is the view-state layer between the data access layer and
// the views. It holds one cache per collection, mirrors every store change
// into the caches, and fans each change out to all registered listeners.
// Listeners get their own copies and never share backing arrays with the
// caches or each other.
//
// Attach/Detach follow the session: on sign-out the caches empty and every
// listener receives the empty state, so views render signed-out without
// tearing their subscriptions down.
type Synchronizer struct {
	crm *crm.Service

	mu      stdsync.Mutex
	uid     string
	unsubs  []store.UnsubscribeFunc
	leads   []models.Lead
	tasks   []models.Task
	setting models.WorkspaceSettings
	project string

	leadCallbacks    *CallbackList[LeadsFunc]
	taskCallbacks    *CallbackList[TasksFunc]
	settingCallbacks *CallbackList[SettingsFunc]
	projectCallbacks *CallbackList[ProjectFunc]
}

// NewSynchronizer creates a detached synchronizer with empty caches.
func NewSynchronizer(crmService *crm.Service) *Synchronizer {
	return &Synchronizer{
		crm:              crmService,
		setting:          models.WorkspaceSettings{TemplateID: models.DefaultTemplateID},
		project:          models.DefaultProjectName,
		leadCallbacks:    NewCallbackList[LeadsFunc](),
		taskCallbacks:    NewCallbackList[TasksFunc](),
		settingCallbacks: NewCallbackList[SettingsFunc](),
		projectCallbacks: NewCallbackList[ProjectFunc](),
	}
}

// Bind wires the synchronizer to the session stream. The returned function
// detaches from both the auth service and the store.
func (s *Synchronizer) Bind(authService *auth.Service) func() {
	unsub := authService.OnChange(func(session *auth.Session) {
		s.HandleAuthChange(session)
	})
	return func() {
		unsub()
		s.Detach()
	}
}

// HandleAuthChange re-homes the caches on the new session scope. A nil
// session detaches and broadcasts the empty state.
func (s *Synchronizer) HandleAuthChange(session *auth.Session) {
	if session == nil {
		s.Detach()
		return
	}
	if err := s.Attach(session.UID); err != nil {
		fmt.Printf("❌ Failed to attach synchronizer for %s: %v\n", session.UID, err)
	}
}

// Attach subscribes the caches to the given user scope. Any previous scope
// is detached first. The store delivers the current snapshot synchronously
// on subscribe, so the caches are warm when Attach returns.
func (s *Synchronizer) Attach(uid string) error {
	if uid == "" {
		return crm.ErrNotAuthenticated
	}
	s.Detach()

	s.mu.Lock()
	s.uid = uid
	s.mu.Unlock()

	unsubLeads, err := s.crm.SubscribeLeads(uid, s.applyLeads)
	if err != nil {
		return err
	}
	unsubTasks, err := s.crm.SubscribeTasks(uid, s.applyTasks)
	if err != nil {
		unsubLeads()
		return err
	}
	unsubSettings, err := s.crm.SubscribeSettings(uid, s.applySettings)
	if err != nil {
		unsubLeads()
		unsubTasks()
		return err
	}
	unsubProject, err := s.crm.SubscribeProjectName(uid, s.applyProject)
	if err != nil {
		unsubLeads()
		unsubTasks()
		unsubSettings()
		return err
	}

	s.mu.Lock()
	s.unsubs = []store.UnsubscribeFunc{unsubLeads, unsubTasks, unsubSettings, unsubProject}
	s.mu.Unlock()
	return nil
}

// Detach drops the store subscriptions, empties the caches and broadcasts
// the empty state. Safe to call when already detached.
func (s *Synchronizer) Detach() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.uid = ""
	s.leads = nil
	s.tasks = nil
	s.setting = models.WorkspaceSettings{TemplateID: models.DefaultTemplateID}
	s.project = models.DefaultProjectName
	setting := s.setting
	project := s.project
	s.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	if len(unsubs) == 0 {
		return
	}

	for _, callback := range s.leadCallbacks.Get() {
		callback(nil)
	}
	for _, callback := range s.taskCallbacks.Get() {
		callback(nil)
	}
	for _, callback := range s.settingCallbacks.Get() {
		callback(setting)
	}
	for _, callback := range s.projectCallbacks.Get() {
		callback(project)
	}
}

// UID returns the attached user scope, or empty when detached.
func (s *Synchronizer) UID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uid
}

// Leads returns a copy of the lead cache.
func (s *Synchronizer) Leads() []models.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyLeads(s.leads)
}

// Tasks returns a copy of the task cache.
func (s *Synchronizer) Tasks() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTasks(s.tasks)
}

// Settings returns the cached workspace settings.
func (s *Synchronizer) Settings() models.WorkspaceSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setting
}

// ProjectName returns the cached project display name.
func (s *Synchronizer) ProjectName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project
}

// OnLeads registers a lead listener. It fires once immediately with the
// cached state and then after every change. The returned function detaches
// the listener without touching the store subscription.
func (s *Synchronizer) OnLeads(callback LeadsFunc) func() {
	callbackID := s.leadCallbacks.Add(callback)
	callback(s.Leads())
	return func() {
		s.leadCallbacks.Remove(callbackID)
	}
}

// OnTasks registers a task listener.
func (s *Synchronizer) OnTasks(callback TasksFunc) func() {
	callbackID := s.taskCallbacks.Add(callback)
	callback(s.Tasks())
	return func() {
		s.taskCallbacks.Remove(callbackID)
	}
}

// OnSettings registers a workspace settings listener.
func (s *Synchronizer) OnSettings(callback SettingsFunc) func() {
	callbackID := s.settingCallbacks.Add(callback)
	callback(s.Settings())
	return func() {
		s.settingCallbacks.Remove(callbackID)
	}
}

// OnProjectName registers a project name listener.
func (s *Synchronizer) OnProjectName(callback ProjectFunc) func() {
	callbackID := s.projectCallbacks.Add(callback)
	callback(s.ProjectName())
	return func() {
		s.projectCallbacks.Remove(callbackID)
	}
}

func (s *Synchronizer) applyLeads(leads []models.Lead) {
	s.mu.Lock()
	s.leads = leads
	s.mu.Unlock()
	for _, callback := range s.leadCallbacks.Get() {
		callback(copyLeads(leads))
	}
}

func (s *Synchronizer) applyTasks(tasks []models.Task) {
	s.mu.Lock()
	s.tasks = tasks
	s.mu.Unlock()
	for _, callback := range s.taskCallbacks.Get() {
		callback(copyTasks(tasks))
	}
}

func (s *Synchronizer) applySettings(settings models.WorkspaceSettings) {
	s.mu.Lock()
	s.setting = settings
	s.mu.Unlock()
	for _, callback := range s.settingCallbacks.Get() {
		callback(settings)
	}
}

func (s *Synchronizer) applyProject(name string) {
	s.mu.Lock()
	s.project = name
	s.mu.Unlock()
	for _, callback := range s.projectCallbacks.Get() {
		callback(name)
	}
}

// copyLeads clones the slice and the nested tag slices so no two listeners
// share mutable state.
func copyLeads(leads []models.Lead) []models.Lead {
	out := slices.Clone(leads)
	for i := range out {
		out[i].Tags = slices.Clone(out[i].Tags)
	}
	return out
}

func copyTasks(tasks []models.Task) []models.Task {
	out := slices.Clone(tasks)
	for i := range out {
		out[i].Assignees = slices.Clone(out[i].Assignees)
	}
	return out
}
