// Package board implements the interaction state machines behind the
// kanban, task board and calendar surfaces: drag lifecycles that commit
// through the data access layer, and viewport panning.
package board

import (
	"errors"
	"fmt"
	"sync"

	"trace-crm-sync/pkg/crm"
	"trace-crm-sync/pkg/models"
)

// DragState is the lifecycle of one drag interaction.
type DragState string

const (
	DragIdle           DragState = "idle"
	DragActive         DragState = "dragging"
	DragDroppedValid   DragState = "dropped-valid"
	DragDroppedInvalid DragState = "dropped-invalid"
)

func (s DragState) IsValid() bool {
	switch s {
	case DragIdle, DragActive, DragDroppedValid, DragDroppedInvalid:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the drag has resolved. Terminal states reset
// to idle on the next Start regardless of outcome.
func (s DragState) IsTerminal() bool {
	switch s {
	case DragDroppedValid, DragDroppedInvalid:
		return true
	default:
		return false
	}
}

// ErrNoDrag is returned when Drop or Cancel runs without an active drag.
var ErrNoDrag = errors.New("no active drag")

// LeadDrag drives a kanban card drag. Drop onto a stage of the active
// template commits a stage move; drop anywhere else resolves invalid and
// leaves the lead untouched. Either way the machine is ready for the next
// Start immediately.
type LeadDrag struct {
	crm *crm.Service

	mu        sync.Mutex
	state     DragState
	uid       string
	leadID    string
	fromStage string
}

func NewLeadDrag(crmService *crm.Service) *LeadDrag {
	return &LeadDrag{crm: crmService, state: DragIdle}
}

// State returns the current lifecycle state.
func (d *LeadDrag) State() DragState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Start begins dragging a card. A drag already in flight is cancelled and
// replaced rather than rejected.
func (d *LeadDrag) Start(uid, leadID, fromStage string) error {
	if uid == "" {
		return crm.ErrNotAuthenticated
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = DragActive
	d.uid = uid
	d.leadID = leadID
	d.fromStage = fromStage
	return nil
}

// Drop resolves the drag onto a stage. Dropping back onto the origin stage
// resolves valid without a write.
func (d *LeadDrag) Drop(stage string) error {
	d.mu.Lock()
	if d.state != DragActive {
		d.mu.Unlock()
		return ErrNoDrag
	}
	uid, leadID, fromStage := d.uid, d.leadID, d.fromStage
	d.mu.Unlock()

	template, err := d.crm.ActiveTemplate(uid)
	if err != nil {
		d.resolve(DragDroppedInvalid)
		return err
	}
	if !template.HasStage(stage) {
		d.resolve(DragDroppedInvalid)
		return fmt.Errorf("drop target %q is not a stage of template %s", stage, template.ID)
	}
	if stage == fromStage {
		d.resolve(DragDroppedValid)
		return nil
	}

	if err := d.crm.MoveLead(uid, leadID, stage); err != nil {
		d.resolve(DragDroppedInvalid)
		return err
	}
	d.resolve(DragDroppedValid)
	return nil
}

// Cancel abandons the drag without any write.
func (d *LeadDrag) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = DragIdle
	d.uid, d.leadID, d.fromStage = "", "", ""
}

func (d *LeadDrag) resolve(state DragState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = state
	d.uid, d.leadID, d.fromStage = "", "", ""
}

// TaskDrag drives a task board column drag across the fixed status columns.
type TaskDrag struct {
	crm *crm.Service

	mu         sync.Mutex
	state      DragState
	uid        string
	taskID     string
	fromStatus models.TaskStatus
}

func NewTaskDrag(crmService *crm.Service) *TaskDrag {
	return &TaskDrag{crm: crmService, state: DragIdle}
}

func (d *TaskDrag) State() DragState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *TaskDrag) Start(uid, taskID string, fromStatus models.TaskStatus) error {
	if uid == "" {
		return crm.ErrNotAuthenticated
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = DragActive
	d.uid = uid
	d.taskID = taskID
	d.fromStatus = fromStatus
	return nil
}

// Drop resolves the drag onto a status column.
func (d *TaskDrag) Drop(status models.TaskStatus) error {
	d.mu.Lock()
	if d.state != DragActive {
		d.mu.Unlock()
		return ErrNoDrag
	}
	uid, taskID, fromStatus := d.uid, d.taskID, d.fromStatus
	d.mu.Unlock()

	if !status.IsValid() {
		d.resolve(DragDroppedInvalid)
		return fmt.Errorf("drop target %q is not a task status", status)
	}
	if status == fromStatus {
		d.resolve(DragDroppedValid)
		return nil
	}

	if err := d.crm.MoveTask(uid, taskID, status); err != nil {
		d.resolve(DragDroppedInvalid)
		return err
	}
	d.resolve(DragDroppedValid)
	return nil
}

func (d *TaskDrag) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = DragIdle
	d.uid, d.taskID, d.fromStatus = "", "", ""
}

func (d *TaskDrag) resolve(state DragState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = state
	d.uid, d.taskID, d.fromStatus = "", "", ""
}

// CalendarDrag drives a calendar cell drag. Dropping a task onto a day
// moves its start to that day and shifts the end by the same amount, so
// the task keeps its duration.
type CalendarDrag struct {
	crm *crm.Service

	mu     sync.Mutex
	state  DragState
	uid    string
	taskID string
}

func NewCalendarDrag(crmService *crm.Service) *CalendarDrag {
	return &CalendarDrag{crm: crmService, state: DragIdle}
}

func (d *CalendarDrag) State() DragState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *CalendarDrag) Start(uid, taskID string) error {
	if uid == "" {
		return crm.ErrNotAuthenticated
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = DragActive
	d.uid = uid
	d.taskID = taskID
	return nil
}

// Drop resolves the drag onto a day cell given as a DateLayout date.
func (d *CalendarDrag) Drop(day string) error {
	d.mu.Lock()
	if d.state != DragActive {
		d.mu.Unlock()
		return ErrNoDrag
	}
	uid, taskID := d.uid, d.taskID
	d.mu.Unlock()

	if err := d.crm.RescheduleTask(uid, taskID, day); err != nil {
		d.resolve(DragDroppedInvalid)
		return err
	}
	d.resolve(DragDroppedValid)
	return nil
}

func (d *CalendarDrag) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = DragIdle
	d.uid, d.taskID = "", ""
}

func (d *CalendarDrag) resolve(state DragState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = state
	d.uid, d.taskID = "", ""
}
