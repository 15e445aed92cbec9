package board

import (
	"testing"

	"trace-crm-sync/pkg/crm"
	"trace-crm-sync/pkg/models"
	"trace-crm-sync/pkg/store"

	"github.com/go-playground/assert/v2"
)

func newTestCRM() *crm.Service {
	return crm.NewService(store.NewMemoryStore())
}

func TestLeadDragValidDrop(t *testing.T) {
	crmService := newTestCRM()
	lead, _ := crmService.CreateLead("u1", models.LeadCreateRequest{Name: "Acme"})

	drag := NewLeadDrag(crmService)
	assert.Equal(t, drag.State(), DragIdle)

	assert.Equal(t, drag.Start("u1", lead.ID, lead.Stage), nil)
	assert.Equal(t, drag.State(), DragActive)

	assert.Equal(t, drag.Drop("Qualified"), nil)
	assert.Equal(t, drag.State(), DragDroppedValid)

	got, _ := crmService.GetLead("u1", lead.ID)
	assert.Equal(t, got.Stage, "Qualified")
}

func TestLeadDragInvalidDropLeavesLeadUntouched(t *testing.T) {
	crmService := newTestCRM()
	lead, _ := crmService.CreateLead("u1", models.LeadCreateRequest{Name: "Acme"})

	drag := NewLeadDrag(crmService)
	drag.Start("u1", lead.ID, lead.Stage)

	err := drag.Drop("NotAStage")
	assert.NotEqual(t, err, nil)
	assert.Equal(t, drag.State(), DragDroppedInvalid)

	got, _ := crmService.GetLead("u1", lead.ID)
	assert.Equal(t, got.Stage, "New")

	// The machine accepts a fresh drag regardless of the failed one.
	assert.Equal(t, drag.Start("u1", lead.ID, got.Stage), nil)
	assert.Equal(t, drag.Drop("Contacted"), nil)
	got, _ = crmService.GetLead("u1", lead.ID)
	assert.Equal(t, got.Stage, "Contacted")
}

func TestLeadDragDropBackOntoOrigin(t *testing.T) {
	crmService := newTestCRM()
	lead, _ := crmService.CreateLead("u1", models.LeadCreateRequest{Name: "Acme"})

	drag := NewLeadDrag(crmService)
	drag.Start("u1", lead.ID, "New")
	assert.Equal(t, drag.Drop("New"), nil)
	assert.Equal(t, drag.State(), DragDroppedValid)
}

func TestLeadDragCancel(t *testing.T) {
	crmService := newTestCRM()
	lead, _ := crmService.CreateLead("u1", models.LeadCreateRequest{Name: "Acme"})

	drag := NewLeadDrag(crmService)
	drag.Start("u1", lead.ID, "New")
	drag.Cancel()
	assert.Equal(t, drag.State(), DragIdle)

	// A drop after cancel is rejected without writing anything.
	assert.Equal(t, drag.Drop("Won"), ErrNoDrag)
	got, _ := crmService.GetLead("u1", lead.ID)
	assert.Equal(t, got.Stage, "New")
}

func TestTaskDragAcrossColumns(t *testing.T) {
	crmService := newTestCRM()
	task, _ := crmService.CreateTask("u1", models.TaskCreateRequest{Title: "Ship it"})

	drag := NewTaskDrag(crmService)
	drag.Start("u1", task.ID, task.Status)

	assert.Equal(t, drag.Drop(models.TaskInReview), nil)
	assert.Equal(t, drag.State(), DragDroppedValid)

	got, _ := crmService.GetTask("u1", task.ID)
	assert.Equal(t, got.Status, models.TaskInReview)

	drag.Start("u1", task.ID, got.Status)
	assert.NotEqual(t, drag.Drop(models.TaskStatus("archived")), nil)
	assert.Equal(t, drag.State(), DragDroppedInvalid)
	got, _ = crmService.GetTask("u1", task.ID)
	assert.Equal(t, got.Status, models.TaskInReview)
}

func TestCalendarDragPreservesDuration(t *testing.T) {
	crmService := newTestCRM()
	task, _ := crmService.CreateTask("u1", models.TaskCreateRequest{
		Title:     "Sprint work",
		StartDate: "2024-01-10",
		EndDate:   "2024-01-15",
	})

	drag := NewCalendarDrag(crmService)
	drag.Start("u1", task.ID)
	assert.Equal(t, drag.Drop("2024-02-01"), nil)
	assert.Equal(t, drag.State(), DragDroppedValid)

	got, _ := crmService.GetTask("u1", task.ID)
	assert.Equal(t, got.StartDate, "2024-02-01")
	assert.Equal(t, got.EndDate, "2024-02-06")
}

func TestCalendarDragInvalidDay(t *testing.T) {
	crmService := newTestCRM()
	task, _ := crmService.CreateTask("u1", models.TaskCreateRequest{
		Title:     "Sprint work",
		StartDate: "2024-01-10",
		EndDate:   "2024-01-15",
	})

	drag := NewCalendarDrag(crmService)
	drag.Start("u1", task.ID)
	assert.NotEqual(t, drag.Drop("02/01/2024"), nil)
	assert.Equal(t, drag.State(), DragDroppedInvalid)

	got, _ := crmService.GetTask("u1", task.ID)
	assert.Equal(t, got.StartDate, "2024-01-10")
	assert.Equal(t, got.EndDate, "2024-01-15")
}

func TestDragStateClassification(t *testing.T) {
	assert.Equal(t, DragIdle.IsValid(), true)
	assert.Equal(t, DragState("floating").IsValid(), false)

	assert.Equal(t, DragIdle.IsTerminal(), false)
	assert.Equal(t, DragActive.IsTerminal(), false)
	assert.Equal(t, DragDroppedValid.IsTerminal(), true)
	assert.Equal(t, DragDroppedInvalid.IsTerminal(), true)
}

func TestPannerMovesViewportOnly(t *testing.T) {
	p := NewPanner()

	// Moves before Begin are ignored.
	p.Move(50, 50)
	x, y := p.Offset()
	assert.Equal(t, x, 0.0)
	assert.Equal(t, y, 0.0)

	p.Begin(100, 40)
	p.Move(130, 55)
	x, y = p.Offset()
	assert.Equal(t, x, 30.0)
	assert.Equal(t, y, 15.0)

	p.End()
	assert.Equal(t, p.Active(), false)

	// A second pan accumulates on top of the kept offset.
	p.Begin(0, 0)
	p.Move(-10, 5)
	x, y = p.Offset()
	assert.Equal(t, x, 20.0)
	assert.Equal(t, y, 20.0)

	p.Reset()
	x, y = p.Offset()
	assert.Equal(t, x, 0.0)
	assert.Equal(t, y, 0.0)
}
