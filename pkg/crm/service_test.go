package crm

import (
	"strings"
	"testing"

	"trace-crm-sync/pkg/models"
	"trace-crm-sync/pkg/store"

	"github.com/go-playground/assert/v2"
)

func newTestService() *Service {
	return NewService(store.NewMemoryStore())
}

func TestOperationsRequireAuthentication(t *testing.T) {
	s := newTestService()

	_, err := s.CreateLead("", models.LeadCreateRequest{Name: "Acme"})
	assert.Equal(t, err, ErrNotAuthenticated)

	_, err = s.ListTasks("")
	assert.Equal(t, err, ErrNotAuthenticated)

	err = s.RenameProject("", "Roadmap")
	assert.Equal(t, err, ErrNotAuthenticated)

	_, err = s.ImportLeadsCSV("", strings.NewReader("Name,Company,Email\n"))
	assert.Equal(t, err, ErrNotAuthenticated)
}

func TestCreateLeadDefaultsToFirstStage(t *testing.T) {
	s := newTestService()

	lead, err := s.CreateLead("u1", models.LeadCreateRequest{Name: "Acme", Value: 500})
	assert.Equal(t, err, nil)
	assert.Equal(t, lead.Stage, "New")
	assert.NotEqual(t, lead.ID, "")
}

func TestCreateLeadRejectsBadInput(t *testing.T) {
	s := newTestService()

	_, err := s.CreateLead("u1", models.LeadCreateRequest{Name: "  "})
	assert.NotEqual(t, err, nil)

	_, err = s.CreateLead("u1", models.LeadCreateRequest{Name: "Acme", Value: -1})
	assert.NotEqual(t, err, nil)

	_, err = s.CreateLead("u1", models.LeadCreateRequest{Name: "Acme", Stage: "Imaginary"})
	assert.NotEqual(t, err, nil)
}

func TestUpdateLeadMergesPartialFields(t *testing.T) {
	s := newTestService()

	lead, _ := s.CreateLead("u1", models.LeadCreateRequest{
		Name:    "Acme",
		Company: "Acme Inc",
		Value:   1000,
		Owner:   "dana",
	})

	stage := "Contacted"
	err := s.UpdateLead("u1", lead.ID, models.LeadUpdateRequest{Stage: &stage})
	assert.Equal(t, err, nil)

	got, err := s.GetLead("u1", lead.ID)
	assert.Equal(t, err, nil)
	assert.Equal(t, got.Stage, "Contacted")
	assert.Equal(t, got.Company, "Acme Inc")
	assert.Equal(t, got.Value, 1000.0)
	assert.Equal(t, got.Owner, "dana")
}

func TestMoveLeadValidatesStageAgainstTemplate(t *testing.T) {
	s := newTestService()

	lead, _ := s.CreateLead("u1", models.LeadCreateRequest{Name: "Acme"})

	assert.Equal(t, s.MoveLead("u1", lead.ID, "Won"), nil)
	assert.NotEqual(t, s.MoveLead("u1", lead.ID, "Shipped"), nil)

	got, _ := s.GetLead("u1", lead.ID)
	assert.Equal(t, got.Stage, "Won")
}

func TestTaskUpdatePreservesAssignees(t *testing.T) {
	s := newTestService()

	task, err := s.CreateTask("u1", models.TaskCreateRequest{
		Title:     "Ship importer",
		StartDate: "2024-01-10",
		EndDate:   "2024-01-15",
		Assignees: []string{"ana", "bo"},
	})
	assert.Equal(t, err, nil)

	// An update that says nothing about assignees must not clear them.
	title := "Ship importer v2"
	err = s.UpdateTask("u1", task.ID, models.TaskUpdateRequest{Title: &title})
	assert.Equal(t, err, nil)

	got, _ := s.GetTask("u1", task.ID)
	assert.Equal(t, got.Title, "Ship importer v2")
	assert.Equal(t, got.Assignees, []string{"ana", "bo"})

	// An explicit empty list does clear them.
	empty := []string{}
	err = s.UpdateTask("u1", task.ID, models.TaskUpdateRequest{Assignees: &empty})
	assert.Equal(t, err, nil)
	got, _ = s.GetTask("u1", task.ID)
	assert.Equal(t, len(got.Assignees), 0)
}

func TestTaskSpanValidation(t *testing.T) {
	s := newTestService()

	_, err := s.CreateTask("u1", models.TaskCreateRequest{
		Title:     "Backwards",
		StartDate: "2024-03-10",
		EndDate:   "2024-03-01",
	})
	assert.NotEqual(t, err, nil)

	task, err := s.CreateTask("u1", models.TaskCreateRequest{
		Title:     "Fine",
		StartDate: "2024-03-01",
		EndDate:   "2024-03-10",
	})
	assert.Equal(t, err, nil)

	// Moving only the start past the stored end is rejected too.
	start := "2024-03-20"
	err = s.UpdateTask("u1", task.ID, models.TaskUpdateRequest{StartDate: &start})
	assert.NotEqual(t, err, nil)
}

func TestRescheduleKeepsDuration(t *testing.T) {
	s := newTestService()

	task, _ := s.CreateTask("u1", models.TaskCreateRequest{
		Title:     "Sprint work",
		StartDate: "2024-01-10",
		EndDate:   "2024-01-15",
	})

	err := s.RescheduleTask("u1", task.ID, "2024-02-01")
	assert.Equal(t, err, nil)

	got, _ := s.GetTask("u1", task.ID)
	assert.Equal(t, got.StartDate, "2024-02-01")
	assert.Equal(t, got.EndDate, "2024-02-06")
}

func TestWorkspaceDefaultsAndTemplateSwitch(t *testing.T) {
	s := newTestService()

	settings, err := s.Settings("u1")
	assert.Equal(t, err, nil)
	assert.Equal(t, settings.TemplateID, models.DefaultTemplateID)

	name, err := s.ProjectName("u1")
	assert.Equal(t, err, nil)
	assert.Equal(t, name, models.DefaultProjectName)

	assert.NotEqual(t, s.SetTemplate("u1", "imaginary"), nil)
	assert.Equal(t, s.SetTemplate("u1", "freelance"), nil)

	template, err := s.ActiveTemplate("u1")
	assert.Equal(t, err, nil)
	assert.Equal(t, template.ID, "freelance")
	assert.Equal(t, template.FirstStage().ID, "Inquiry")

	assert.Equal(t, s.RenameProject("u1", "  Launch Plan  "), nil)
	name, _ = s.ProjectName("u1")
	assert.Equal(t, name, "Launch Plan")
}
