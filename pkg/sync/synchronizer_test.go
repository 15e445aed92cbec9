package sync

import (
	"testing"

	"trace-crm-sync/pkg/crm"
	"trace-crm-sync/pkg/models"
	"trace-crm-sync/pkg/store"

	"github.com/go-playground/assert/v2"
)

func newTestSynchronizer() (*Synchronizer, *crm.Service) {
	crmService := crm.NewService(store.NewMemoryStore())
	return NewSynchronizer(crmService), crmService
}

func TestCallbackListAddRemove(t *testing.T) {
	list := NewCallbackList[func(int)]()

	got := []int{}
	id1 := list.Add(func(v int) { got = append(got, v) })
	id2 := list.Add(func(v int) { got = append(got, v*10) })
	assert.Equal(t, list.Len(), 2)

	for _, callback := range list.Get() {
		callback(1)
	}
	assert.Equal(t, got, []int{1, 10})

	list.Remove(id1)
	assert.Equal(t, list.Len(), 1)
	for _, callback := range list.Get() {
		callback(2)
	}
	assert.Equal(t, got, []int{1, 10, 20})

	// Unknown and repeated removals are harmless.
	list.Remove(id1)
	list.Remove(99)
	list.Remove(id2)
	assert.Equal(t, list.Len(), 0)
}

func TestAttachWarmsCachesSynchronously(t *testing.T) {
	s, crmService := newTestSynchronizer()

	crmService.CreateLead("u1", models.LeadCreateRequest{Name: "Acme"})
	crmService.CreateTask("u1", models.TaskCreateRequest{Title: "Ship it"})

	assert.Equal(t, s.Attach("u1"), nil)
	assert.Equal(t, len(s.Leads()), 1)
	assert.Equal(t, len(s.Tasks()), 1)
	assert.Equal(t, s.Settings().TemplateID, models.DefaultTemplateID)
	assert.Equal(t, s.ProjectName(), models.DefaultProjectName)
}

func TestFanOutToMultipleListeners(t *testing.T) {
	s, crmService := newTestSynchronizer()
	assert.Equal(t, s.Attach("u1"), nil)

	var a, b [][]models.Lead
	unsubA := s.OnLeads(func(leads []models.Lead) { a = append(a, leads) })
	unsubB := s.OnLeads(func(leads []models.Lead) { b = append(b, leads) })
	defer unsubA()
	defer unsubB()

	// Both got the warm snapshot on registration.
	assert.Equal(t, len(a), 1)
	assert.Equal(t, len(b), 1)

	crmService.CreateLead("u1", models.LeadCreateRequest{Name: "Acme"})
	assert.Equal(t, len(a), 2)
	assert.Equal(t, len(b), 2)
	assert.Equal(t, a[1][0].Name, "Acme")
	assert.Equal(t, b[1][0].Name, "Acme")

	// Listeners never share backing arrays.
	a[1][0].Name = "mutated"
	assert.Equal(t, b[1][0].Name, "Acme")

	unsubA()
	crmService.CreateLead("u1", models.LeadCreateRequest{Name: "Globex"})
	assert.Equal(t, len(a), 2)
	assert.Equal(t, len(b), 3)
}

func TestSettingsAndProjectFanOut(t *testing.T) {
	s, crmService := newTestSynchronizer()
	assert.Equal(t, s.Attach("u1"), nil)

	var templates []string
	var names []string
	defer s.OnSettings(func(settings models.WorkspaceSettings) {
		templates = append(templates, settings.TemplateID)
	})()
	defer s.OnProjectName(func(name string) {
		names = append(names, name)
	})()

	crmService.SetTemplate("u1", "recruiting")
	crmService.RenameProject("u1", "Hiring Push")

	assert.Equal(t, templates, []string{"sales", "recruiting"})
	assert.Equal(t, names, []string{models.DefaultProjectName, "Hiring Push"})
}

func TestDetachClearsCachesAndNotifies(t *testing.T) {
	s, crmService := newTestSynchronizer()
	crmService.CreateLead("u1", models.LeadCreateRequest{Name: "Acme"})
	assert.Equal(t, s.Attach("u1"), nil)

	var snapshots [][]models.Lead
	defer s.OnLeads(func(leads []models.Lead) { snapshots = append(snapshots, leads) })()
	assert.Equal(t, len(snapshots[0]), 1)

	s.HandleAuthChange(nil)

	// Sign-out broadcast: the listener saw the empty state.
	assert.Equal(t, len(snapshots), 2)
	assert.Equal(t, len(snapshots[1]), 0)
	assert.Equal(t, len(s.Leads()), 0)
	assert.Equal(t, s.UID(), "")
	assert.Equal(t, s.ProjectName(), models.DefaultProjectName)

	// Changes in the old scope no longer reach the listener.
	crmService.CreateLead("u1", models.LeadCreateRequest{Name: "Globex"})
	assert.Equal(t, len(snapshots), 2)
}

func TestReattachSwitchesScope(t *testing.T) {
	s, crmService := newTestSynchronizer()
	crmService.CreateLead("u1", models.LeadCreateRequest{Name: "Mine"})
	crmService.CreateLead("u2", models.LeadCreateRequest{Name: "Theirs"})

	assert.Equal(t, s.Attach("u1"), nil)
	assert.Equal(t, s.Leads()[0].Name, "Mine")

	assert.Equal(t, s.Attach("u2"), nil)
	assert.Equal(t, s.Leads()[0].Name, "Theirs")

	// Old-scope writes must not leak into the new scope's cache.
	crmService.CreateLead("u1", models.LeadCreateRequest{Name: "More of mine"})
	assert.Equal(t, len(s.Leads()), 1)
}
