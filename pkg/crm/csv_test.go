package crm

import (
	"strings"
	"testing"

	"trace-crm-sync/pkg/models"

	"github.com/go-playground/assert/v2"
)

func TestImportLeadsCSV(t *testing.T) {
	s := newTestService()

	input := strings.Join([]string{
		"Name,Company,Email,Stage,Value,Owner,LastActivity",
		"Acme,Acme Inc,sales@acme.test,Qualified,1200,dana,2024-05-01",
		"Globex,Globex LLC,hello@globex.test,,500,,",
		"TooShort,OnlyTwoCells",
		"NoStageMatch,Initech,it@initech.test,Shipped,900,,",
		",Anonymous Co,anon@co.test",
	}, "\n")

	imported, err := s.ImportLeadsCSV("u1", strings.NewReader(input))
	assert.Equal(t, err, nil)
	// Header, the two-cell row and the blank-name row are skipped.
	assert.Equal(t, imported, 3)

	leads, _ := s.ListLeads("u1")
	assert.Equal(t, len(leads), 3)

	assert.Equal(t, leads[0].Name, "Acme")
	assert.Equal(t, leads[0].Stage, "Qualified")
	assert.Equal(t, leads[0].Value, 1200.0)
	assert.Equal(t, leads[0].Owner, "dana")

	// Blank stage lands on the first stage of the active template.
	assert.Equal(t, leads[1].Name, "Globex")
	assert.Equal(t, leads[1].Stage, "New")

	// An unknown stage is treated like a blank one.
	assert.Equal(t, leads[2].Name, "NoStageMatch")
	assert.Equal(t, leads[2].Stage, "New")
}

func TestExportImportRoundTrip(t *testing.T) {
	s := newTestService()

	s.CreateLead("u1", models.LeadCreateRequest{Name: "Acme", Company: "Acme Inc", Value: 750, Stage: "Proposal"})
	s.CreateLead("u1", models.LeadCreateRequest{Name: "Globex", Email: "g@globex.test"})

	var sb strings.Builder
	assert.Equal(t, s.ExportLeadsCSV("u1", &sb), nil)

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	assert.Equal(t, len(lines), 3)
	assert.Equal(t, lines[0], "Name,Company,Email,Stage,Value,Owner,LastActivity")

	// Importing the export into a fresh scope reproduces the pipeline.
	imported, err := s.ImportLeadsCSV("u2", strings.NewReader(sb.String()))
	assert.Equal(t, err, nil)
	assert.Equal(t, imported, 2)

	leads, _ := s.ListLeads("u2")
	assert.Equal(t, leads[0].Name, "Acme")
	assert.Equal(t, leads[0].Stage, "Proposal")
	assert.Equal(t, leads[0].Value, 750.0)
	assert.Equal(t, leads[1].Name, "Globex")
	assert.Equal(t, leads[1].Stage, "New")
}
