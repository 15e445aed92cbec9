package models

import "time"

// PipelineStage describes one column of the kanban board: the stage id leads
// carry, plus display metadata for the board header and the lead form.
type PipelineStage struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Color string `json:"color"`
	Order int    `json:"order"`
}

// StageTemplate is a named preset defining the active lead stage enumeration.
// The workspace settings record selects one by id.
type StageTemplate struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	Stages []PipelineStage `json:"stages"`
}

// DefaultTemplateID is used when a workspace has no settings record yet.
const DefaultTemplateID = "sales"

// StageTemplates is the compiled-in template catalog.
var StageTemplates = []StageTemplate{
	{
		ID:    "sales",
		Title: "Sales Pipeline",
		Stages: []PipelineStage{
			{ID: "New", Title: "New", Color: "slate", Order: 1},
			{ID: "Contacted", Title: "Contacted", Color: "orange", Order: 2},
			{ID: "Qualified", Title: "Qualified", Color: "yellow", Order: 3},
			{ID: "Proposal", Title: "Proposal", Color: "blue", Order: 4},
			{ID: "Negotiation", Title: "Negotiation", Color: "purple", Order: 5},
			{ID: "Won", Title: "Won", Color: "emerald", Order: 6},
		},
	},
	{
		ID:    "freelance",
		Title: "Freelance Projects",
		Stages: []PipelineStage{
			{ID: "Inquiry", Title: "Inquiry", Color: "slate", Order: 1},
			{ID: "Scoping", Title: "Scoping", Color: "orange", Order: 2},
			{ID: "Quoted", Title: "Quoted", Color: "blue", Order: 3},
			{ID: "Active", Title: "Active", Color: "purple", Order: 4},
			{ID: "Delivered", Title: "Delivered", Color: "emerald", Order: 5},
		},
	},
	{
		ID:    "recruiting",
		Title: "Recruiting Funnel",
		Stages: []PipelineStage{
			{ID: "Applied", Title: "Applied", Color: "slate", Order: 1},
			{ID: "Screening", Title: "Screening", Color: "orange", Order: 2},
			{ID: "Interview", Title: "Interview", Color: "blue", Order: 3},
			{ID: "Offer", Title: "Offer", Color: "purple", Order: 4},
			{ID: "Hired", Title: "Hired", Color: "emerald", Order: 5},
		},
	},
}

// TemplateByID looks up a template from the catalog.
func TemplateByID(id string) (StageTemplate, bool) {
	for _, t := range StageTemplates {
		if t.ID == id {
			return t, true
		}
	}
	return StageTemplate{}, false
}

// HasStage reports whether the template contains the given stage id.
func (t StageTemplate) HasStage(stageID string) bool {
	for _, s := range t.Stages {
		if s.ID == stageID {
			return true
		}
	}
	return false
}

// FirstStage returns the lowest-ordered stage. Imported leads with a blank
// stage land here.
func (t StageTemplate) FirstStage() PipelineStage {
	if len(t.Stages) == 0 {
		return PipelineStage{}
	}
	first := t.Stages[0]
	for _, s := range t.Stages[1:] {
		if s.Order < first.Order {
			first = s
		}
	}
	return first
}

// WorkspaceSettings is the singleton per-user record selecting the active
// stage template.
type WorkspaceSettings struct {
	TemplateID string    `json:"template_id" db:"template_id"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// ProjectMeta is the singleton per-user record holding the editable
// project display name.
type ProjectMeta struct {
	Name      string    `json:"name" db:"name"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultProjectName seeds a workspace that has never renamed its project.
const DefaultProjectName = "Q4 Engineering Sprint"
