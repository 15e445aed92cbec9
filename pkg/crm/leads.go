package crm

import (
	"fmt"
	"strings"

	"trace-crm-sync/pkg/models"
	"trace-crm-sync/pkg/store"
)

// CreateLead validates and appends a lead to the caller's pipeline. A blank
// stage lands on the first stage of the active template.
func (s *Service) CreateLead(uid string, req models.LeadCreateRequest) (*models.Lead, error) {
	if err := requireUID(uid); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("lead name is required")
	}
	if req.Value < 0 {
		return nil, fmt.Errorf("lead value must not be negative")
	}

	template, err := s.ActiveTemplate(uid)
	if err != nil {
		return nil, err
	}
	stage := strings.TrimSpace(req.Stage)
	if stage == "" {
		stage = template.FirstStage().ID
	} else if !template.HasStage(stage) {
		return nil, fmt.Errorf("unknown stage %q for template %s", stage, template.ID)
	}

	lead := models.Lead{
		Name:         strings.TrimSpace(req.Name),
		Company:      req.Company,
		Email:        req.Email,
		Value:        req.Value,
		Stage:        stage,
		Owner:        req.Owner,
		LastActivity: req.LastActivity,
		Tags:         req.Tags,
	}
	fields, err := store.EncodeRecord(lead)
	if err != nil {
		return nil, err
	}
	delete(fields, "id")

	id, err := s.store.Push(store.CollectionPath(uid, LeadsCollection), fields)
	if err != nil {
		return nil, writeErr("create lead", err)
	}
	lead.ID = id
	return &lead, nil
}

// UpdateLead shallow-merges the set fields of the request into the lead.
// Unset fields keep their stored values.
func (s *Service) UpdateLead(uid, leadID string, req models.LeadUpdateRequest) error {
	if err := requireUID(uid); err != nil {
		return err
	}
	if req.Value != nil && *req.Value < 0 {
		return fmt.Errorf("lead value must not be negative")
	}
	if req.Stage != nil {
		template, err := s.ActiveTemplate(uid)
		if err != nil {
			return err
		}
		if !template.HasStage(*req.Stage) {
			return fmt.Errorf("unknown stage %q for template %s", *req.Stage, template.ID)
		}
	}

	fields := req.Fields()
	if len(fields) == 0 {
		return nil
	}
	if _, err := s.GetLead(uid, leadID); err != nil {
		return err
	}
	if err := s.store.Update(store.RecordPath(uid, LeadsCollection, leadID), fields); err != nil {
		return writeErr("update lead", err)
	}
	return nil
}

// MoveLead changes only the pipeline stage. Kanban drops funnel through here.
func (s *Service) MoveLead(uid, leadID, stage string) error {
	return s.UpdateLead(uid, leadID, models.LeadUpdateRequest{Stage: &stage})
}

// DeleteLead removes a lead. Deleting an already-absent lead is not an error.
func (s *Service) DeleteLead(uid, leadID string) error {
	if err := requireUID(uid); err != nil {
		return err
	}
	if err := s.store.Remove(store.RecordPath(uid, LeadsCollection, leadID)); err != nil {
		return writeErr("delete lead", err)
	}
	return nil
}

// GetLead loads a single lead by id.
func (s *Service) GetLead(uid, leadID string) (*models.Lead, error) {
	if err := requireUID(uid); err != nil {
		return nil, err
	}
	snap, err := s.store.Get(store.CollectionPath(uid, LeadsCollection))
	if err != nil {
		return nil, err
	}
	for _, entry := range snap {
		if entry.ID == leadID {
			return decodeLead(entry)
		}
	}
	return nil, fmt.Errorf("lead %s: %w", leadID, ErrNotFound)
}

// ListLeads returns the caller's leads in insertion order.
func (s *Service) ListLeads(uid string) ([]models.Lead, error) {
	if err := requireUID(uid); err != nil {
		return nil, err
	}
	snap, err := s.store.Get(store.CollectionPath(uid, LeadsCollection))
	if err != nil {
		return nil, err
	}
	return decodeLeads(snap), nil
}

// SubscribeLeads streams decoded lead snapshots, starting with the current
// state delivered before SubscribeLeads returns.
func (s *Service) SubscribeLeads(uid string, callback func([]models.Lead)) (store.UnsubscribeFunc, error) {
	if err := requireUID(uid); err != nil {
		return nil, err
	}
	return s.store.Subscribe(store.CollectionPath(uid, LeadsCollection), func(snap store.Snapshot) {
		callback(decodeLeads(snap))
	})
}

func decodeLead(entry store.Entry) (*models.Lead, error) {
	var lead models.Lead
	if err := store.DecodeRecord(entry.Fields, &lead); err != nil {
		return nil, fmt.Errorf("corrupt lead record %s: %w", entry.ID, err)
	}
	lead.ID = entry.ID
	return &lead, nil
}

func decodeLeads(snap store.Snapshot) []models.Lead {
	leads := make([]models.Lead, 0, len(snap))
	for _, entry := range snap {
		lead, err := decodeLead(entry)
		if err != nil {
			fmt.Printf("⚠️ Skipping %v\n", err)
			continue
		}
		leads = append(leads, *lead)
	}
	return leads
}
