package crm

import (
	"fmt"
	"strings"
	"time"

	"trace-crm-sync/pkg/models"
	"trace-crm-sync/pkg/store"
)

// Settings loads the workspace settings singleton, falling back to the
// default template for workspaces that have never changed it.
func (s *Service) Settings(uid string) (models.WorkspaceSettings, error) {
	settings := models.WorkspaceSettings{TemplateID: models.DefaultTemplateID}
	if err := requireUID(uid); err != nil {
		return settings, err
	}
	snap, err := s.store.Get(store.CollectionPath(uid, SettingsCollection))
	if err != nil {
		return settings, err
	}
	for _, entry := range snap {
		if entry.ID != singletonID {
			continue
		}
		if err := store.DecodeRecord(entry.Fields, &settings); err != nil {
			return settings, fmt.Errorf("corrupt settings record: %w", err)
		}
		break
	}
	if _, ok := models.TemplateByID(settings.TemplateID); !ok {
		settings.TemplateID = models.DefaultTemplateID
	}
	return settings, nil
}

// ActiveTemplate resolves the stage template selected by the settings record.
func (s *Service) ActiveTemplate(uid string) (models.StageTemplate, error) {
	settings, err := s.Settings(uid)
	if err != nil {
		return models.StageTemplate{}, err
	}
	template, _ := models.TemplateByID(settings.TemplateID)
	return template, nil
}

// SetTemplate switches the active stage template. Existing leads keep their
// stored stage even when the new template does not define it; the board
// simply stops showing a column for it until the lead is moved.
func (s *Service) SetTemplate(uid, templateID string) error {
	if err := requireUID(uid); err != nil {
		return err
	}
	if _, ok := models.TemplateByID(templateID); !ok {
		return fmt.Errorf("unknown stage template %q", templateID)
	}
	fields, err := store.EncodeRecord(models.WorkspaceSettings{
		TemplateID: templateID,
		UpdatedAt:  time.Now(),
	})
	if err != nil {
		return err
	}
	if err := s.store.Update(store.RecordPath(uid, SettingsCollection, singletonID), fields); err != nil {
		return writeErr("set template", err)
	}
	return nil
}

// ProjectName loads the editable project display name, seeding the default
// for fresh workspaces.
func (s *Service) ProjectName(uid string) (string, error) {
	if err := requireUID(uid); err != nil {
		return "", err
	}
	snap, err := s.store.Get(store.CollectionPath(uid, ProjectCollection))
	if err != nil {
		return "", err
	}
	for _, entry := range snap {
		if entry.ID != singletonID {
			continue
		}
		var meta models.ProjectMeta
		if err := store.DecodeRecord(entry.Fields, &meta); err != nil {
			return "", fmt.Errorf("corrupt project record: %w", err)
		}
		if meta.Name != "" {
			return meta.Name, nil
		}
	}
	return models.DefaultProjectName, nil
}

// RenameProject updates the project display name singleton.
func (s *Service) RenameProject(uid, name string) error {
	if err := requireUID(uid); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("project name must not be empty")
	}
	fields, err := store.EncodeRecord(models.ProjectMeta{
		Name:      name,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	if err := s.store.Update(store.RecordPath(uid, ProjectCollection, singletonID), fields); err != nil {
		return writeErr("rename project", err)
	}
	return nil
}

// SubscribeProjectName streams the project display name singleton.
func (s *Service) SubscribeProjectName(uid string, callback func(string)) (store.UnsubscribeFunc, error) {
	if err := requireUID(uid); err != nil {
		return nil, err
	}
	return s.store.Subscribe(store.CollectionPath(uid, ProjectCollection), func(snap store.Snapshot) {
		name := models.DefaultProjectName
		for _, entry := range snap {
			if entry.ID != singletonID {
				continue
			}
			var meta models.ProjectMeta
			if err := store.DecodeRecord(entry.Fields, &meta); err == nil && meta.Name != "" {
				name = meta.Name
			}
			break
		}
		callback(name)
	})
}

// SubscribeSettings streams the decoded settings singleton.
func (s *Service) SubscribeSettings(uid string, callback func(models.WorkspaceSettings)) (store.UnsubscribeFunc, error) {
	if err := requireUID(uid); err != nil {
		return nil, err
	}
	return s.store.Subscribe(store.CollectionPath(uid, SettingsCollection), func(snap store.Snapshot) {
		settings := models.WorkspaceSettings{TemplateID: models.DefaultTemplateID}
		for _, entry := range snap {
			if entry.ID == singletonID {
				_ = store.DecodeRecord(entry.Fields, &settings)
				break
			}
		}
		if _, ok := models.TemplateByID(settings.TemplateID); !ok {
			settings.TemplateID = models.DefaultTemplateID
		}
		callback(settings)
	})
}
