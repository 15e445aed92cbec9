package crm

import (
	"fmt"
	"strings"
	"time"

	"trace-crm-sync/pkg/models"
	"trace-crm-sync/pkg/store"
)

// CreateTask validates and appends a task. Status defaults to not-started
// and the date span must be well ordered when both ends are set.
func (s *Service) CreateTask(uid string, req models.TaskCreateRequest) (*models.Task, error) {
	if err := requireUID(uid); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("task title is required")
	}

	status := req.Status
	if status == "" {
		status = models.TaskNotStarted
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("unknown task status %q", status)
	}
	if err := validateSpan(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	if req.Value < 0 {
		return nil, fmt.Errorf("task value must not be negative")
	}

	task := models.Task{
		Title:     strings.TrimSpace(req.Title),
		Status:    status,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Value:     req.Value,
		Assignees: req.Assignees,
		OwnerID:   uid,
	}
	fields, err := store.EncodeRecord(task)
	if err != nil {
		return nil, err
	}
	delete(fields, "id")

	id, err := s.store.Push(store.CollectionPath(uid, TasksCollection), fields)
	if err != nil {
		return nil, writeErr("create task", err)
	}
	task.ID = id
	return &task, nil
}

// UpdateTask shallow-merges the set fields of the request into the task.
// A request that does not mention assignees never clears the stored list.
func (s *Service) UpdateTask(uid, taskID string, req models.TaskUpdateRequest) error {
	if err := requireUID(uid); err != nil {
		return err
	}
	if req.Status != nil && !req.Status.IsValid() {
		return fmt.Errorf("unknown task status %q", *req.Status)
	}
	if req.Value != nil && *req.Value < 0 {
		return fmt.Errorf("task value must not be negative")
	}

	existing, err := s.GetTask(uid, taskID)
	if err != nil {
		return err
	}

	// Validate the span the record would have after the merge.
	start, end := existing.StartDate, existing.EndDate
	if req.StartDate != nil {
		start = *req.StartDate
	}
	if req.EndDate != nil {
		end = *req.EndDate
	}
	if err := validateSpan(start, end); err != nil {
		return err
	}

	fields := req.Fields()
	if len(fields) == 0 {
		return nil
	}
	if err := s.store.Update(store.RecordPath(uid, TasksCollection, taskID), fields); err != nil {
		return writeErr("update task", err)
	}
	return nil
}

// MoveTask changes only the board status.
func (s *Service) MoveTask(uid, taskID string, status models.TaskStatus) error {
	return s.UpdateTask(uid, taskID, models.TaskUpdateRequest{Status: &status})
}

// RescheduleTask moves a task to a new start date keeping its duration.
// Calendar drops funnel through here.
func (s *Service) RescheduleTask(uid, taskID, newStart string) error {
	if err := requireUID(uid); err != nil {
		return err
	}
	task, err := s.GetTask(uid, taskID)
	if err != nil {
		return err
	}

	startAt, err := time.Parse(models.DateLayout, newStart)
	if err != nil {
		return fmt.Errorf("invalid start date %q: %w", newStart, err)
	}
	oldStart, oldEnd, err := task.Span()
	if err != nil {
		return fmt.Errorf("task %s has unparseable dates: %w", taskID, err)
	}

	duration := oldEnd.Sub(oldStart)
	start := startAt.Format(models.DateLayout)
	end := startAt.Add(duration).Format(models.DateLayout)
	return s.UpdateTask(uid, taskID, models.TaskUpdateRequest{StartDate: &start, EndDate: &end})
}

// DeleteTask removes a task. Deleting an already-absent task is not an error.
func (s *Service) DeleteTask(uid, taskID string) error {
	if err := requireUID(uid); err != nil {
		return err
	}
	if err := s.store.Remove(store.RecordPath(uid, TasksCollection, taskID)); err != nil {
		return writeErr("delete task", err)
	}
	return nil
}

// GetTask loads a single task by id.
func (s *Service) GetTask(uid, taskID string) (*models.Task, error) {
	if err := requireUID(uid); err != nil {
		return nil, err
	}
	snap, err := s.store.Get(store.CollectionPath(uid, TasksCollection))
	if err != nil {
		return nil, err
	}
	for _, entry := range snap {
		if entry.ID == taskID {
			return decodeTask(entry)
		}
	}
	return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
}

// ListTasks returns the caller's tasks in insertion order.
func (s *Service) ListTasks(uid string) ([]models.Task, error) {
	if err := requireUID(uid); err != nil {
		return nil, err
	}
	snap, err := s.store.Get(store.CollectionPath(uid, TasksCollection))
	if err != nil {
		return nil, err
	}
	return decodeTasks(snap), nil
}

// SubscribeTasks streams decoded task snapshots, starting with the current
// state delivered before SubscribeTasks returns.
func (s *Service) SubscribeTasks(uid string, callback func([]models.Task)) (store.UnsubscribeFunc, error) {
	if err := requireUID(uid); err != nil {
		return nil, err
	}
	return s.store.Subscribe(store.CollectionPath(uid, TasksCollection), func(snap store.Snapshot) {
		callback(decodeTasks(snap))
	})
}

func validateSpan(start, end string) error {
	if start == "" && end == "" {
		return nil
	}
	startAt, err := time.Parse(models.DateLayout, start)
	if err != nil {
		return fmt.Errorf("invalid start date %q: %w", start, err)
	}
	endAt, err := time.Parse(models.DateLayout, end)
	if err != nil {
		return fmt.Errorf("invalid end date %q: %w", end, err)
	}
	if endAt.Before(startAt) {
		return fmt.Errorf("end date %s precedes start date %s", end, start)
	}
	return nil
}

func decodeTask(entry store.Entry) (*models.Task, error) {
	var task models.Task
	if err := store.DecodeRecord(entry.Fields, &task); err != nil {
		return nil, fmt.Errorf("corrupt task record %s: %w", entry.ID, err)
	}
	task.ID = entry.ID
	return &task, nil
}

func decodeTasks(snap store.Snapshot) []models.Task {
	tasks := make([]models.Task, 0, len(snap))
	for _, entry := range snap {
		task, err := decodeTask(entry)
		if err != nil {
			fmt.Printf("⚠️ Skipping %v\n", err)
			continue
		}
		tasks = append(tasks, *task)
	}
	return tasks
}
