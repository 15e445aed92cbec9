package models

import "time"

// TaskStatus is the fixed four-state task lifecycle. Unlike lead stages it is
// not configurable per workspace.
type TaskStatus string

const (
	TaskNotStarted TaskStatus = "not-started"
	TaskInProgress TaskStatus = "in-progress"
	TaskInReview   TaskStatus = "in-review"
	TaskDone       TaskStatus = "done"
)

// TaskStatuses lists the statuses in board column order.
var TaskStatuses = []TaskStatus{TaskNotStarted, TaskInProgress, TaskInReview, TaskDone}

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskNotStarted, TaskInProgress, TaskInReview, TaskDone:
		return true
	default:
		return false
	}
}

// DateLayout is the wire format for task dates.
const DateLayout = "2006-01-02"

// Task represents a project work item on the timeline/board/calendar
type Task struct {
	ID        string     `json:"id" db:"id"`
	Title     string     `json:"title" db:"title"`
	Status    TaskStatus `json:"status" db:"status"`
	StartDate string     `json:"start_date" db:"start_date"`
	EndDate   string     `json:"end_date" db:"end_date"`
	Value     float64    `json:"value" db:"value"`
	Assignees []string   `json:"assignees" db:"assignees"`
	OwnerID   string     `json:"owner_id" db:"owner_id"`
}

// Span returns the parsed start/end dates. End is guaranteed >= start for
// records admitted through the data access layer.
func (t *Task) Span() (start, end time.Time, err error) {
	start, err = time.Parse(DateLayout, t.StartDate)
	if err != nil {
		return
	}
	end, err = time.Parse(DateLayout, t.EndDate)
	return
}

// TaskCreateRequest represents the payload for creating a task
type TaskCreateRequest struct {
	Title     string     `json:"title" validate:"required"`
	Status    TaskStatus `json:"status"`
	StartDate string     `json:"start_date"`
	EndDate   string     `json:"end_date"`
	Value     float64    `json:"value"`
	Assignees []string   `json:"assignees,omitempty"`
}

// TaskUpdateRequest represents a partial task update. Nil fields are left
// untouched on the stored record; in particular a nil Assignees never resets
// the stored assignee list.
type TaskUpdateRequest struct {
	Title     *string     `json:"title"`
	Status    *TaskStatus `json:"status"`
	StartDate *string     `json:"start_date"`
	EndDate   *string     `json:"end_date"`
	Value     *float64    `json:"value"`
	Assignees *[]string   `json:"assignees"`
}

// Fields converts the request into the patch map consumed by the data
// access layer.
func (r *TaskUpdateRequest) Fields() map[string]interface{} {
	fields := map[string]interface{}{}
	if r.Title != nil {
		fields["title"] = *r.Title
	}
	if r.Status != nil {
		fields["status"] = string(*r.Status)
	}
	if r.StartDate != nil {
		fields["start_date"] = *r.StartDate
	}
	if r.EndDate != nil {
		fields["end_date"] = *r.EndDate
	}
	if r.Value != nil {
		fields["value"] = *r.Value
	}
	if r.Assignees != nil {
		fields["assignees"] = *r.Assignees
	}
	return fields
}
