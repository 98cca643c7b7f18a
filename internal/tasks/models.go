package tasks

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/taskboard/taskboard/internal/query"
	"github.com/taskboard/taskboard/internal/zerrors"
)

// UnassignedName is the assignedUserName of a task with no assignee
const UnassignedName = "unassigned"

// Task is a unit of work that may be assigned to one user
type Task struct {
	ID               string    `json:"_id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Deadline         time.Time `json:"deadline"`
	Completed        bool      `json:"completed"`
	AssignedUser     string    `json:"assignedUser"`
	AssignedUserName string    `json:"assignedUserName"`
	DateCreated      time.Time `json:"dateCreated"`
}

// QuerySchema lists the task fields usable in where, sort and select
var QuerySchema = query.NewSchema(
	query.Field{Name: query.IDField, Column: "id", Kind: query.KindString},
	query.Field{Name: "name", Column: "name", Kind: query.KindString},
	query.Field{Name: "description", Column: "description", Kind: query.KindString},
	query.Field{Name: "deadline", Column: "deadline", Kind: query.KindTime},
	query.Field{Name: "completed", Column: "completed", Kind: query.KindBool},
	query.Field{Name: "assignedUser", Column: "assigned_user", Kind: query.KindString},
	query.Field{Name: "assignedUserName", Column: "assigned_user_name", Kind: query.KindString},
	query.Field{Name: "dateCreated", Column: "date_created", Kind: query.KindTime},
)

// Document renders the task by public field name
func (t *Task) Document() query.Document {
	return query.Document{
		query.IDField:      t.ID,
		"name":             t.Name,
		"description":      t.Description,
		"deadline":         t.Deadline,
		"completed":        t.Completed,
		"assignedUser":     t.AssignedUser,
		"assignedUserName": t.AssignedUserName,
		"dateCreated":      t.DateCreated,
	}
}

// Clone returns a copy of the task
func (t *Task) Clone() *Task {
	out := *t
	return &out
}

// Pending reports whether the task should appear in its assignee's pendingTasks
func (t *Task) Pending() bool {
	return t.AssignedUser != "" && !t.Completed
}

// FlexibleTime decodes a deadline given as a date string or epoch milliseconds.
// Decoding never fails; Set and Valid record what was received. Falsy values
// (null, "", 0, false) count as not set.
type FlexibleTime struct {
	Time  time.Time
	Set   bool
	Valid bool
}

func (f *FlexibleTime) UnmarshalJSON(data []byte) error {
	*f = FlexibleTime{}

	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		f.Set = true
		return nil
	}

	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		f.Set = true
		if t, err := query.ParseTime(v); err == nil {
			f.Time, f.Valid = t, true
		}
	case json.Number:
		ms, err := v.Float64()
		if err == nil && ms == 0 {
			return nil
		}
		f.Set = true
		if err == nil {
			f.Time, f.Valid = time.UnixMilli(int64(ms)).UTC(), true
		}
	case bool:
		if !v {
			return nil
		}
		f.Set = true
	default:
		f.Set = true
	}
	return nil
}

// TaskRequest is the body of a task create or full replace
type TaskRequest struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Deadline     FlexibleTime `json:"deadline"`
	Completed    bool         `json:"completed"`
	AssignedUser string       `json:"assignedUser"`
}

// Validate requires a name and a parseable deadline
func (r *TaskRequest) Validate() error {
	if r.Name == "" || !r.Deadline.Set {
		return zerrors.NewValidationError("name", r.Name, "name and deadline are required")
	}
	if !r.Deadline.Valid {
		return zerrors.NewValidationError("deadline", nil, "deadline must be a valid date")
	}
	return nil
}

// ToTask converts the request to a new Task with a fresh id
func (r *TaskRequest) ToTask(assigneeName string) *Task {
	task := &Task{
		ID:          uuid.New().String(),
		DateCreated: time.Now().UTC(),
	}
	r.ApplyTo(task, assigneeName)
	return task
}

// ApplyTo overwrites every replaceable field of t
func (r *TaskRequest) ApplyTo(t *Task, assigneeName string) {
	t.Name = r.Name
	t.Description = r.Description
	t.Deadline = r.Deadline.Time
	t.Completed = r.Completed
	t.AssignedUser = r.AssignedUser
	t.AssignedUserName = assigneeName
	if r.AssignedUser == "" {
		t.AssignedUserName = UnassignedName
	}
}
