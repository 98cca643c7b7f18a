package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskboard/taskboard/internal/query"
	"github.com/taskboard/taskboard/internal/zerrors"
)

// User is a person tasks can be assigned to. PendingTasks holds the ids of the
// incomplete tasks currently assigned to the user.
type User struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PendingTasks []string  `json:"pendingTasks"`
	DateCreated  time.Time `json:"dateCreated"`
}

// QuerySchema lists the user fields usable in where, sort and select
var QuerySchema = query.NewSchema(
	query.Field{Name: query.IDField, Column: "id", Kind: query.KindString},
	query.Field{Name: "name", Column: "name", Kind: query.KindString},
	query.Field{Name: "email", Column: "email", Kind: query.KindString},
	query.Field{Name: "pendingTasks", Column: "pending_tasks", Kind: query.KindStringArray},
	query.Field{Name: "dateCreated", Column: "date_created", Kind: query.KindTime},
)

// Document renders the user by public field name
func (u *User) Document() query.Document {
	return query.Document{
		query.IDField:  u.ID,
		"name":         u.Name,
		"email":        u.Email,
		"pendingTasks": clonePending(u.PendingTasks),
		"dateCreated":  u.DateCreated,
	}
}

// Clone returns a deep copy of the user
func (u *User) Clone() *User {
	out := *u
	out.PendingTasks = clonePending(u.PendingTasks)
	return &out
}

// UserRequest is the body of a user create or full replace
type UserRequest struct {
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	PendingTasks []string `json:"pendingTasks"`
}

// Validate trims name and email, requires both, and drops repeated task ids
func (r *UserRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)

	if r.Name == "" {
		return zerrors.NewValidationError("name", r.Name, "name and email are required")
	}
	if r.Email == "" {
		return zerrors.NewValidationError("email", r.Email, "name and email are required")
	}

	r.PendingTasks = dedupe(r.PendingTasks)
	return nil
}

// ToUser converts the request to a new User with a fresh id
func (r *UserRequest) ToUser() *User {
	return &User{
		ID:           uuid.New().String(),
		Name:         r.Name,
		Email:        r.Email,
		PendingTasks: clonePending(r.PendingTasks),
		DateCreated:  time.Now().UTC(),
	}
}

// ApplyTo overwrites the replaceable fields of u. The id and creation date stay.
func (r *UserRequest) ApplyTo(u *User) {
	u.Name = r.Name
	u.Email = r.Email
	u.PendingTasks = clonePending(r.PendingTasks)
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// clonePending copies ids and never returns nil, so pendingTasks encodes as []
func clonePending(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
