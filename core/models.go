// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ID is a unique identifier for domain entities and partitions.
type ID string

// NoPartition is passed for entity types that are not scoped to a partition.
const NoPartition ID = ""

// GlobalPartition is the document-store partition holding unscoped entities.
const GlobalPartition ID = "_global"

// NewID generates a random identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

// IsZero reports whether the ID is empty.
func (id ID) IsZero() bool {
	return id == ""
}

// String returns the ID as a plain string.
func (id ID) String() string {
	return string(id)
}

// RelationKey returns the identity of a relation record.
// Returns the empty ID if either side is missing.
func RelationKey(parent, child ID) ID {
	if parent.IsZero() || child.IsZero() {
		return ""
	}
	return parent + "/" + child
}

// Record holds the fields shared by every identified entity.
type Record struct {
	ID        ID
	CreatedAt time.Time
	UpdatedAt time.Time
	UpdatedBy ID // Actor that performed the last save
}

// EntityID returns the record's identifier.
func (r *Record) EntityID() ID {
	return r.ID
}

// AssignID sets the record's identifier.
func (r *Record) AssignID(id ID) {
	r.ID = id
}

// Created returns the creation timestamp.
func (r *Record) Created() time.Time {
	return r.CreatedAt
}

// Touch stamps the record as modified by actor at the given time.
// CreatedAt is only set the first time.
func (r *Record) Touch(actor ID, at time.Time) {
	at = at.UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = at
	}
	r.UpdatedAt = at
	r.UpdatedBy = actor
}

// Tombstone carries soft-delete state.
type Tombstone struct {
	Deleted   bool
	DeletedAt *time.Time
	DeletedBy ID
}

// MarkDeleted flags the entity as deleted by actor. No other field changes.
func (t *Tombstone) MarkDeleted(actor ID, at time.Time) {
	at = at.UTC()
	t.Deleted = true
	t.DeletedAt = &at
	t.DeletedBy = actor
}

// MarkRestored clears the soft-delete state.
func (t *Tombstone) MarkRestored() {
	t.Deleted = false
	t.DeletedAt = nil
	t.DeletedBy = ""
}

// IsDeleted reports whether the entity is soft-deleted.
func (t *Tombstone) IsDeleted() bool {
	return t.Deleted
}

// Project is the top-level container and the partition key for its contents.
type Project struct {
	Record
	Tombstone
	Name        string
	Description string
	OwnerID     ID
	Archived    bool
}

// User is an actor that can own projects and be assigned tasks.
type User struct {
	Record
	Name  string
	Email string
}

// TaskList groups tasks inside a project.
type TaskList struct {
	Record
	Tombstone
	ProjectID ID
	Name      string
	Position  int
	TaskOrder []ID // Ordered task IDs within the list
}

// PartitionKey returns the owning project.
func (l *TaskList) PartitionKey() ID { return l.ProjectID }

// SetPartitionKey sets the owning project.
func (l *TaskList) SetPartitionKey(p ID) { l.ProjectID = p }

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// Task is a unit of work inside a task list.
type Task struct {
	Record
	Tombstone
	ProjectID   ID
	ListID      ID
	Title       string
	Notes       string
	Status      TaskStatus
	Priority    int
	DueAt       *time.Time
	CompletedAt *time.Time
}

// PartitionKey returns the owning project.
func (t *Task) PartitionKey() ID { return t.ProjectID }

// SetPartitionKey sets the owning project.
func (t *Task) SetPartitionKey(p ID) { t.ProjectID = p }

// Subtask is a checklist item of a task.
type Subtask struct {
	Record
	Tombstone
	ProjectID ID
	TaskID    ID
	Title     string
	Done      bool
	Position  int
}

// PartitionKey returns the owning project.
func (s *Subtask) PartitionKey() ID { return s.ProjectID }

// SetPartitionKey sets the owning project.
func (s *Subtask) SetPartitionKey(p ID) { s.ProjectID = p }

// Tag labels tasks within a project.
type Tag struct {
	Record
	Tombstone
	ProjectID ID
	Name      string
	Color     string
}

// PartitionKey returns the owning project.
func (t *Tag) PartitionKey() ID { return t.ProjectID }

// SetPartitionKey sets the owning project.
func (t *Tag) SetPartitionKey(p ID) { t.ProjectID = p }

// Link is an unordered many-to-many relation record inside a project.
// Its identity is the (ParentID, ChildID) pair.
type Link struct {
	ProjectID ID
	ParentID  ID
	ChildID   ID
	CreatedAt time.Time
}

// EntityID returns the relation key.
func (l *Link) EntityID() ID {
	return RelationKey(l.ParentID, l.ChildID)
}

// AssignID is a no-op; relation identity is derived from its endpoints.
func (l *Link) AssignID(ID) {}

// Created returns the creation timestamp.
func (l *Link) Created() time.Time {
	return l.CreatedAt
}

// Touch sets CreatedAt on first save.
func (l *Link) Touch(_ ID, at time.Time) {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = at.UTC()
	}
}

// PartitionKey returns the owning project.
func (l *Link) PartitionKey() ID { return l.ProjectID }

// SetPartitionKey sets the owning project.
func (l *Link) SetPartitionKey(p ID) { l.ProjectID = p }

// Parent returns the parent side of the relation.
func (l *Link) Parent() ID { return l.ParentID }

// Child returns the child side of the relation.
func (l *Link) Child() ID { return l.ChildID }

// TaskTag links a task (parent) to a tag (child).
type TaskTag struct {
	Link
}

// TaskAssignment links a task (parent) to an assigned user (child).
type TaskAssignment struct {
	Link
}

// Preference is a per-user setting stored under feature/scope/item.
// Scope is usually a project ID; it may be empty for user-wide settings.
type Preference struct {
	UserID    ID
	Feature   string
	Scope     ID
	Item      string
	Value     string
	UpdatedAt time.Time
	UpdatedBy ID
}

// PreferenceKey builds the identity of a preference.
func PreferenceKey(feature string, scope ID, item string) ID {
	return ID(feature + "/" + string(scope) + "/" + item)
}

// SplitPreferenceKey is the inverse of PreferenceKey.
func SplitPreferenceKey(id ID) (feature string, scope ID, item string, ok bool) {
	parts := strings.Split(string(id), "/")
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], ID(parts[1]), parts[2], true
}

// EntityID returns the preference key.
func (p *Preference) EntityID() ID {
	if p.Feature == "" || p.Item == "" {
		return ""
	}
	return PreferenceKey(p.Feature, p.Scope, p.Item)
}

// AssignID is a no-op; the key is derived from feature, scope and item.
func (p *Preference) AssignID(ID) {}

// Touch stamps the preference as modified.
func (p *Preference) Touch(actor ID, at time.Time) {
	p.UpdatedAt = at.UTC()
	p.UpdatedBy = actor
}

// PartitionKey returns the owning user.
func (p *Preference) PartitionKey() ID { return p.UserID }

// SetPartitionKey sets the owning user.
func (p *Preference) SetPartitionKey(u ID) { p.UserID = u }
