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


package relational

import (
	"time"

	"github.com/poiesic/taskvault/core"
	"github.com/poiesic/taskvault/storage"
)

const (
	orderByCreation = "created, id"
	// Segment order, matching the document store's preference tree walk.
	orderByPreferenceKey = "feature, scope, item"
)

// Mapping converts between a domain entity and its table row.
type Mapping[T storage.Entity, R any] struct {
	ToRow   func(partition core.ID, entity T) *R
	FromRow func(row *R) T
	// Order is the ORDER BY clause used by FindAll.
	Order string
}

// RecordColumns are shared by every identified entity table.
// Primary key is (partition_id, id); global entities use an empty partition.
type RecordColumns struct {
	PartitionID string    `gorm:"primaryKey;size:64"`
	ID          string    `gorm:"primaryKey;size:128"`
	Created     time.Time `gorm:"column:created;index"`
	Updated     time.Time `gorm:"column:updated"`
	UpdatedBy   string    `gorm:"size:64"`
}

func toRecordColumns(partition core.ID, r *core.Record) RecordColumns {
	return RecordColumns{
		PartitionID: partition.String(),
		ID:          r.ID.String(),
		Created:     r.CreatedAt.UTC(),
		Updated:     r.UpdatedAt.UTC(),
		UpdatedBy:   r.UpdatedBy.String(),
	}
}

func (c RecordColumns) record() core.Record {
	return core.Record{
		ID:        core.ID(c.ID),
		CreatedAt: c.Created.UTC(),
		UpdatedAt: c.Updated.UTC(),
		UpdatedBy: core.ID(c.UpdatedBy),
	}
}

// TombstoneColumns hold soft-delete state.
type TombstoneColumns struct {
	Deleted     bool       `gorm:"index"`
	DeletedTime *time.Time `gorm:"column:deleted_time"`
	DeletedBy   string     `gorm:"size:64"`
}

func toTombstoneColumns(t *core.Tombstone) TombstoneColumns {
	return TombstoneColumns{
		Deleted:     t.Deleted,
		DeletedTime: utcPtr(t.DeletedAt),
		DeletedBy:   t.DeletedBy.String(),
	}
}

func (c TombstoneColumns) tombstone() core.Tombstone {
	return core.Tombstone{
		Deleted:   c.Deleted,
		DeletedAt: utcPtr(c.DeletedTime),
		DeletedBy: core.ID(c.DeletedBy),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// ProjectRow is the projects table.
type ProjectRow struct {
	RecordColumns
	TombstoneColumns
	Name        string
	Description string
	OwnerID     string `gorm:"size:64;index"`
	Archived    bool
}

func (ProjectRow) TableName() string { return storage.ProjectType.Collection }

// ProjectMapping maps core.Project.
var ProjectMapping = Mapping[*core.Project, ProjectRow]{
	ToRow: func(p core.ID, e *core.Project) *ProjectRow {
		return &ProjectRow{
			RecordColumns:    toRecordColumns(p, &e.Record),
			TombstoneColumns: toTombstoneColumns(&e.Tombstone),
			Name:             e.Name,
			Description:      e.Description,
			OwnerID:          e.OwnerID.String(),
			Archived:         e.Archived,
		}
	},
	FromRow: func(r *ProjectRow) *core.Project {
		return &core.Project{
			Record:      r.record(),
			Tombstone:   r.tombstone(),
			Name:        r.Name,
			Description: r.Description,
			OwnerID:     core.ID(r.OwnerID),
			Archived:    r.Archived,
		}
	},
	Order: orderByCreation,
}

// UserRow is the users table.
type UserRow struct {
	RecordColumns
	Name  string
	Email string `gorm:"index"`
}

func (UserRow) TableName() string { return storage.UserType.Collection }

// UserMapping maps core.User.
var UserMapping = Mapping[*core.User, UserRow]{
	ToRow: func(p core.ID, e *core.User) *UserRow {
		return &UserRow{
			RecordColumns: toRecordColumns(p, &e.Record),
			Name:          e.Name,
			Email:         e.Email,
		}
	},
	FromRow: func(r *UserRow) *core.User {
		return &core.User{Record: r.record(), Name: r.Name, Email: r.Email}
	},
	Order: orderByCreation,
}

// TaskListRow is the task_lists table.
type TaskListRow struct {
	RecordColumns
	TombstoneColumns
	Name      string
	Position  int
	TaskOrder []core.ID `gorm:"type:text;serializer:json"`
}

func (TaskListRow) TableName() string { return storage.TaskListType.Collection }

// TaskListMapping maps core.TaskList. The partition column holds the project.
var TaskListMapping = Mapping[*core.TaskList, TaskListRow]{
	ToRow: func(p core.ID, e *core.TaskList) *TaskListRow {
		return &TaskListRow{
			RecordColumns:    toRecordColumns(p, &e.Record),
			TombstoneColumns: toTombstoneColumns(&e.Tombstone),
			Name:             e.Name,
			Position:         e.Position,
			TaskOrder:        e.TaskOrder,
		}
	},
	FromRow: func(r *TaskListRow) *core.TaskList {
		return &core.TaskList{
			Record:    r.record(),
			Tombstone: r.tombstone(),
			ProjectID: core.ID(r.PartitionID),
			Name:      r.Name,
			Position:  r.Position,
			TaskOrder: r.TaskOrder,
		}
	},
	Order: orderByCreation,
}

// TaskRow is the tasks table.
type TaskRow struct {
	RecordColumns
	TombstoneColumns
	ListID      string `gorm:"size:64;index"`
	Title       string
	Notes       string
	Status      string `gorm:"size:16;index"`
	Priority    int
	DueAt       *time.Time
	CompletedAt *time.Time
}

func (TaskRow) TableName() string { return storage.TaskType.Collection }

// TaskMapping maps core.Task.
var TaskMapping = Mapping[*core.Task, TaskRow]{
	ToRow: func(p core.ID, e *core.Task) *TaskRow {
		return &TaskRow{
			RecordColumns:    toRecordColumns(p, &e.Record),
			TombstoneColumns: toTombstoneColumns(&e.Tombstone),
			ListID:           e.ListID.String(),
			Title:            e.Title,
			Notes:            e.Notes,
			Status:           string(e.Status),
			Priority:         e.Priority,
			DueAt:            utcPtr(e.DueAt),
			CompletedAt:      utcPtr(e.CompletedAt),
		}
	},
	FromRow: func(r *TaskRow) *core.Task {
		return &core.Task{
			Record:      r.record(),
			Tombstone:   r.tombstone(),
			ProjectID:   core.ID(r.PartitionID),
			ListID:      core.ID(r.ListID),
			Title:       r.Title,
			Notes:       r.Notes,
			Status:      core.TaskStatus(r.Status),
			Priority:    r.Priority,
			DueAt:       utcPtr(r.DueAt),
			CompletedAt: utcPtr(r.CompletedAt),
		}
	},
	Order: orderByCreation,
}

// SubtaskRow is the subtasks table.
type SubtaskRow struct {
	RecordColumns
	TombstoneColumns
	TaskID   string `gorm:"size:64;index"`
	Title    string
	Done     bool
	Position int
}

func (SubtaskRow) TableName() string { return storage.SubtaskType.Collection }

// SubtaskMapping maps core.Subtask.
var SubtaskMapping = Mapping[*core.Subtask, SubtaskRow]{
	ToRow: func(p core.ID, e *core.Subtask) *SubtaskRow {
		return &SubtaskRow{
			RecordColumns:    toRecordColumns(p, &e.Record),
			TombstoneColumns: toTombstoneColumns(&e.Tombstone),
			TaskID:           e.TaskID.String(),
			Title:            e.Title,
			Done:             e.Done,
			Position:         e.Position,
		}
	},
	FromRow: func(r *SubtaskRow) *core.Subtask {
		return &core.Subtask{
			Record:    r.record(),
			Tombstone: r.tombstone(),
			ProjectID: core.ID(r.PartitionID),
			TaskID:    core.ID(r.TaskID),
			Title:     r.Title,
			Done:      r.Done,
			Position:  r.Position,
		}
	},
	Order: orderByCreation,
}

// TagRow is the tags table.
type TagRow struct {
	RecordColumns
	TombstoneColumns
	Name  string
	Color string `gorm:"size:16"`
}

func (TagRow) TableName() string { return storage.TagType.Collection }

// TagMapping maps core.Tag.
var TagMapping = Mapping[*core.Tag, TagRow]{
	ToRow: func(p core.ID, e *core.Tag) *TagRow {
		return &TagRow{
			RecordColumns:    toRecordColumns(p, &e.Record),
			TombstoneColumns: toTombstoneColumns(&e.Tombstone),
			Name:             e.Name,
			Color:            e.Color,
		}
	},
	FromRow: func(r *TagRow) *core.Tag {
		return &core.Tag{
			Record:    r.record(),
			Tombstone: r.tombstone(),
			ProjectID: core.ID(r.PartitionID),
			Name:      r.Name,
			Color:     r.Color,
		}
	},
	Order: orderByCreation,
}

// LinkColumns are shared by relation tables. ID holds the relation key.
type LinkColumns struct {
	PartitionID string    `gorm:"primaryKey;size:64"`
	ID          string    `gorm:"primaryKey;size:128"`
	ParentID    string    `gorm:"size:64;index"`
	ChildID     string    `gorm:"size:64;index"`
	Created     time.Time `gorm:"column:created;index"`
}

func toLinkColumns(partition core.ID, l *core.Link) LinkColumns {
	return LinkColumns{
		PartitionID: partition.String(),
		ID:          l.EntityID().String(),
		ParentID:    l.ParentID.String(),
		ChildID:     l.ChildID.String(),
		Created:     l.CreatedAt.UTC(),
	}
}

func (c LinkColumns) link() core.Link {
	return core.Link{
		ProjectID: core.ID(c.PartitionID),
		ParentID:  core.ID(c.ParentID),
		ChildID:   core.ID(c.ChildID),
		CreatedAt: c.Created.UTC(),
	}
}

// TaskTagRow is the task_tags table.
type TaskTagRow struct {
	LinkColumns
}

func (TaskTagRow) TableName() string { return storage.TaskTagType.Collection }

// TaskTagMapping maps core.TaskTag.
var TaskTagMapping = Mapping[*core.TaskTag, TaskTagRow]{
	ToRow: func(p core.ID, e *core.TaskTag) *TaskTagRow {
		return &TaskTagRow{LinkColumns: toLinkColumns(p, &e.Link)}
	},
	FromRow: func(r *TaskTagRow) *core.TaskTag {
		return &core.TaskTag{Link: r.link()}
	},
	Order: orderByCreation,
}

// TaskAssignmentRow is the task_assignments table.
type TaskAssignmentRow struct {
	LinkColumns
}

func (TaskAssignmentRow) TableName() string { return storage.TaskAssignmentType.Collection }

// TaskAssignmentMapping maps core.TaskAssignment.
var TaskAssignmentMapping = Mapping[*core.TaskAssignment, TaskAssignmentRow]{
	ToRow: func(p core.ID, e *core.TaskAssignment) *TaskAssignmentRow {
		return &TaskAssignmentRow{LinkColumns: toLinkColumns(p, &e.Link)}
	},
	FromRow: func(r *TaskAssignmentRow) *core.TaskAssignment {
		return &core.TaskAssignment{Link: r.link()}
	},
	Order: orderByCreation,
}

// PreferenceRow is the preferences table. The partition column holds the user.
type PreferenceRow struct {
	PartitionID string `gorm:"primaryKey;size:64"`
	ID          string `gorm:"primaryKey;size:255"`
	Feature     string `gorm:"size:64;index"`
	Scope       string `gorm:"size:64"`
	Item        string `gorm:"size:64"`
	Value       string
	Updated     time.Time `gorm:"column:updated"`
	UpdatedBy   string    `gorm:"size:64"`
}

func (PreferenceRow) TableName() string { return storage.PreferenceType.Collection }

// PreferenceMapping maps core.Preference.
var PreferenceMapping = Mapping[*core.Preference, PreferenceRow]{
	ToRow: func(p core.ID, e *core.Preference) *PreferenceRow {
		return &PreferenceRow{
			PartitionID: p.String(),
			ID:          e.EntityID().String(),
			Feature:     e.Feature,
			Scope:       e.Scope.String(),
			Item:        e.Item,
			Value:       e.Value,
			Updated:     e.UpdatedAt.UTC(),
			UpdatedBy:   e.UpdatedBy.String(),
		}
	},
	FromRow: func(r *PreferenceRow) *core.Preference {
		return &core.Preference{
			UserID:    core.ID(r.PartitionID),
			Feature:   r.Feature,
			Scope:     core.ID(r.Scope),
			Item:      r.Item,
			Value:     r.Value,
			UpdatedAt: r.Updated.UTC(),
			UpdatedBy: core.ID(r.UpdatedBy),
		}
	},
	Order: orderByPreferenceKey,
}
