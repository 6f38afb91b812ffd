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


package storage

import (
	"fmt"

	"github.com/poiesic/taskvault/core"
)

// Scope describes which partition an entity type lives in.
type Scope int

const (
	// ScopeGlobal entities are not partitioned.
	ScopeGlobal Scope = iota + 1
	// ScopeProject entities are partitioned by project ID.
	ScopeProject
	// ScopeUser entities are partitioned by user ID.
	ScopeUser
)

// EntityType describes a persisted entity type.
type EntityType struct {
	// Name is used in errors and logs.
	Name string
	// Collection is the document-store collection and the relational table name.
	Collection string
	Scope      Scope
}

// Scoped reports whether the type requires a partition.
func (t EntityType) Scoped() bool {
	return t.Scope != ScopeGlobal
}

// CheckPartition validates the partition argument against the type's scope.
func (t EntityType) CheckPartition(op string, partition core.ID) error {
	if t.Scoped() && partition.IsZero() {
		return Validation(t.Name, op, errPartitionRequired)
	}
	if !t.Scoped() && !partition.IsZero() {
		return Validation(t.Name, op, errPartitionForbidden)
	}
	return nil
}

// BindPartition validates partition and reconciles it with the entity's own key.
// An empty entity key is filled in; a different one is rejected.
func (t EntityType) BindPartition(op string, partition core.ID, entity Entity) error {
	if err := t.CheckPartition(op, partition); err != nil {
		return err
	}
	p, ok := entity.(Partitioned)
	if !ok {
		return nil
	}
	switch current := p.PartitionKey(); {
	case current.IsZero():
		p.SetPartitionKey(partition)
	case current != partition:
		return Validation(t.Name, op, fmt.Errorf("%w: %s", errPartitionMismatch, current))
	}
	return nil
}

// Known entity types.
var (
	ProjectType        = EntityType{Name: "project", Collection: "projects", Scope: ScopeGlobal}
	UserType           = EntityType{Name: "user", Collection: "users", Scope: ScopeGlobal}
	TaskListType       = EntityType{Name: "task list", Collection: "task_lists", Scope: ScopeProject}
	TaskType           = EntityType{Name: "task", Collection: "tasks", Scope: ScopeProject}
	SubtaskType        = EntityType{Name: "subtask", Collection: "subtasks", Scope: ScopeProject}
	TagType            = EntityType{Name: "tag", Collection: "tags", Scope: ScopeProject}
	TaskTagType        = EntityType{Name: "task tag", Collection: "task_tags", Scope: ScopeProject}
	TaskAssignmentType = EntityType{Name: "task assignment", Collection: "task_assignments", Scope: ScopeProject}
	PreferenceType     = EntityType{Name: "preference", Collection: "preferences", Scope: ScopeUser}
)
