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
	"fmt"
	"slices"
	"strings"
)

// Validate checks that both endpoints of the relation are present.
func (l *Link) Validate() error {
	if l.ParentID.IsZero() || l.ChildID.IsZero() {
		return fmt.Errorf("%w: parent=%q child=%q", ErrMissingEndpoint, l.ParentID, l.ChildID)
	}
	return nil
}

// Validate checks that the preference can be addressed by a path.
//
// Validation rules:
//   - Feature and Item must not be empty
//   - Feature, Scope and Item must not contain "/"
func (p *Preference) Validate() error {
	if p.Feature == "" || p.Item == "" {
		return fmt.Errorf("%w: feature and item are required", ErrInvalidPreferenceKey)
	}
	for _, segment := range []string{p.Feature, string(p.Scope), p.Item} {
		if strings.Contains(segment, "/") {
			return fmt.Errorf("%w: %q contains '/'", ErrInvalidPreferenceKey, segment)
		}
	}
	return nil
}

// Validate checks the task's required fields.
// An empty Status is accepted and treated as open.
func (t *Task) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("task: %w", ErrEmptyName)
	}
	return ValidateTaskStatus(t.Status)
}

// Validate checks the project's required fields.
func (p *Project) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("project: %w", ErrEmptyName)
	}
	return nil
}

// ValidateTaskStatus validates that a TaskStatus has a known value.
func ValidateTaskStatus(status TaskStatus) error {
	switch status {
	case "", TaskStatusOpen, TaskStatusInProgress, TaskStatusDone:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidTaskStatus, status)
}

// MoveTask moves taskID to position index within the list order.
// Returns ErrTaskNotInList or ErrIndexOutOfRange without modifying the list.
func (l *TaskList) MoveTask(taskID ID, index int) error {
	from := slices.Index(l.TaskOrder, taskID)
	if from < 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotInList, taskID)
	}
	if index < 0 || index >= len(l.TaskOrder) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, index, len(l.TaskOrder))
	}
	order := slices.Delete(slices.Clone(l.TaskOrder), from, from+1)
	l.TaskOrder = slices.Insert(order, index, taskID)
	return nil
}
