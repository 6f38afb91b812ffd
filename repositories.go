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


package taskvault

import (
	"context"
	"slices"

	"github.com/poiesic/taskvault/config"
	"github.com/poiesic/taskvault/core"
	"github.com/poiesic/taskvault/repository"
	"github.com/poiesic/taskvault/storage"
	"github.com/poiesic/taskvault/storage/document"
	"github.com/poiesic/taskvault/storage/relational"
)

// Repositories is the repository set built from one configuration.
type Repositories struct {
	Projects        *repository.Repository[*core.Project]
	Users           *repository.Repository[*core.User]
	TaskLists       *repository.Repository[*core.TaskList]
	Tasks           *repository.Repository[*core.Task]
	Subtasks        *repository.Repository[*core.Subtask]
	Tags            *repository.Repository[*core.Tag]
	TaskTags        *repository.Repository[*core.TaskTag]
	TaskAssignments *repository.Repository[*core.TaskAssignment]
	Preferences     *repository.Repository[*core.Preference]
}

func newRepositories(res *resources, opts []repository.Option) *Repositories {
	return &Repositories{
		Projects: assemble(res, storage.ProjectType, relational.ProjectMapping,
			document.NewAdapter[*core.Project], opts),
		Users: assemble(res, storage.UserType, relational.UserMapping,
			document.NewAdapter[*core.User], opts),
		TaskLists: assemble(res, storage.TaskListType, relational.TaskListMapping,
			document.NewAdapter[*core.TaskList], opts),
		Tasks: assemble(res, storage.TaskType, relational.TaskMapping,
			document.NewAdapter[*core.Task], opts),
		Subtasks: assemble(res, storage.SubtaskType, relational.SubtaskMapping,
			document.NewAdapter[*core.Subtask], opts),
		Tags: assemble(res, storage.TagType, relational.TagMapping,
			document.NewAdapter[*core.Tag], opts),
		TaskTags: assemble(res, storage.TaskTagType, relational.TaskTagMapping,
			document.NewAdapter[*core.TaskTag], opts),
		TaskAssignments: assemble(res, storage.TaskAssignmentType, relational.TaskAssignmentMapping,
			document.NewAdapter[*core.TaskAssignment], opts),
		Preferences: assemble(res, storage.PreferenceType, relational.PreferenceMapping,
			func(m *document.Manager, _ storage.EntityType) *document.Adapter[*core.Preference] {
				return document.NewPreferenceAdapter(m)
			}, opts),
	}
}

// assemble builds one repository from the backend flags in res.cfg.
func assemble[T storage.Entity, R any](
	res *resources,
	typ storage.EntityType,
	mapping relational.Mapping[T, R],
	newDocument func(*document.Manager, storage.EntityType) *document.Adapter[T],
	opts []repository.Option,
) *repository.Repository[T] {
	var rel, doc repository.Backend[T]
	if res.db != nil {
		rel = repository.RelationalBackend(relational.NewAdapter(res.db, typ, mapping))
	}
	if res.documents != nil {
		doc = repository.DocumentBackend(newDocument(res.documents, typ))
	}
	save, search := backendLists(res.cfg.Backends, rel, doc)
	return repository.New(typ, save, search, opts...)
}

func backendLists[T storage.Entity](flags config.BackendsConfig, rel, doc repository.Backend[T]) (save, search []repository.Backend[T]) {
	if flags.RelationalSave {
		save = append(save, rel)
	}
	if flags.DocumentSave {
		save = append(save, doc)
	}
	switch {
	case flags.RelationalSearch:
		search = []repository.Backend[T]{rel}
	case flags.DocumentSave:
		search = []repository.Backend[T]{doc}
	}
	return save, search
}

// ReorderTask moves taskID to index inside its list's task order and saves the list.
func (r *Repositories) ReorderTask(ctx context.Context, projectID, listID, taskID core.ID, index int, stamp storage.Stamp) error {
	const op = "reorder task"
	list, found, err := r.TaskLists.FindByID(ctx, projectID, listID)
	if err != nil {
		return err
	}
	if !found {
		return storage.NotFound(storage.TaskListType.Name, op, projectID, listID)
	}
	if err := list.MoveTask(taskID, index); err != nil {
		return storage.Validation(storage.TaskListType.Name, op, err)
	}
	return r.TaskLists.Save(ctx, projectID, list, stamp)
}

// AddTaskToList appends taskID to the list's task order if it is not already there.
func (r *Repositories) AddTaskToList(ctx context.Context, projectID, listID, taskID core.ID, stamp storage.Stamp) error {
	const op = "add task to list"
	list, found, err := r.TaskLists.FindByID(ctx, projectID, listID)
	if err != nil {
		return err
	}
	if !found {
		return storage.NotFound(storage.TaskListType.Name, op, projectID, listID)
	}
	if slices.Contains(list.TaskOrder, taskID) {
		return nil
	}
	list.TaskOrder = append(list.TaskOrder, taskID)
	return r.TaskLists.Save(ctx, projectID, list, stamp)
}

// TagTask links a tag to a task. Linking twice is a no-op.
func (r *Repositories) TagTask(ctx context.Context, projectID, taskID, tagID core.ID, stamp storage.Stamp) error {
	link := &core.TaskTag{Link: core.Link{ProjectID: projectID, ParentID: taskID, ChildID: tagID}}
	if existing, found, err := r.TaskTags.FindByID(ctx, projectID, link.EntityID()); err != nil {
		return err
	} else if found {
		link = existing
	}
	return r.TaskTags.Save(ctx, projectID, link, stamp)
}

// UntagTask removes the link between a task and a tag.
func (r *Repositories) UntagTask(ctx context.Context, projectID, taskID, tagID core.ID) error {
	return r.TaskTags.Delete(ctx, projectID, core.RelationKey(taskID, tagID))
}

// AssignTask links a user to a task. Assigning twice is a no-op.
func (r *Repositories) AssignTask(ctx context.Context, projectID, taskID, userID core.ID, stamp storage.Stamp) error {
	link := &core.TaskAssignment{Link: core.Link{ProjectID: projectID, ParentID: taskID, ChildID: userID}}
	if existing, found, err := r.TaskAssignments.FindByID(ctx, projectID, link.EntityID()); err != nil {
		return err
	} else if found {
		link = existing
	}
	return r.TaskAssignments.Save(ctx, projectID, link, stamp)
}

// UnassignTask removes a user's assignment from a task.
func (r *Repositories) UnassignTask(ctx context.Context, projectID, taskID, userID core.ID) error {
	return r.TaskAssignments.Delete(ctx, projectID, core.RelationKey(taskID, userID))
}
