package relational

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/taskvault/core"
	"github.com/poiesic/taskvault/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func newTask(id core.ID, title string, created time.Time) *core.Task {
	return &core.Task{
		Record: core.Record{ID: id, CreatedAt: created, UpdatedAt: created, UpdatedBy: "alice"},
		Title:  title,
		Status: core.TaskStatusOpen,
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("oracle", "dsn")
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestAdapter_SaveFind(t *testing.T) {
	tasks := NewAdapter(newTestDB(t), storage.TaskType, TaskMapping)
	ctx := context.Background()
	now := time.Date(2025, 5, 4, 10, 0, 0, 0, time.UTC)
	due := now.Add(24 * time.Hour)

	task := newTask("t1", "Plan sprint", now)
	task.ListID = "l1"
	task.DueAt = &due
	require.NoError(t, tasks.Save(ctx, "p1", task))

	got, found, err := tasks.FindByID(ctx, "p1", "t1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Plan sprint", got.Title)
	assert.Equal(t, core.ID("p1"), got.ProjectID)
	assert.Equal(t, core.ID("l1"), got.ListID)
	assert.Equal(t, core.TaskStatusOpen, got.Status)
	assert.Equal(t, core.ID("alice"), got.UpdatedBy)
	assert.True(t, now.Equal(got.CreatedAt))
	require.NotNil(t, got.DueAt)
	assert.True(t, due.Equal(*got.DueAt))
	assert.Nil(t, got.CompletedAt)

	_, found, err = tasks.FindByID(ctx, "p1", "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAdapter_UpsertIdempotent(t *testing.T) {
	tasks := NewAdapter(newTestDB(t), storage.TaskType, TaskMapping)
	ctx := context.Background()

	task := newTask("t1", "first", time.Now().UTC())
	require.NoError(t, tasks.Save(ctx, "p1", task))
	require.NoError(t, tasks.Save(ctx, "p1", task))

	task.Title = "second"
	task.MarkDeleted("bob", time.Now())
	require.NoError(t, tasks.Save(ctx, "p1", task))

	count, err := tasks.Count(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, _, err := tasks.FindByID(ctx, "p1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Title)
	assert.True(t, got.IsDeleted())
	assert.Equal(t, core.ID("bob"), got.DeletedBy)
}

func TestAdapter_FindAllOrdered(t *testing.T) {
	tasks := NewAdapter(newTestDB(t), storage.TaskType, TaskMapping)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, tasks.Save(ctx, "p1", newTask("c", "third", base.Add(time.Hour))))
	require.NoError(t, tasks.Save(ctx, "p1", newTask("b", "second", base)))
	require.NoError(t, tasks.Save(ctx, "p1", newTask("a", "first", base)))

	all, err := tasks.FindAll(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{all[0].Title, all[1].Title, all[2].Title})
}

func TestAdapter_PartitionIsolation(t *testing.T) {
	tasks := NewAdapter(newTestDB(t), storage.TaskType, TaskMapping)
	ctx := context.Background()

	require.NoError(t, tasks.Save(ctx, "p1", newTask("t1", "in p1", time.Now())))
	require.NoError(t, tasks.Save(ctx, "p2", newTask("t1", "in p2", time.Now())))

	got, _, err := tasks.FindByID(ctx, "p2", "t1")
	require.NoError(t, err)
	assert.Equal(t, "in p2", got.Title)

	require.NoError(t, tasks.Delete(ctx, "p1", "t1"))

	exists, err := tasks.Exists(ctx, "p2", "t1")
	require.NoError(t, err)
	assert.True(t, exists)

	count, err := tasks.Count(ctx, "p3")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAdapter_DeleteMissing(t *testing.T) {
	tasks := NewAdapter(newTestDB(t), storage.TaskType, TaskMapping)

	err := tasks.Delete(context.Background(), "p1", "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAdapter_PartitionRules(t *testing.T) {
	db := newTestDB(t)
	tasks := NewAdapter(db, storage.TaskType, TaskMapping)
	users := NewAdapter(db, storage.UserType, UserMapping)
	ctx := context.Background()

	err := tasks.Save(ctx, core.NoPartition, newTask("t1", "x", time.Now()))
	assert.ErrorIs(t, err, storage.ErrValidation)

	err = users.Save(ctx, "p1", &core.User{Record: core.Record{ID: "u1"}})
	assert.ErrorIs(t, err, storage.ErrValidation)

	err = tasks.Save(ctx, "p1", &core.Task{Title: "no id"})
	assert.ErrorIs(t, err, storage.ErrValidation)
}

func TestAdapter_GlobalAndCollections(t *testing.T) {
	db := newTestDB(t)
	projects := NewAdapter(db, storage.ProjectType, ProjectMapping)
	lists := NewAdapter(db, storage.TaskListType, TaskListMapping)
	ctx := context.Background()

	require.NoError(t, projects.Save(ctx, core.NoPartition, &core.Project{
		Record:  core.Record{ID: "p1"},
		Name:    "Launch",
		OwnerID: "u1",
	}))
	require.NoError(t, lists.Save(ctx, "p1", &core.TaskList{
		Record:    core.Record{ID: "l1"},
		Name:      "Backlog",
		TaskOrder: []core.ID{"t2", "t1"},
	}))

	project, found, err := projects.FindByID(ctx, core.NoPartition, "p1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, core.ID("u1"), project.OwnerID)

	list, found, err := lists.FindByID(ctx, "p1", "l1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []core.ID{"t2", "t1"}, list.TaskOrder)
}

func TestAdapter_Relations(t *testing.T) {
	links := NewAdapter(newTestDB(t), storage.TaskTagType, TaskTagMapping)
	ctx := context.Background()

	link := &core.TaskTag{Link: core.Link{ParentID: "t1", ChildID: "g1", CreatedAt: time.Now().UTC()}}
	require.NoError(t, links.Save(ctx, "p1", link))
	require.NoError(t, links.Save(ctx, "p1", link))

	all, err := links.FindAll(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, core.ID("t1"), all[0].Parent())
	assert.Equal(t, core.ID("g1"), all[0].Child())
	assert.Equal(t, core.ID("p1"), all[0].ProjectID)

	require.NoError(t, links.Delete(ctx, "p1", core.RelationKey("t1", "g1")))
	err = links.Delete(ctx, "p1", core.RelationKey("t1", "g1"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAdapter_Preferences(t *testing.T) {
	prefs := NewAdapter(newTestDB(t), storage.PreferenceType, PreferenceMapping)
	ctx := context.Background()

	require.NoError(t, prefs.Save(ctx, "u1", &core.Preference{Feature: "theme", Item: "mode", Value: "dark"}))
	require.NoError(t, prefs.Save(ctx, "u1", &core.Preference{Feature: "board", Scope: "p1", Item: "columns", Value: "3"}))

	all, err := prefs.FindAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "board", all[0].Feature)
	assert.Equal(t, core.ID("u1"), all[0].UserID)

	got, found, err := prefs.FindByID(ctx, "u1", core.PreferenceKey("theme", "", "mode"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "dark", got.Value)
}

func TestAdapter_ClosedDatabase(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	tasks := NewAdapter(db, storage.TaskType, TaskMapping)
	require.NoError(t, db.Close())

	err = tasks.Save(context.Background(), "p1", newTask("t1", "x", time.Now()))
	assert.ErrorIs(t, err, storage.ErrStore)

	_, _, err = tasks.FindByID(context.Background(), "p1", "t1")
	assert.ErrorIs(t, err, storage.ErrStore)
}

func TestAdapter_GlobalUpsert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	created := time.Date(2025, 5, 4, 10, 0, 0, 0, time.UTC)

	t.Run("project", func(t *testing.T) {
		projects := NewAdapter(db, storage.ProjectType, ProjectMapping)
		p := &core.Project{Record: core.Record{ID: "p1", CreatedAt: created, UpdatedAt: created}, Name: "Launch"}
		require.NoError(t, projects.Save(ctx, core.NoPartition, p))

		p.Name = "Relaunch"
		p.MarkDeleted("bob", created.Add(time.Hour))
		require.NoError(t, projects.Save(ctx, core.NoPartition, p))

		got, found, err := projects.FindByID(ctx, core.NoPartition, "p1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "Relaunch", got.Name)
		assert.True(t, got.IsDeleted())
		assert.True(t, created.Equal(got.CreatedAt))

		count, err := projects.Count(ctx, core.NoPartition)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("user", func(t *testing.T) {
		users := NewAdapter(db, storage.UserType, UserMapping)
		u := &core.User{Record: core.Record{ID: "u1", CreatedAt: created}, Name: "ada", Email: "ada@example.com"}
		require.NoError(t, users.Save(ctx, core.NoPartition, u))

		u.Email = "ada@lovelace.dev"
		require.NoError(t, users.Save(ctx, core.NoPartition, u))

		got, found, err := users.FindByID(ctx, core.NoPartition, "u1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "ada@lovelace.dev", got.Email)
	})
}

func TestAdapter_PreferenceOrder(t *testing.T) {
	prefs := NewAdapter(newTestDB(t), storage.PreferenceType, PreferenceMapping)
	ctx := context.Background()

	for _, p := range []*core.Preference{
		{Feature: "ui-x", Item: "a"},
		{Feature: "ui", Scope: "p1", Item: "b"},
		{Feature: "ui", Item: "a"},
	} {
		require.NoError(t, prefs.Save(ctx, "u1", p))
	}

	all, err := prefs.FindAll(ctx, "u1")
	require.NoError(t, err)
	var keys []core.ID
	for _, p := range all {
		keys = append(keys, p.EntityID())
	}
	assert.Equal(t, []core.ID{"ui//a", "ui/p1/b", "ui-x//a"}, keys)
}
