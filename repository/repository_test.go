package repository

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/taskvault/core"
	"github.com/poiesic/taskvault/storage"
	"github.com/poiesic/taskvault/storage/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newTaskRepo(save, search []Backend[*core.Task]) *Repository[*core.Task] {
	return New(storage.TaskType, save, search, WithClock(fixedClock))
}

func TestRepository_SaveAssignsIDAndStamps(t *testing.T) {
	f := newTaskBackends(t)
	repo := New(storage.TaskType, []Backend[*core.Task]{f.relation}, []Backend[*core.Task]{f.relation},
		WithClock(fixedClock),
		WithIDGenerator(func() core.ID { return "generated" }))
	ctx := context.Background()

	task := &core.Task{Title: "Draft", Status: core.TaskStatusOpen}
	require.NoError(t, repo.Save(ctx, "p1", task, storage.Stamp{Actor: "alice"}))

	assert.Equal(t, core.ID("generated"), task.ID)
	assert.Equal(t, core.ID("p1"), task.ProjectID)
	assert.Equal(t, core.ID("alice"), task.UpdatedBy)
	assert.True(t, fixedNow.Equal(task.CreatedAt))

	// A later save keeps CreatedAt and moves UpdatedAt
	later := fixedNow.Add(time.Hour)
	require.NoError(t, repo.Save(ctx, "p1", task, storage.Stamp{Actor: "bob", At: later}))

	got, found, err := repo.FindByID(ctx, "p1", "generated")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, fixedNow.Equal(got.CreatedAt))
	assert.True(t, later.Equal(got.UpdatedAt))
	assert.Equal(t, core.ID("bob"), got.UpdatedBy)
}

func TestRepository_SaveValidates(t *testing.T) {
	f := newTaskBackends(t)
	repo := newTaskRepo([]Backend[*core.Task]{f.document}, []Backend[*core.Task]{f.document})
	ctx := context.Background()

	err := repo.Save(ctx, "p1", &core.Task{}, storage.Stamp{})
	assert.ErrorIs(t, err, storage.ErrValidation)
	assert.ErrorIs(t, err, core.ErrEmptyName)

	err = repo.Save(ctx, core.NoPartition, &core.Task{Title: "x"}, storage.Stamp{})
	assert.ErrorIs(t, err, storage.ErrValidation)

	count, err := repo.Count(ctx, "p1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRepository_UpsertIdempotence(t *testing.T) {
	f := newTaskBackends(t)
	both := []Backend[*core.Task]{f.relation, f.document}
	repo := newTaskRepo(both, both)
	ctx := context.Background()
	stamp := storage.Stamp{Actor: "alice", At: fixedNow}

	task := &core.Task{Record: core.Record{ID: "t1"}, Title: "Same", Status: core.TaskStatusOpen}
	require.NoError(t, repo.Save(ctx, "p1", task, stamp))
	once, _, err := repo.FindByID(ctx, "p1", "t1")
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, "p1", task, stamp))
	twice, _, err := repo.FindByID(ctx, "p1", "t1")
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	for _, b := range both {
		count, err := b.Count(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, 1, count, b.String())
	}
}

func TestRepository_ReadPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("only later backend has the entity", func(t *testing.T) {
		f := newTaskBackends(t)
		repo := newTaskRepo(nil, []Backend[*core.Task]{f.relation, f.document})

		require.NoError(t, f.doc.Save(ctx, "p1", &core.Task{Record: core.Record{ID: "t1"}, Title: "from document"}))

		got, found, err := repo.FindByID(ctx, "p1", "t1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "from document", got.Title)

		exists, err := repo.Exists(ctx, "p1", "t1")
		require.NoError(t, err)
		assert.True(t, exists)

		// Bulk reads use the first backend only
		all, err := repo.FindAll(ctx, "p1")
		require.NoError(t, err)
		assert.Empty(t, all)
		count, err := repo.Count(ctx, "p1")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("divergent copies return the first backend's", func(t *testing.T) {
		f := newTaskBackends(t)
		repo := newTaskRepo(nil, []Backend[*core.Task]{f.relation, f.document})

		require.NoError(t, f.rel.Save(ctx, "p1", &core.Task{Record: core.Record{ID: "t1"}, Title: "relational copy"}))
		require.NoError(t, f.doc.Save(ctx, "p1", &core.Task{Record: core.Record{ID: "t1"}, Title: "document copy"}))

		got, found, err := repo.FindByID(ctx, "p1", "t1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "relational copy", got.Title)
	})

	t.Run("absent everywhere", func(t *testing.T) {
		f := newTaskBackends(t)
		repo := newTaskRepo(nil, []Backend[*core.Task]{f.relation, f.document})

		_, found, err := repo.FindByID(ctx, "p1", "t1")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestRepository_WriteThroughFanOut(t *testing.T) {
	f := newTaskBackends(t)
	repo := newTaskRepo([]Backend[*core.Task]{f.relation, f.document}, []Backend[*core.Task]{f.relation})
	ctx := context.Background()

	task := &core.Task{Title: "Fan out", Status: core.TaskStatusOpen}
	require.NoError(t, repo.Save(ctx, "p1", task, storage.Stamp{Actor: "alice"}))

	fromRel, found, err := f.rel.FindByID(ctx, "p1", task.ID)
	require.NoError(t, err)
	require.True(t, found)
	fromDoc, found, err := f.doc.FindByID(ctx, "p1", task.ID)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, "Fan out", fromRel.Title)
	assert.Equal(t, "Fan out", fromDoc.Title)
	assert.True(t, fromRel.UpdatedAt.Equal(fromDoc.UpdatedAt), "both backends receive the same stamp")

	require.NoError(t, repo.Delete(ctx, "p1", task.ID))
	for _, b := range []Backend[*core.Task]{f.relation, f.document} {
		exists, err := b.Exists(ctx, "p1", task.ID)
		require.NoError(t, err)
		assert.False(t, exists, b.String())
	}
}

func TestRepository_PartialFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("earlier write is kept", func(t *testing.T) {
		f := newTaskBackends(t)
		broken := brokenRelational(t)
		repo := newTaskRepo([]Backend[*core.Task]{f.document, broken}, []Backend[*core.Task]{f.document})

		task := &core.Task{Record: core.Record{ID: "t1"}, Title: "half written"}
		err := repo.Save(ctx, "p1", task, storage.Stamp{})
		require.Error(t, err)
		assert.ErrorIs(t, err, storage.ErrStore)
		assert.Equal(t, storage.KindStore, storage.KindOf(err))

		exists, err := f.doc.Exists(ctx, "p1", "t1")
		require.NoError(t, err)
		assert.True(t, exists)

		// Retrying is safe once the failing backend is removed
		healed := newTaskRepo([]Backend[*core.Task]{f.document, f.relation}, []Backend[*core.Task]{f.relation})
		require.NoError(t, healed.Save(ctx, "p1", task, storage.Stamp{}))
		count, err := f.doc.Count(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("later backends are not attempted", func(t *testing.T) {
		f := newTaskBackends(t)
		broken := brokenRelational(t)
		repo := newTaskRepo([]Backend[*core.Task]{broken, f.document}, nil)

		err := repo.Save(ctx, "p1", &core.Task{Record: core.Record{ID: "t1"}, Title: "x"}, storage.Stamp{})
		assert.ErrorIs(t, err, storage.ErrStore)

		exists, err := f.doc.Exists(ctx, "p1", "t1")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestRepository_PartitionIsolation(t *testing.T) {
	f := newTaskBackends(t)
	for _, search := range []Backend[*core.Task]{f.relation, f.document} {
		t.Run(search.String(), func(t *testing.T) {
			repo := newTaskRepo([]Backend[*core.Task]{f.relation, f.document}, []Backend[*core.Task]{search})
			ctx := context.Background()
			p1 := core.NewID()

			require.NoError(t, repo.Save(ctx, p1, &core.Task{Title: "only p1"}, storage.Stamp{}))

			all, err := repo.FindAll(ctx, core.NewID())
			require.NoError(t, err)
			assert.Empty(t, all)

			all, err = repo.FindAll(ctx, p1)
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestRepository_HandleSharing(t *testing.T) {
	f := newTaskBackends(t)
	ctx := context.Background()

	shared := DocumentBackend(document.NewAdapter[*core.Task](f.manager, storage.TaskType))
	independent := DocumentBackend(document.NewAdapter[*core.Task](document.NewManager(f.engine), storage.TaskType))

	// Open the independent manager's handle before the write
	_, err := independent.Count(ctx, "p1")
	require.NoError(t, err)

	writer := newTaskRepo([]Backend[*core.Task]{f.document}, nil)
	require.NoError(t, writer.Save(ctx, "p1", &core.Task{Record: core.Record{ID: "t1"}, Title: "x"}, storage.Stamp{}))

	exists, err := shared.Exists(ctx, "p1", "t1")
	require.NoError(t, err)
	assert.True(t, exists, "adapters on one manager observe each other's writes")

	exists, err = independent.Exists(ctx, "p1", "t1")
	require.NoError(t, err)
	assert.False(t, exists, "an independent manager keeps its own handle")
}

func TestRepository_SoftDeleteRoundTrip(t *testing.T) {
	f := newTaskBackends(t)
	both := []Backend[*core.Task]{f.relation, f.document}
	repo := newTaskRepo(both, both)
	ctx := context.Background()

	due := fixedNow.Add(72 * time.Hour)
	task := &core.Task{
		Title:    "Keep me",
		Notes:    "details",
		Status:   core.TaskStatusInProgress,
		Priority: 3,
		ListID:   "l1",
		DueAt:    &due,
	}
	require.NoError(t, repo.Save(ctx, "p1", task, storage.Stamp{Actor: "alice"}))
	before, _, err := repo.FindByID(ctx, "p1", task.ID)
	require.NoError(t, err)

	require.NoError(t, repo.MarkDeleted(ctx, "p1", task.ID, storage.Stamp{Actor: "bob", At: fixedNow.Add(time.Hour)}))

	for _, b := range both {
		got, found, err := b.FindByID(ctx, "p1", task.ID)
		require.NoError(t, err)
		require.True(t, found)
		assert.True(t, got.IsDeleted(), b.String())
		assert.Equal(t, core.ID("bob"), got.DeletedBy)
		assert.Equal(t, core.ID("alice"), got.UpdatedBy, "delete does not re-stamp")
	}

	require.NoError(t, repo.MarkRestored(ctx, "p1", task.ID))

	for _, b := range both {
		after, _, err := b.FindByID(ctx, "p1", task.ID)
		require.NoError(t, err)
		assert.False(t, after.IsDeleted())
		assert.Nil(t, after.DeletedAt)
		assert.Empty(t, after.DeletedBy)
		assert.Equal(t, before.Title, after.Title)
		assert.Equal(t, before.Notes, after.Notes)
		assert.Equal(t, before.Status, after.Status)
		assert.Equal(t, before.Priority, after.Priority)
		assert.Equal(t, before.ListID, after.ListID)
		assert.Equal(t, before.UpdatedBy, after.UpdatedBy)
		assert.True(t, before.CreatedAt.Equal(after.CreatedAt))
		assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))
		require.NotNil(t, after.DueAt)
		assert.True(t, before.DueAt.Equal(*after.DueAt))
	}
}

func TestRepository_SoftDeleteErrors(t *testing.T) {
	f := newTaskBackends(t)
	repo := newTaskRepo([]Backend[*core.Task]{f.document}, []Backend[*core.Task]{f.document})
	ctx := context.Background()

	err := repo.MarkDeleted(ctx, "p1", "missing", storage.Stamp{})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	links := New[*core.TaskTag](storage.TaskTagType, nil, nil)
	err = links.MarkDeleted(ctx, "p1", core.RelationKey("t1", "g1"), storage.Stamp{})
	assert.ErrorIs(t, err, storage.ErrInvalidOperation)
}

func TestRepository_NoBackends(t *testing.T) {
	repo := newTaskRepo(nil, nil)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "p1", &core.Task{Title: "nowhere"}, storage.Stamp{}))

	all, err := repo.FindAll(ctx, "p1")
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	count, err := repo.Count(ctx, "p1")
	require.NoError(t, err)
	assert.Zero(t, count)

	_, found, err := repo.FindByID(ctx, "p1", "t1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRepository_Introspection(t *testing.T) {
	f := newTaskBackends(t)
	repo := newTaskRepo([]Backend[*core.Task]{f.relation, f.document}, []Backend[*core.Task]{f.relation})

	assert.Len(t, repo.SaveBackends(), 2)
	assert.Len(t, repo.SearchBackends(), 1)
	assert.Equal(t, storage.TaskType, repo.EntityType())

	b, ok := repo.Backend(Document)
	require.True(t, ok)
	assert.Equal(t, Document, b.Kind())

	_, ok = newTaskRepo(nil, nil).Backend(Relational)
	assert.False(t, ok)
}

// Task repository with save=[Relational, Document] and search=[Relational]:
// bulk reads come from the relational store even when the document store
// still holds an entity the relational store no longer has.
func TestRepository_TaskExample(t *testing.T) {
	f := newTaskBackends(t)
	repo := newTaskRepo([]Backend[*core.Task]{f.relation, f.document}, []Backend[*core.Task]{f.relation})
	ctx := context.Background()

	stale := &core.Task{Record: core.Record{ID: "T0", CreatedAt: fixedNow}, Title: "stale"}
	require.NoError(t, f.doc.Save(ctx, "P1", stale))

	require.NoError(t, repo.Save(ctx, "P1", &core.Task{Record: core.Record{ID: "T1"}, Title: "current"}, storage.Stamp{Actor: "alice"}))

	exists, err := f.rel.Exists(ctx, "P1", "T1")
	require.NoError(t, err)
	assert.True(t, exists)

	h, err := f.manager.GetOrCreate(ctx, "P1")
	require.NoError(t, err)
	coll, found, err := document.Load[map[core.ID]*core.Task](ctx, f.manager, h, document.Path{"collections", "tasks"})
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, coll, core.ID("T1"))
	assert.Contains(t, coll, core.ID("T0"))

	all, err := repo.FindAll(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, core.ID("T1"), all[0].ID)
}
