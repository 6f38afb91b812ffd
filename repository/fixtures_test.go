package repository

import (
	"context"
	"testing"

	"github.com/poiesic/taskvault/core"
	"github.com/poiesic/taskvault/storage"
	"github.com/poiesic/taskvault/storage/badger"
	"github.com/poiesic/taskvault/storage/document"
	"github.com/poiesic/taskvault/storage/relational"
	"github.com/stretchr/testify/require"
)

type taskBackends struct {
	db       *relational.DB
	engine   *badger.DocumentStore
	manager  *document.Manager
	rel      *relational.Adapter[*core.Task]
	doc      *document.Adapter[*core.Task]
	relation Backend[*core.Task]
	document Backend[*core.Task]
}

func newTaskBackends(t *testing.T) *taskBackends {
	t.Helper()

	db, err := relational.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	engine, backend, err := badger.NewMemoryDocumentStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		engine.Close()
		backend.Close()
	})

	manager := document.NewManager(engine)
	rel := relational.NewAdapter(db, storage.TaskType, relational.TaskMapping)
	doc := document.NewAdapter[*core.Task](manager, storage.TaskType)

	return &taskBackends{
		db:       db,
		engine:   engine,
		manager:  manager,
		rel:      rel,
		doc:      doc,
		relation: RelationalBackend(rel),
		document: DocumentBackend(doc),
	}
}

// brokenRelational returns a relational backend whose database is closed.
func brokenRelational(t *testing.T) Backend[*core.Task] {
	t.Helper()
	db, err := relational.OpenMemory()
	require.NoError(t, err)
	require.NoError(t, db.Close())
	return RelationalBackend(relational.NewAdapter(db, storage.TaskType, relational.TaskMapping))
}
