package document

import (
	"testing"

	"github.com/poiesic/taskvault/storage/badger"
	"github.com/stretchr/testify/require"
)

// newTestEngine opens an in-memory document store closed at test end.
func newTestEngine(t *testing.T) *badger.DocumentStore {
	t.Helper()
	store, backend, err := badger.NewMemoryDocumentStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		backend.Close()
	})
	return store
}
