package repository

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/taskvault/core"
	"github.com/poiesic/taskvault/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend_ZeroValue(t *testing.T) {
	var b Backend[*core.Task]
	ctx := context.Background()

	assert.Equal(t, Kind(0), b.Kind())
	assert.ErrorIs(t, b.Save(ctx, "p1", &core.Task{}), storage.ErrInvalidOperation)
	_, _, err := b.FindByID(ctx, "p1", "t1")
	assert.ErrorIs(t, err, storage.ErrInvalidOperation)
	_, err = b.FindAll(ctx, "p1")
	assert.ErrorIs(t, err, storage.ErrInvalidOperation)
	assert.ErrorIs(t, b.Delete(ctx, "p1", "t1"), storage.ErrInvalidOperation)
	_, err = b.Exists(ctx, "p1", "t1")
	assert.ErrorIs(t, err, storage.ErrInvalidOperation)
	_, err = b.Count(ctx, "p1")
	assert.ErrorIs(t, err, storage.ErrInvalidOperation)
}

func TestBackend_Dispatch(t *testing.T) {
	f := newTaskBackends(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		backend Backend[*core.Task]
		kind    Kind
	}{
		{"relational", f.relation, Relational},
		{"document", f.document, Document},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.backend.Kind())
			assert.Equal(t, tt.name, tt.backend.String())

			task := &core.Task{Record: core.Record{ID: "t-" + core.ID(tt.name), CreatedAt: time.Now().UTC()}, Title: tt.name}
			require.NoError(t, tt.backend.Save(ctx, "p1", task))

			got, found, err := tt.backend.FindByID(ctx, "p1", task.ID)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, tt.name, got.Title)

			count, err := tt.backend.Count(ctx, "p1")
			require.NoError(t, err)
			assert.Equal(t, 1, count)

			require.NoError(t, tt.backend.Delete(ctx, "p1", task.ID))
			exists, err := tt.backend.Exists(ctx, "p1", task.ID)
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "relational", Relational.String())
	assert.Equal(t, "document", Document.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
