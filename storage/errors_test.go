package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/taskvault/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesKind(t *testing.T) {
	cause := errors.New("disk full")

	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     ErrorKind
	}{
		{"not found", NotFound("task", "delete", "p1", "t1"), ErrNotFound, KindNotFound},
		{"validation", Validation("task", "save", cause), ErrValidation, KindValidation},
		{"store", StoreFailure("task", "save", "p1", cause), ErrStore, KindStore},
		{"conversion", Conversion("task", "load", "p1", cause), ErrConversion, KindConversion},
		{"invalid operation", InvalidOperation("task tag", "mark deleted", "no tombstone"), ErrInvalidOperation, KindInvalidOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(tt.err))

			// Still matches after wrapping
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(wrapped))
		})
	}
}

func TestError_PreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := StoreFailure("task", "save", "p1", cause)

	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Contains(t, err.Error(), "partition=p1")
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Equal(t, ErrorKind(0), KindOf(errors.New("plain")))
	assert.Equal(t, ErrorKind(0), KindOf(nil))
}

func TestEntityType_BindPartition(t *testing.T) {
	t.Run("scoped type requires partition", func(t *testing.T) {
		err := TaskType.BindPartition("save", core.NoPartition, &core.Task{})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("global type rejects partition", func(t *testing.T) {
		err := ProjectType.BindPartition("save", "p1", &core.Project{})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("fills empty entity key", func(t *testing.T) {
		task := &core.Task{}
		require.NoError(t, TaskType.BindPartition("save", "p1", task))
		assert.Equal(t, core.ID("p1"), task.ProjectID)
	})

	t.Run("rejects mismatched entity key", func(t *testing.T) {
		task := &core.Task{ProjectID: "p2"}
		err := TaskType.BindPartition("save", "p1", task)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, core.ID("p2"), task.ProjectID)
	})
}
