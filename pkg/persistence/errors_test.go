package persistence_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		err := persistence.NewSaveError("Load", "crossroads", "slot-1", persistence.ErrSaveNotFound)

		assert.True(t, persistence.IsSaveNotFound(err))
		assert.True(t, errors.Is(err, persistence.ErrSaveNotFound))
		assert.False(t, persistence.IsSaveNotFound(errors.New("disk full")))
	})

	t.Run("save error contains context", func(t *testing.T) {
		err := persistence.NewSaveError("Delete", "crossroads", "slot-1", persistence.ErrSaveNotFound)

		assert.Contains(t, err.Error(), "Delete")
		assert.Contains(t, err.Error(), "slot-1")
		assert.Contains(t, err.Error(), "crossroads")
		assert.Contains(t, err.Error(), "save not found")
	})

	t.Run("graph level error omits the slot", func(t *testing.T) {
		err := persistence.NewSaveError("List", "crossroads", "", errors.New("timeout"))

		assert.Equal(t, "List operation failed for graph crossroads: timeout", err.Error())
	})
}

func TestValidateSnapshot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		snapshot *models.Snapshot
		valid    bool
	}{
		{name: "nil", snapshot: nil},
		{name: "missing slot", snapshot: &models.Snapshot{GraphID: "g", NodeID: "n"}},
		{name: "missing node", snapshot: &models.Snapshot{GraphID: "g", Slot: "s"}},
		{name: "complete", snapshot: &models.Snapshot{GraphID: "g", Slot: "s", NodeID: "n"}, valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := persistence.ValidateSnapshot(tt.snapshot)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, persistence.ErrInvalidSnapshot)
			}
		})
	}
}

func TestSortNewestFirst(t *testing.T) {
	t.Parallel()

	now := time.Now()
	snapshots := []*models.Snapshot{
		{GraphID: "g", Slot: "old", SavedAt: now.Add(-time.Hour)},
		{GraphID: "g", Slot: "b", SavedAt: now},
		{GraphID: "g", Slot: "a", SavedAt: now},
	}

	persistence.SortNewestFirst(snapshots)

	assert.Equal(t, "a", snapshots[0].Slot)
	assert.Equal(t, "b", snapshots[1].Slot)
	assert.Equal(t, "old", snapshots[2].Slot)
}

func TestStamp(t *testing.T) {
	t.Parallel()

	snapshot := &models.Snapshot{}
	persistence.Stamp(snapshot)
	assert.False(t, snapshot.SavedAt.IsZero())

	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	snapshot = &models.Snapshot{SavedAt: fixed}
	persistence.Stamp(snapshot)
	assert.Equal(t, fixed, snapshot.SavedAt)
}
