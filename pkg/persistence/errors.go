package persistence

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dukex/storyflow/pkg/models"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrSaveNotFound indicates no snapshot exists in the requested slot.
	ErrSaveNotFound = errors.New("save not found")

	// ErrInvalidSnapshot indicates a snapshot without graph, slot or node.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// SaveError wraps slot-related errors with additional context.
type SaveError struct {
	Op      string // Operation being performed (e.g., "Load", "Save", "Delete")
	GraphID string // Graph the slot belongs to
	Slot    string // Slot name if applicable
	Err     error  // Underlying error
}

func (e *SaveError) Error() string {
	if e.Slot == "" {
		return fmt.Sprintf("%s operation failed for graph %s: %v", e.Op, e.GraphID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for slot %s of graph %s: %v", e.Op, e.Slot, e.GraphID, e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for save errors.
func (e *SaveError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewSaveError creates a new save error with context.
func NewSaveError(op, graphID, slot string, err error) *SaveError {
	return &SaveError{
		Op:      op,
		GraphID: graphID,
		Slot:    slot,
		Err:     err,
	}
}

// IsSaveNotFound checks if an error indicates a slot was not found.
func IsSaveNotFound(err error) bool {
	return errors.Is(err, ErrSaveNotFound)
}

// ValidateSnapshot checks the keys every store relies on.
func ValidateSnapshot(snapshot *models.Snapshot) error {
	if snapshot == nil || snapshot.GraphID == "" || snapshot.Slot == "" || snapshot.NodeID == "" {
		return ErrInvalidSnapshot
	}

	return nil
}

// Stamp sets SavedAt when it is missing.
func Stamp(snapshot *models.Snapshot) {
	if snapshot.SavedAt.IsZero() {
		snapshot.SavedAt = time.Now().UTC()
	}
}

// SortNewestFirst orders snapshots by SavedAt descending, then by graph and slot.
func SortNewestFirst(snapshots []*models.Snapshot) {
	slices.SortStableFunc(snapshots, func(a, b *models.Snapshot) int {
		if c := b.SavedAt.Compare(a.SavedAt); c != 0 {
			return c
		}

		if c := cmp.Compare(a.GraphID, b.GraphID); c != 0 {
			return c
		}

		return cmp.Compare(a.Slot, b.Slot)
	})
}
