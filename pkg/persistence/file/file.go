// Package file provides file-based persistence for save slots.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file
// system. Snapshots live at <root>/saves/<graph_id>/<slot>.json.
type Persistence struct {
	root string
	mu   sync.RWMutex
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{root: cleanRoot}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks that the root directory exists or can be created.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	err := os.MkdirAll(fp.root, 0750)
	if err != nil {
		return fmt.Errorf("save directory %s is not usable: %w", fp.root, err)
	}

	return nil
}

// Save writes the snapshot, replacing the slot's previous content.
func (fp *Persistence) Save(_ context.Context, snapshot *models.Snapshot) error {
	err := persistence.ValidateSnapshot(snapshot)
	if err != nil {
		return err
	}

	err = checkNames(snapshot.GraphID, snapshot.Slot)
	if err != nil {
		return persistence.NewSaveError("Save", snapshot.GraphID, snapshot.Slot, err)
	}

	persistence.Stamp(snapshot)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot %s: %w", snapshot.Slot, err)
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	dir := fp.graphDir(snapshot.GraphID)

	err = os.MkdirAll(dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create saves directory: %w", err)
	}

	// Write then rename so a crash never leaves a truncated slot.
	tmp := filepath.Join(dir, "."+snapshot.Slot+".tmp")

	err = os.WriteFile(tmp, data, 0600)
	if err != nil {
		return persistence.NewSaveError("Save", snapshot.GraphID, snapshot.Slot, err)
	}

	err = os.Rename(tmp, fp.slotPath(snapshot.GraphID, snapshot.Slot))
	if err != nil {
		return persistence.NewSaveError("Save", snapshot.GraphID, snapshot.Slot, err)
	}

	return nil
}

// Load reads a slot.
func (fp *Persistence) Load(_ context.Context, graphID, slot string) (*models.Snapshot, error) {
	err := checkNames(graphID, slot)
	if err != nil {
		return nil, persistence.NewSaveError("Load", graphID, slot, err)
	}

	fp.mu.RLock()
	defer fp.mu.RUnlock()

	return readSnapshot(fp.slotPath(graphID, slot), graphID, slot)
}

// List returns the snapshots of graphID, or of every graph when graphID is empty.
func (fp *Persistence) List(_ context.Context, graphID string) ([]*models.Snapshot, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	pattern := "*/*.json"
	if graphID != "" {
		err := checkNames(graphID, "list")
		if err != nil {
			return nil, persistence.NewSaveError("List", graphID, "", err)
		}

		pattern = graphID + "/*.json"
	}

	root := os.DirFS(filepath.Join(fp.root, "saves"))

	jsonFiles, err := fs.Glob(root, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list save files: %w", err)
	}

	snapshots := make([]*models.Snapshot, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		graph := filepath.Dir(file)
		slot := strings.TrimSuffix(filepath.Base(file), ".json")

		snapshot, err := readSnapshot(fp.slotPath(graph, slot), graph, slot)
		if err != nil {
			return nil, err
		}

		snapshots = append(snapshots, snapshot)
	}

	persistence.SortNewestFirst(snapshots)

	return snapshots, nil
}

// Delete removes a slot.
func (fp *Persistence) Delete(_ context.Context, graphID, slot string) error {
	err := checkNames(graphID, slot)
	if err != nil {
		return persistence.NewSaveError("Delete", graphID, slot, err)
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	err = os.Remove(fp.slotPath(graphID, slot))
	if err != nil && !os.IsNotExist(err) {
		return persistence.NewSaveError("Delete", graphID, slot, err)
	}

	return nil
}

func (fp *Persistence) graphDir(graphID string) string {
	return filepath.Join(fp.root, "saves", graphID)
}

func (fp *Persistence) slotPath(graphID, slot string) string {
	return filepath.Join(fp.graphDir(graphID), slot+".json")
}

func readSnapshot(path, graphID, slot string) (*models.Snapshot, error) {
	body, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewSaveError("Load", graphID, slot, persistence.ErrSaveNotFound)
		}

		return nil, persistence.NewSaveError("Load", graphID, slot, err)
	}

	var snapshot models.Snapshot

	err = json.Unmarshal(body, &snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", slot, err)
	}

	return &snapshot, nil
}

// checkNames rejects ids that would escape the saves directory.
func checkNames(names ...string) error {
	for _, name := range names {
		if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("%w: unusable name %q", persistence.ErrInvalidSnapshot, name)
		}
	}

	return nil
}
