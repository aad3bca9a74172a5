package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/grantley-gardens/tribunal-cli/internal/model"
)

// Checkpoint persists record store snapshots as a JSON file so an
// interrupted run resumes without redoing completed work. Writes go to a
// temp file in the same directory followed by a rename, so a crash mid-
// write never corrupts the previous snapshot.
type Checkpoint struct {
	Path string
}

type snapshotMeta struct {
	Source  string    `json:"source,omitempty"`
	SavedAt time.Time `json:"saved_at"`
	Total   int       `json:"total_decisions"`
}

type snapshotFile struct {
	Metadata  snapshotMeta      `json:"metadata"`
	Decisions []*model.Decision `json:"decisions"`
}

// NewCheckpoint creates a checkpoint bound to the given path.
func NewCheckpoint(path string) *Checkpoint {
	return &Checkpoint{Path: path}
}

// Exists reports whether a snapshot is present on disk.
func (c *Checkpoint) Exists() bool {
	_, err := os.Stat(c.Path)
	return err == nil
}

// Save writes a consistent snapshot of the store. The in-memory copy is
// taken under the store's read lock; marshalling and the disk write happen
// outside it.
func (c *Checkpoint) Save(s *RecordStore, source string) error {
	snap := snapshotFile{
		Metadata: snapshotMeta{
			Source:  source,
			SavedAt: time.Now().UTC(),
		},
		Decisions: s.Snapshot(),
	}
	snap.Metadata.Total = len(snap.Decisions)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return eris.Wrap(err, "checkpoint: marshal snapshot")
	}

	if dir := filepath.Dir(c.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "checkpoint: mkdir %s", dir)
		}
	}

	tmp := c.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(err, "checkpoint: write %s", tmp)
	}
	if err := os.Rename(tmp, c.Path); err != nil {
		return eris.Wrapf(err, "checkpoint: rename %s", c.Path)
	}
	return nil
}

// Load restores the last snapshot into the store. Any record not marked
// done is reset to pending regardless of its last observed state, so a
// record interrupted mid-enrichment is simply redone.
func (c *Checkpoint) Load(s *RecordStore) (int, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return 0, eris.Wrapf(err, "checkpoint: read %s", c.Path)
	}

	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return 0, eris.Wrapf(err, "checkpoint: unmarshal %s", c.Path)
	}

	s.ReplaceAll(snap.Decisions)
	reset := s.ResetTransient()
	return reset, nil
}
