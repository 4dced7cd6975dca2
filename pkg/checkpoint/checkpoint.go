/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: checkpoint.go
Description: Checkpoint persistence for the Akira ABC-SMC sampler. Writes one
deterministic JSON snapshot of {run id, iteration, tolerance, population} per
completed iteration and restores the most recent one on restart, so a resumed
run replays no earlier iterations.
*/

package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kleascm/akira-abc/pkg/interfaces"
	"github.com/kleascm/akira-abc/pkg/population"
)

// Record is one serialized snapshot of sampler state.
type Record struct {
	RunID      string                 `json:"run_id"`
	Iteration  int                    `json:"iteration"`
	Tolerance  float64                `json:"tolerance"`
	Population *population.Population `json:"population"`
}

// FileStore persists checkpoint records to a single file, newest snapshot
// replacing the previous one.
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the checkpoint file path.
func (s *FileStore) Path() string { return s.path }

// Save writes the record, replacing any previous checkpoint. The write goes
// through a temp file and rename so a crash never leaves a torn checkpoint.
func (s *FileStore) Save(rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return &interfaces.CheckpointError{Path: s.path, Cause: err}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return &interfaces.CheckpointError{Path: s.path, Cause: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return &interfaces.CheckpointError{Path: s.path, Cause: err}
	}
	return nil
}

// Load reads the most recent checkpoint. A missing file is not an error and
// returns (nil, nil); unreadable or corrupt content is a CheckpointError.
func (s *FileStore) Load() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &interfaces.CheckpointError{Path: s.path, Cause: err}
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &interfaces.CheckpointError{Path: s.path, Cause: err}
	}
	if rec.Population == nil || rec.Population.Len() == 0 {
		return nil, &interfaces.CheckpointError{Path: s.path, Cause: fmt.Errorf("empty population")}
	}
	return &rec, nil
}
