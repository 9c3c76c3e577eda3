// Package checkpoint persists workflow progress to disk as one JSON file
// per active workflow, written atomically via a temp-file-plus-rename, so a
// crashed engine can resume without re-running completed steps.
//
// Grounded on the atomic-write pattern from the retrieval pack's
// filestore.AtomicWrite (temp file + os.Rename, directory auto-creation)
// generalized from a single-process key-value store to per-workflow
// checkpoint files, and on the teacher's pkg/checkpoint for the
// Save/Load/Delete surface shape and config SetDefaults() convention.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/orchestr8/taskflow/internal/errs"
)

// StepStatus mirrors a workflow step's lifecycle at checkpoint time.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepCancelled StepStatus = "cancelled"
)

// StepState is one step's recorded progress.
type StepState struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      StepStatus `json:"status"`
	RetryCount  int        `json:"retry_count"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// State is the full on-disk shape of a single workflow's checkpoint.
type State struct {
	WorkflowID     string      `json:"workflow_id"`
	WorkflowName   string      `json:"workflow_name"`
	CompletedSteps []string    `json:"completed_steps"`
	Steps          []StepState `json:"steps"`
	Timestamp      time.Time   `json:"timestamp"`
}

// Config configures the checkpoint store.
type Config struct {
	Dir     string
	Enabled bool
}

// SetDefaults fills zero-valued fields with documented defaults.
func (c *Config) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "checkpoints"
	}
}

// Store persists and retrieves per-workflow checkpoint files under a single
// directory, one JSON file per workflow named by its ID.
type Store struct {
	dir     string
	enabled bool
}

// NewStore creates a checkpoint store rooted at cfg.Dir.
func NewStore(cfg Config) *Store {
	cfg.SetDefaults()
	return &Store{dir: cfg.Dir, enabled: cfg.Enabled}
}

// Enabled reports whether checkpointing is active.
func (s *Store) Enabled() bool { return s.enabled }

func (s *Store) pathFor(workflowID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.json", workflowID))
}

// Save writes state atomically. A CheckpointIOError here is non-fatal to the
// caller's in-flight step — the step already completed — but is returned so
// the caller can log it and continue without checkpoint protection.
func (s *Store) Save(state State) error {
	if !s.enabled {
		return nil
	}
	state.Timestamp = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errs.New("checkpoint.Store", "Save", errs.KindCheckpointIO, "failed to marshal checkpoint", err)
	}
	data = append(data, '\n')

	if err := atomicWrite(s.pathFor(state.WorkflowID), data, 0o644); err != nil {
		return errs.New("checkpoint.Store", "Save", errs.KindCheckpointIO, "failed to write checkpoint", err)
	}
	return nil
}

// Load reads the checkpoint for workflowID. A missing file is reported as
// (State{}, false, nil), not an error — there is simply nothing to resume.
func (s *Store) Load(workflowID string) (State, bool, error) {
	data, err := os.ReadFile(s.pathFor(workflowID))
	if os.IsNotExist(err) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, errs.New("checkpoint.Store", "Load", errs.KindCheckpointIO, "failed to read checkpoint", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, false, errs.New("checkpoint.Store", "Load", errs.KindCheckpointIO, "failed to parse checkpoint", err)
	}
	return state, true, nil
}

// Delete removes a workflow's checkpoint file. Deleting a missing file is a
// no-op, matching the "delete on terminal status" contract regardless of
// whether a checkpoint was ever written.
func (s *Store) Delete(workflowID string) error {
	err := os.Remove(s.pathFor(workflowID))
	if err != nil && !os.IsNotExist(err) {
		return errs.New("checkpoint.Store", "Delete", errs.KindCheckpointIO, "failed to delete checkpoint", err)
	}
	return nil
}

// atomicWrite writes data to path via a temp file in the same directory
// followed by os.Rename, so a crash never leaves a partially written
// checkpoint. The rename is the only point of contention and is serialized
// by the OS.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
