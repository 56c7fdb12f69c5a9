// Package tracker implements persistence of training runs: the
// on-disk run folder layout, static agent snapshots, per-episode
// checkpoints, and episodic return tracking.
package tracker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// checkpointDir is the subfolder of a run that holds per-episode
// progress snapshots
const checkpointDir = "checkpoints"

// Run owns the save folder of a single training run. Runs are laid
// out as {base}/{agent}/{environment}/{date}/{time}, holding an
// agent.json static snapshot and one checkpoint file per episode.
type Run struct {
	dir string
}

// NewRun creates the save folder for a training run rooted at base
// and returns the Run owning it
func NewRun(base, agentName, envName string) (*Run, error) {
	now := time.Now()
	dir := filepath.Join(
		base,
		agentName,
		envName,
		now.Format("2006-01-02"),
		now.Format("15:04:05"),
	)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "newrun: could not create save folder")
	}

	return &Run{dir: dir}, nil
}

// Dir returns the root folder of the run
func (r *Run) Dir() string {
	return r.dir
}

// SaveInfo writes the static agent snapshot to agent.json in the run
// folder
func (r *Run) SaveInfo(info interface{}) error {
	data, err := json.MarshalIndent(info, "", "    ")
	if err != nil {
		return errors.Wrap(err, "saveinfo: could not marshal agent info")
	}

	path := filepath.Join(r.dir, "agent.json")
	return errors.Wrap(os.WriteFile(path, data, 0o644),
		"saveinfo: could not write agent info")
}

// SaveCheckpoint writes one progress snapshot to a timestamped file
// under the run's checkpoints folder
func (r *Run) SaveCheckpoint(progress interface{}) error {
	dir := filepath.Join(r.dir, checkpointDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "savecheckpoint: could not create "+
			"checkpoints folder")
	}

	data, err := json.Marshal(progress)
	if err != nil {
		return errors.Wrap(err, "savecheckpoint: could not marshal progress")
	}

	name := strconv.FormatInt(time.Now().UnixNano(), 10) + ".json"
	return errors.Wrap(os.WriteFile(filepath.Join(dir, name), data, 0o644),
		"savecheckpoint: could not write checkpoint")
}
