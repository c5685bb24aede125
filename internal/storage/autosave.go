package storage

import (
	"github.com/dudecon/SpaceWheat-sub021/internal/biome"
)

// AutosaveJob periodically persists all subsystem states. Runs on the
// scheduler, never on the simulation thread.
type AutosaveJob struct {
	store *Store
	subs  func() []*biome.Subsystem
}

// NewAutosaveJob creates the autosave job. The subsystem list is resolved
// at run time so late-registered biomes are included.
func NewAutosaveJob(store *Store, subs func() []*biome.Subsystem) *AutosaveJob {
	return &AutosaveJob{store: store, subs: subs}
}

// Name implements scheduler.Job
func (j *AutosaveJob) Name() string { return "autosave" }

// Run implements scheduler.Job
func (j *AutosaveJob) Run() error {
	return j.store.Save(j.subs())
}
