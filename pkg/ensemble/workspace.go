package ensemble

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fuzzpool/fuzzpool/pkg/config"
)

const (
	queueDirName = "queue"
	crashDirName = "crashes"
	hangDirName  = "hangs"
	seedDirName  = "new_seeds"

	statsFileName = "fuzzer_stats"
)

// Workspace owns a worker's local directory layout beneath the output
// root. It is created once at setup and persists for the whole run so
// that fuzzing can be resumed; nothing in this system ever deletes it.
type Workspace struct {
	OutputRoot string
	QueueDir   string
	CrashDir   string
	HangDir    string

	// SeedQueueDir is the node-wide queue for newly claimed seeds. It
	// is only populated (and created) for the primary worker.
	SeedQueueDir string
}

// NewWorkspace computes the workspace layout for a worker. Nothing is
// created until Ensure is called.
func NewWorkspace(outputRoot string, id WorkerIdentity) *Workspace {
	ws := &Workspace{
		OutputRoot: outputRoot,
		QueueDir:   filepath.Join(outputRoot, id.Name, queueDirName),
		CrashDir:   filepath.Join(outputRoot, id.Name, crashDirName),
		HangDir:    filepath.Join(outputRoot, id.Name, hangDirName),
	}
	if id.Primary {
		ws.SeedQueueDir = filepath.Join(outputRoot, seedDirName, queueDirName)
	}
	return ws
}

// Ensure creates every directory of the layout that is missing.
// Pre-existing directories are not an error; a directory that cannot be
// created is fatal, as the worker cannot start without its workspace.
func (w *Workspace) Ensure() error {
	dirs := []string{w.QueueDir, w.CrashDir, w.HangDir}
	if w.SeedQueueDir != "" {
		dirs = append(dirs, w.SeedQueueDir)
	}
	for _, d := range dirs {
		if err := config.EnsureDir(d); err != nil {
			return fmt.Errorf("failed to create workspace directory %s: %w", d, err)
		}
	}
	return nil
}

// StatsFile returns the path of the stats file the fuzzer maintains for
// the named worker.
func (w *Workspace) StatsFile(workerName string) string {
	return filepath.Join(w.OutputRoot, workerName, statsFileName)
}

// CheckResumable verifies that the output root already holds fuzzer
// state from a previous run. Only resumed campaigns are supported: the
// ensemble never generates an initial corpus itself, so starting from
// an empty output root is a setup error.
func (w *Workspace) CheckResumable() error {
	entries, err := os.ReadDir(w.OutputRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("output root %s does not exist yet; nothing to resume", w.OutputRoot)
		}
		return fmt.Errorf("failed to inspect output root %s: %w", w.OutputRoot, err)
	}
	for _, e := range entries {
		if e.IsDir() && e.Name() != seedDirName {
			return nil
		}
	}
	return fmt.Errorf("output root %s holds no previous fuzzer state; only resumed campaigns are supported", w.OutputRoot)
}
