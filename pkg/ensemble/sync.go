// Package ensemble implements the synchronization engine that lets a
// fleet of independent fuzzing workers converge on a shared corpus.
// Workers coordinate exclusively through a shared filesystem pool;
// there is no lock service, no RPC and no in-process concurrency here.
// One Syncer per worker process; one Sync call per external tick.
package ensemble

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fuzzpool/fuzzpool/pkg/logging"
	"github.com/fuzzpool/fuzzpool/pkg/pool"
	"github.com/fuzzpool/fuzzpool/pkg/stats"
)

// CycleReport summarizes the work done by one sync cycle. A cycle has
// no persisted identity of its own; the report exists for logging and
// for the run log kept by the caller.
type CycleReport struct {
	Worker        string        `json:"worker"`
	Started       time.Time     `json:"started"`
	Elapsed       time.Duration `json:"elapsed"`
	SeedsClaimed  int           `json:"seeds_claimed"`
	HangsPushed   int           `json:"hangs_pushed"`
	CrashesPushed int           `json:"crashes_pushed"`
	ArchiveBytes  int64         `json:"archive_bytes"`
	PeersIngested int           `json:"peers_ingested"`
	PeersSkipped  int           `json:"peers_skipped"`
}

// Syncer sequences the synchronization work for one worker. It owns no
// timers and schedules no retries: cadence, deadlines and
// retry-by-repetition all belong to the caller.
type Syncer struct {
	id      WorkerIdentity
	ws      *Workspace
	pool    *pool.Pool
	workDir string
	log     *zap.SugaredLogger
}

// NewSyncer assembles a Syncer for the given worker over the given
// pool. workDir is scratch space for archive staging; when empty, the
// system temp directory is used.
func NewSyncer(id WorkerIdentity, ws *Workspace, p *pool.Pool, workDir string) *Syncer {
	return &Syncer{
		id:      id,
		ws:      ws,
		pool:    p,
		workDir: workDir,
		log:     logging.S().With("worker", id.Name),
	}
}

// Identity returns the worker identity this Syncer serves.
func (s *Syncer) Identity() WorkerIdentity {
	return s.id
}

// Workspace returns the local workspace this Syncer operates on.
func (s *Syncer) Workspace() *Workspace {
	return s.ws
}

// ReportStats reads this worker's fuzzer stats file and returns the
// fixed summary for the outer aggregator. Callers may invoke it at any
// time after setup. A missing file or key is surfaced, never masked
// with defaults.
func (s *Syncer) ReportStats() (*stats.Summary, error) {
	return stats.ReadFile(s.ws.StatsFile(s.id.Name))
}

// Setup prepares the worker for syncing: it creates the local
// workspace and, for the primary, performs an initial seed intake so
// that staged seeds are available before the fuzzer starts. Setup
// failures are fatal; they occur before any fuzzing or syncing begins.
func (s *Syncer) Setup() error {
	if err := s.ws.Ensure(); err != nil {
		return err
	}
	if !s.id.Primary {
		return nil
	}
	_, err := s.intakeSeeds()
	return err
}

// Sync runs one synchronization cycle, blocking for its full duration.
// The order is fixed: seed intake (primary), hang publish, crash
// publish, corpus archive and publish (primary), peer ingestion
// (primary). Secondary workers only publish their own artifacts.
// Transient per-seed and per-peer failures are logged and skipped;
// everything else aborts the cycle.
func (s *Syncer) Sync(ctx context.Context) (*CycleReport, error) {
	rep := &CycleReport{Worker: s.id.Name, Started: time.Now()}
	defer func() { rep.Elapsed = time.Since(rep.Started) }()

	if s.id.Primary {
		n, err := s.intakeSeeds()
		if err != nil {
			return rep, err
		}
		rep.SeedsClaimed = n
	}

	if err := ctx.Err(); err != nil {
		return rep, err
	}

	s.log.Debugw("pushing hangs")
	n, err := s.publishArtifacts(s.ws.HangDir, pool.KindHang)
	if err != nil {
		return rep, err
	}
	rep.HangsPushed = n

	s.log.Debugw("pushing crashes")
	n, err = s.publishArtifacts(s.ws.CrashDir, pool.KindCrash)
	if err != nil {
		return rep, err
	}
	rep.CrashesPushed = n

	if !s.id.Primary {
		s.log.Debugw("skipping corpus sync; not the primary worker")
		return rep, nil
	}

	if err := ctx.Err(); err != nil {
		return rep, err
	}

	size, err := s.publishCorpus()
	if err != nil {
		// A silently skipped publish would make this node's progress
		// invisible to the rest of the ensemble indefinitely.
		return rep, err
	}
	rep.ArchiveBytes = size

	if err := ctx.Err(); err != nil {
		return rep, err
	}

	ingested, skipped, err := s.ingestPeers()
	rep.PeersIngested = ingested
	rep.PeersSkipped = skipped
	if err != nil {
		return rep, err
	}

	s.log.Debugw("sync cycle complete",
		"seeds", rep.SeedsClaimed, "hangs", rep.HangsPushed, "crashes", rep.CrashesPushed,
		"archive_bytes", rep.ArchiveBytes, "peers_ingested", ingested, "peers_skipped", skipped)
	return rep, nil
}
