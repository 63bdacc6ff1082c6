package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/fuzzpool/fuzzpool/pkg/logging"
)

// SyncCommand runs exactly one sync cycle for the configured worker and
// exits. It is the surface for external schedulers (cron, a campaign
// manager) that want to own the cadence themselves rather than use the
// worker command's built-in ticker.
var SyncCommand = cli.Command{
	Name:   "sync",
	Usage:  "run a single sync cycle for this worker, then exit",
	Flags:  workerFlags,
	Action: runSync,
}

func runSync(c *cli.Context) error {
	cfg, err := setupEnv(c)
	if err != nil {
		return err
	}

	syncer, err := setupSyncer(cfg)
	if err != nil {
		return err
	}
	if err := syncer.Setup(); err != nil {
		return err
	}

	rep, err := syncer.Sync(c.Context)
	if err != nil {
		return fmt.Errorf("sync cycle failed: %w", err)
	}

	logging.S().Infow("sync cycle complete",
		"worker", rep.Worker,
		"elapsed", rep.Elapsed,
		"seeds_claimed", rep.SeedsClaimed,
		"hangs_pushed", rep.HangsPushed,
		"crashes_pushed", rep.CrashesPushed,
		"archive_bytes", rep.ArchiveBytes,
		"peers_ingested", rep.PeersIngested,
		"peers_skipped", rep.PeersSkipped,
	)
	return nil
}
