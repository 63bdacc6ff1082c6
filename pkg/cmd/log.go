package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/logrusorgru/aurora"
	"github.com/urfave/cli/v2"

	"github.com/fuzzpool/fuzzpool/pkg/ensemble"
	"github.com/fuzzpool/fuzzpool/pkg/logging"
	"github.com/fuzzpool/fuzzpool/pkg/runlog"
)

// LogCommand prints the most recent sync-cycle records for the
// configured worker.
var LogCommand = cli.Command{
	Name:  "log",
	Usage: "show recent sync cycles for this worker",
	Flags: append([]cli.Flag{
		&cli.IntFlag{
			Name:  "n",
			Usage: "number of cycles to show",
			Value: 10,
		},
	}, workerFlags...),
	Action: runLog,
}

func runLog(c *cli.Context) error {
	logging.TerminalMode()

	cfg, err := setupEnv(c)
	if err != nil {
		return err
	}

	id := ensemble.NewWorkerIdentity(cfg.Worker.NodeID, cfg.Worker.WorkerID)

	rl, err := runlog.Open(filepath.Join(cfg.Dirs().Runlog(), id.Name))
	if err != nil {
		return fmt.Errorf("failed to open run log: %w", err)
	}
	defer rl.Close()

	records, err := rl.Last(c.Int("n"))
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no sync cycles recorded yet")
		return nil
	}

	for _, r := range records {
		cy := r.Cycle
		line := fmt.Sprintf("%s  %s  seeds=%d hangs=%d crashes=%d archive=%s ingested=%d skipped=%d",
			aurora.Gray(12, r.ID),
			humanize.Time(cy.Started),
			cy.SeedsClaimed, cy.HangsPushed, cy.CrashesPushed,
			humanize.Bytes(uint64(cy.ArchiveBytes)),
			cy.PeersIngested, cy.PeersSkipped)
		if r.Stats != nil {
			line += fmt.Sprintf("  execs=%d crashes_total=%d", r.Stats.ExecsDone, r.Stats.UniqueCrashes)
		}
		fmt.Println(line)
	}
	return nil
}
