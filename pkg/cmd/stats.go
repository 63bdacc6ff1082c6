package cmd

import (
	"fmt"

	"github.com/logrusorgru/aurora"
	"github.com/urfave/cli/v2"

	"github.com/fuzzpool/fuzzpool/pkg/logging"
)

// StatsCommand prints the fixed stats summary for the configured
// worker. Usable at any time after setup; errors out if the stats file
// is missing or malformed rather than printing fabricated zeroes.
var StatsCommand = cli.Command{
	Name:   "stats",
	Usage:  "print the current fuzzer stats summary for this worker",
	Flags:  workerFlags,
	Action: runStats,
}

func runStats(c *cli.Context) error {
	logging.TerminalMode()

	cfg, err := setupEnv(c)
	if err != nil {
		return err
	}

	syncer, err := setupSyncer(cfg)
	if err != nil {
		return err
	}

	s, err := syncer.ReportStats()
	if err != nil {
		return err
	}

	fmt.Printf("worker:         %s\n", aurora.Bold(syncer.Identity().Name))
	fmt.Printf("execs done:     %d\n", s.ExecsDone)
	fmt.Printf("cycles done:    %d\n", s.CyclesDone)
	fmt.Printf("unique crashes: %s\n", colorCount(s.UniqueCrashes, aurora.RedFg))
	fmt.Printf("unique hangs:   %s\n", colorCount(s.UniqueHangs, aurora.YellowFg))
	return nil
}

func colorCount(n int64, color aurora.Color) aurora.Value {
	if n > 0 {
		return aurora.Colorize(n, color|aurora.BoldFm)
	}
	return aurora.Bold(n)
}
