package cmd

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/fuzzpool/fuzzpool/pkg/logging"
	"github.com/fuzzpool/fuzzpool/pkg/pool"
)

// SeedCommand stages seed files into the shared pool, where the
// primary worker of some node will eventually claim them.
var SeedCommand = cli.Command{
	Name:      "seed",
	Usage:     "stage seed files into the shared pool for the ensemble to claim",
	ArgsUsage: "<file> [<file>...]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "pool",
			Usage: "shared pool directory (overrides .env.toml)",
		},
	},
	Action: runSeed,
}

func runSeed(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("no seed files given")
	}

	cfg, err := setupEnvPoolOnly(c)
	if err != nil {
		return err
	}

	p, err := pool.Open(cfg.Pool.Dir)
	if err != nil {
		return err
	}

	for _, f := range c.Args().Slice() {
		if err := p.StageSeed(f); err != nil {
			return err
		}
		logging.S().Infow("seed staged", "seed", f)
	}
	return nil
}
