package cmd

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/fuzzpool/fuzzpool/pkg/config"
	"github.com/fuzzpool/fuzzpool/pkg/ensemble"
	"github.com/fuzzpool/fuzzpool/pkg/pool"
)

// workerFlags are shared by every command that acts on behalf of one
// worker. CLI values override .env.toml.
var workerFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "pool",
		Usage: "shared pool directory (overrides .env.toml)",
	},
	&cli.StringFlag{
		Name:  "output",
		Usage: "local fuzzer output root (overrides .env.toml)",
	},
	&cli.StringFlag{
		Name:  "node",
		Usage: "unique node id (overrides .env.toml)",
	},
	&cli.StringFlag{
		Name:  "worker",
		Usage: "unique worker id within the node (overrides .env.toml)",
	},
}

// setupEnv loads the environment configuration and applies CLI
// overrides.
func setupEnv(c *cli.Context) (*config.EnvConfig, error) {
	cfg := &config.EnvConfig{}
	if err := cfg.Load(); err != nil {
		return nil, err
	}

	if v := c.String("pool"); v != "" {
		cfg.Pool.Dir = v
	}
	if v := c.String("output"); v != "" {
		cfg.Worker.OutputDir = v
	}
	if v := c.String("node"); v != "" {
		cfg.Worker.NodeID = v
	}
	if v := c.String("worker"); v != "" {
		cfg.Worker.WorkerID = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupEnvPoolOnly loads the configuration for commands that only talk
// to the pool and need no worker identity.
func setupEnvPoolOnly(c *cli.Context) (*config.EnvConfig, error) {
	cfg := &config.EnvConfig{}
	if err := cfg.Load(); err != nil {
		return nil, err
	}
	if v := c.String("pool"); v != "" {
		cfg.Pool.Dir = v
	}
	if cfg.Pool.Dir == "" {
		return nil, errors.New("no pool directory configured; set --pool or pool.dir in .env.toml")
	}
	return cfg, nil
}

// setupSyncer assembles the synchronization engine for the configured
// worker.
func setupSyncer(cfg *config.EnvConfig) (*ensemble.Syncer, error) {
	id := ensemble.NewWorkerIdentity(cfg.Worker.NodeID, cfg.Worker.WorkerID)
	ws := ensemble.NewWorkspace(cfg.Worker.OutputDir, id)

	p, err := pool.Open(cfg.Pool.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open shared pool: %w", err)
	}

	return ensemble.NewSyncer(id, ws, p, cfg.Dirs().Work()), nil
}
