package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/fuzzpool/fuzzpool/pkg/config"
	"github.com/fuzzpool/fuzzpool/pkg/ensemble"
	"github.com/fuzzpool/fuzzpool/pkg/fuzzer"
	"github.com/fuzzpool/fuzzpool/pkg/logging"
	"github.com/fuzzpool/fuzzpool/pkg/runlog"
)

// WorkerCommand runs one fuzzing worker: it spawns the backend fuzzer
// process and drives a sync cycle at a fixed cadence until the fuzzer
// exits or the process is signalled. The sync engine itself owns no
// timers; this command is the external scheduler.
var WorkerCommand = cli.Command{
	Name:  "worker",
	Usage: "run a fuzzing worker and keep it in sync with the ensemble",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "target",
			Usage: "instrumented target binary (overrides .env.toml)",
		},
		&cli.StringSliceFlag{
			Name:  "target-arg",
			Usage: "argument passed to the target binary; repeatable",
		},
		&cli.DurationFlag{
			Name:  "sync-every",
			Usage: "interval between sync cycles",
			Value: 5 * time.Minute,
		},
	}, workerFlags...),
	Action: runWorker,
}

func runWorker(c *cli.Context) error {
	cfg, err := setupEnv(c)
	if err != nil {
		return err
	}
	if v := c.String("target"); v != "" {
		cfg.Fuzzer.Target = v
	}

	backend, err := fuzzer.New(cfg.Fuzzer.Backend, cfg.Backends[cfg.Fuzzer.Backend])
	if err != nil {
		return err
	}
	if err := backend.Preflight(); err != nil {
		return fmt.Errorf("preflight failed: %w", err)
	}

	syncer, err := setupSyncer(cfg)
	if err != nil {
		return err
	}

	id := syncer.Identity()
	log := logging.S().With("worker", id.Name)

	// The resume decision must look at the output root before Setup
	// creates the workspace skeleton inside it.
	inv, err := buildInvocation(cfg, syncer, c.StringSlice("target-arg"))
	if err != nil {
		return err
	}

	if err := syncer.Setup(); err != nil {
		return err
	}

	cmd, err := backend.Command(inv)
	if err != nil {
		return err
	}

	rl, err := runlog.Open(filepath.Join(cfg.Dirs().Runlog(), id.Name))
	if err != nil {
		return fmt.Errorf("failed to open run log: %w", err)
	}
	defer rl.Close()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// The fuzzer process. Its output is streamed through to ours; its
	// exit, clean or not, ends the run.
	g.Go(func() error {
		stdout, _ := cmd.StdoutPipe()
		stderr, _ := cmd.StderrPipe()
		combined := io.MultiReader(stdout, stderr)

		log.Infow("starting fuzzer", "backend", backend.Name(), "primary", id.Primary, "args", cmd.Args)
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("failed to start fuzzer: %w", err)
		}

		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				_ = cmd.Process.Signal(syscall.SIGTERM)
			case <-done:
			}
		}()

		scanner := bufio.NewScanner(combined)
		for scanner.Scan() {
			fmt.Println(scanner.Text())
		}

		err := cmd.Wait()
		close(done)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return fmt.Errorf("fuzzer exited: %w", err)
		}
		return nil
	})

	// The sync ticker. Cycle failures are surfaced in the log and the
	// run log but do not end the run; the next tick is the retry.
	g.Go(func() error {
		ticker := time.NewTicker(c.Duration("sync-every"))
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}

			rep, err := syncer.Sync(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Errorw("sync cycle failed", "error", err)
			}

			rec := &runlog.Record{Cycle: *rep}
			if summary, err := syncer.ReportStats(); err != nil {
				log.Warnw("stats not readable this cycle", "error", err)
			} else {
				rec.Stats = summary
			}
			if err := rl.Append(rec); err != nil {
				log.Warnw("failed to append run log record", "error", err)
			}
		}
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		log.Infow("worker stopped")
		return nil
	}
	return err
}

// buildInvocation translates configuration into the backend invocation
// for this worker, enforcing the resume contract: an output root with
// previous fuzzer state resumes with "-" as the seed source; a fresh
// root requires an explicit seed corpus.
func buildInvocation(cfg *config.EnvConfig, syncer *ensemble.Syncer, targetArgs []string) (fuzzer.Invocation, error) {
	id := syncer.Identity()

	seeds := cfg.Fuzzer.InputSeeds
	if err := syncer.Workspace().CheckResumable(); err == nil {
		logging.S().Infow("resuming from existing fuzzer state", "output", cfg.Worker.OutputDir)
		seeds = "-"
	} else if seeds == "" {
		return fuzzer.Invocation{}, err
	}

	// Under MasterSecondary, the first worker of the first node is the
	// deterministic master; everyone else is a secondary.
	master := cfg.Fuzzer.EnsembleMode == config.ModeMasterSecondary &&
		id.NodeID == "0" && id.WorkerID == ensemble.FirstWorkerID

	return fuzzer.Invocation{
		OutputRoot:    cfg.Worker.OutputDir,
		WorkerName:    id.Name,
		Master:        master,
		InputSeeds:    seeds,
		MemLimitMB:    cfg.Fuzzer.MemLimitMB,
		ExecTimeoutMS: cfg.Fuzzer.ExecTimeout,
		Dictionary:    cfg.Fuzzer.Dictionary,
		Target:        cfg.Fuzzer.Target,
		TargetArgs:    targetArgs,
	}, nil
}
