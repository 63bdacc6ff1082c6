package fuzzer

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/fuzzpool/fuzzpool/pkg/config"
)

const (
	aflFuzzBin      = "afl-fuzz"
	aflQEMUTraceBin = "afl-qemu-trace"

	corePatternFile = "/proc/sys/kernel/core_pattern"

	// AFL has no explicit "unlimited" memory flag; 1 TiB stands in.
	unlimitedMemKB = "1099511627776"
)

// AFLOptions are the backend-specific knobs, decoded from the
// [backends.afl] section of .env.toml.
type AFLOptions struct {
	// Blackbox enables QEMU mode (-Q) for uninstrumented targets.
	Blackbox bool `mapstructure:"blackbox"`
	// ExtraArgs are passed to afl-fuzz verbatim, before the target.
	ExtraArgs []string `mapstructure:"extra_args"`
}

// AFL drives afl-fuzz as the ensemble's fuzzing engine.
type AFL struct {
	opts AFLOptions
}

var _ Backend = (*AFL)(nil)

// NewAFL builds the AFL backend from its free-form option map.
func NewAFL(cfg config.ConfigMap) (*AFL, error) {
	var opts AFLOptions
	if err := (config.CoalescedConfig{}).Append(cfg).CoalesceInto(&opts); err != nil {
		return nil, fmt.Errorf("invalid afl backend options: %w", err)
	}
	return &AFL{opts: opts}, nil
}

func (a *AFL) Name() string {
	return "afl"
}

func (a *AFL) Executables() []string {
	execs := []string{aflFuzzBin}
	if a.opts.Blackbox {
		execs = append(execs, aflQEMUTraceBin)
	}
	return execs
}

func (a *AFL) StatsFileName() string {
	return "fuzzer_stats"
}

// Command builds the afl-fuzz invocation. The role flag encodes the
// worker's ensemble role: -M for the master, -S for secondaries.
func (a *AFL) Command(inv Invocation) (*exec.Cmd, error) {
	if inv.Target == "" {
		return nil, errors.New("afl: no target binary configured")
	}

	args := []string{"-o", inv.OutputRoot}

	if inv.Master {
		args = append(args, "-M", inv.WorkerName)
	} else {
		args = append(args, "-S", inv.WorkerName)
	}

	if inv.MemLimitMB == 0 {
		args = append(args, "-m", unlimitedMemKB)
	} else {
		args = append(args, "-m", strconv.Itoa(inv.MemLimitMB))
	}

	args = append(args, a.opts.ExtraArgs...)

	if a.opts.Blackbox {
		args = append(args, "-Q")
	}

	if inv.InputSeeds != "" {
		args = append(args, "-i", inv.InputSeeds)
	}
	if inv.ExecTimeoutMS > 0 {
		args = append(args, "-t", strconv.Itoa(inv.ExecTimeoutMS))
	}
	if inv.Dictionary != "" {
		args = append(args, "-x", inv.Dictionary)
	}

	args = append(args, "--", inv.Target)
	args = append(args, inv.TargetArgs...)

	return exec.Command(aflFuzzBin, args...), nil
}

// Preflight verifies the AFL executables are installed and that the
// kernel core dump pattern will not swallow crashes.
func (a *AFL) Preflight() error {
	for _, bin := range a.Executables() {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("required executable %s not found in PATH: %w", bin, err)
		}
	}
	return checkCorePattern()
}

// checkCorePattern enforces AFL's requirement that crashing children
// produce plain core files, not pipe into an external handler.
func checkCorePattern() error {
	b, err := os.ReadFile(corePatternFile)
	if err != nil {
		// Not a Linux host, or no procfs; AFL itself will complain if
		// it cares.
		return nil
	}
	if !strings.Contains(string(b), "core") {
		return errors.New("no core dump pattern set; execute 'echo core | sudo tee /proc/sys/kernel/core_pattern'")
	}
	return nil
}
