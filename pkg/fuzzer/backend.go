// Package fuzzer defines the boundary between the ensemble engine and
// the black-box fuzzing engine it drives. The engine never depends on a
// concrete fuzzer; it depends on the narrow Backend capability surface,
// so new backends plug in without touching the synchronization logic.
package fuzzer

import (
	"os/exec"
)

// Invocation carries everything a backend needs to construct one
// fuzzer process command line.
type Invocation struct {
	// OutputRoot is the worker's output directory (-o for AFL).
	OutputRoot string
	// WorkerName is the unique name of this worker within the node.
	WorkerName string
	// Master selects the deterministic master role; otherwise the
	// worker runs as a secondary.
	Master bool
	// InputSeeds is the path to the initial seed corpus, or "-" when
	// resuming from existing state.
	InputSeeds string
	// MemLimitMB is the child memory limit in megabytes; 0 means
	// unlimited.
	MemLimitMB int
	// ExecTimeoutMS is the per-execution timeout in milliseconds; 0
	// leaves the backend default.
	ExecTimeoutMS int
	// Dictionary is an optional token dictionary path.
	Dictionary string
	// Target is the instrumented binary under test, followed by its
	// arguments.
	Target     string
	TargetArgs []string
}

// Backend is the capability interface a fuzzing engine must satisfy to
// participate in the ensemble.
type Backend interface {
	// Name identifies the backend ("afl").
	Name() string

	// Executables lists the external binaries the backend requires on
	// PATH, checked during preflight.
	Executables() []string

	// StatsFileName is the name of the stats file the fuzzer maintains
	// inside each worker directory, readable between sync cycles.
	StatsFileName() string

	// Command constructs the fuzzer process for the given invocation.
	// It performs no I/O.
	Command(inv Invocation) (*exec.Cmd, error)

	// Preflight checks environment preconditions that would make a run
	// useless (missing executables, bad kernel settings). Failures are
	// fatal setup errors.
	Preflight() error
}
