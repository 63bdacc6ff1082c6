package config

// ConfigMap is a free-form configuration mapping, used for per-backend
// fuzzer options that only the backend itself knows how to interpret.
type ConfigMap map[string]interface{}

// Ensemble parallel models. Under SecondaryOnly every worker runs as a
// secondary fuzzer; under MasterSecondary the first worker of the first
// node runs as the deterministic master.
const (
	ModeSecondaryOnly   = "SecondaryOnly"
	ModeMasterSecondary = "MasterSecondary"
)

// EnvConfig contains the environment configuration. It is populated by
// coalescing values from these sources, in descending order of precedence:
//
//  1. CLI flags.
//  2. .env.toml.
//  3. default fallbacks.
type EnvConfig struct {
	dirs Directories

	Pool     PoolConfig           `toml:"pool"`
	Worker   WorkerConfig         `toml:"worker"`
	Fuzzer   FuzzerConfig         `toml:"fuzzer"`
	Backends map[string]ConfigMap `toml:"backends"`
}

func (e EnvConfig) Dirs() Directories {
	return e.dirs
}

// PoolConfig locates the shared exchange directory. Every node in the
// ensemble must see the same directory, typically over a network mount.
type PoolConfig struct {
	Dir string `toml:"dir" validate:"required"`
}

type WorkerConfig struct {
	NodeID    string `toml:"node_id" validate:"required"`
	WorkerID  string `toml:"worker_id" validate:"required"`
	OutputDir string `toml:"output_dir" validate:"required"`
}

type FuzzerConfig struct {
	Backend      string `toml:"backend" validate:"required"`
	Target       string `toml:"target"`
	InputSeeds   string `toml:"input_seeds"`
	MemLimitMB   int    `toml:"mem_limit_mb" validate:"gte=0"`
	ExecTimeout  int    `toml:"exec_timeout_ms" validate:"gte=0"`
	Dictionary   string `toml:"dictionary"`
	EnsembleMode string `toml:"ensemble_mode" validate:"oneof=SecondaryOnly MasterSecondary"`
}
