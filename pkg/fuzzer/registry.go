package fuzzer

import (
	"fmt"

	"github.com/fuzzpool/fuzzpool/pkg/config"
)

// New resolves a backend by name and configures it from its option
// map.
func New(name string, cfg config.ConfigMap) (Backend, error) {
	switch name {
	case "afl":
		return NewAFL(cfg)
	default:
		return nil, fmt.Errorf("unrecognized fuzzer backend: %s", name)
	}
}
