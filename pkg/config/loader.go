package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/fuzzpool/fuzzpool/pkg/logging"
)

const EnvFuzzpoolHomeDir = "FUZZPOOL_HOME"

// Load populates this EnvConfig by applying defaults, parsing the
// optional $FUZZPOOL_HOME/.env.toml, and creating the home directory
// layout. Validation of required fields is deferred to Validate, so
// that CLI flags can still fill the gaps after Load returns.
func (e *EnvConfig) Load() error {
	// apply fallbacks.
	e.Fuzzer.Backend = "afl"
	e.Fuzzer.EnsembleMode = ModeSecondaryOnly

	// calculate home directory; use env var, or fall back to
	// $HOME/fuzzpool otherwise.
	var home string
	if v, ok := os.LookupEnv(EnvFuzzpoolHomeDir); ok {
		home = v
	} else {
		v, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to obtain user home dir: %w", err)
		}
		home = filepath.Join(v, "fuzzpool")
	}

	switch fi, err := os.Stat(home); {
	case os.IsNotExist(err):
		logging.S().Infof("creating home directory at %s", home)
		if err := os.MkdirAll(home, 0777); err != nil {
			return fmt.Errorf("failed to create home directory at %s: %w", home, err)
		}
	case err == nil:
		logging.S().Debugf("using home directory: %s", home)
	case !fi.IsDir():
		return fmt.Errorf("home path is not a directory %s", home)
	}

	// ensure home and children directories exist.
	e.dirs = Directories{home}
	for _, d := range []string{
		e.dirs.Home(),
		e.dirs.Runlog(),
		e.dirs.Work(),
	} {
		if err := EnsureDir(d); err != nil {
			return fmt.Errorf("failed to check/create directory %s: %w", d, err)
		}
	}

	// parse the .env.toml file, if it exists.
	f := filepath.Join(e.dirs.Home(), ".env.toml")
	if _, err := os.Stat(f); err == nil {
		_, err = toml.DecodeFile(f, e)
		if err != nil {
			return fmt.Errorf("found .env.toml at %s, but failed to parse: %w", f, err)
		}
		logging.S().Debugf(".env.toml loaded from: %s", f)
	} else {
		logging.S().Debugf("no .env.toml found at %s; running with defaults", f)
	}
	return nil
}

// Validate checks that every required field ended up populated, after
// defaults, .env.toml and CLI overrides have all been applied.
func (e *EnvConfig) Validate() error {
	if err := validator.New().Struct(e); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// EnsureDir checks whether the specified path is a directory, and if
// not it attempts to create it.
func EnsureDir(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		// We need to create the directory.
		return os.MkdirAll(path, os.ModePerm)
	}

	if !fi.IsDir() {
		return fmt.Errorf("path %s exists, and it is not a directory", path)
	}
	return nil
}
