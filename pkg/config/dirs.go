package config

import "path/filepath"

// Directories exposes the layout of the fuzzpool home directory.
type Directories struct {
	home string
}

// Home returns the fuzzpool home directory.
func (d Directories) Home() string {
	return d.home
}

// Runlog returns the directory holding the per-worker sync-cycle logs.
func (d Directories) Runlog() string {
	return filepath.Join(d.home, "runlog")
}

// Work returns the scratch directory used for archive staging.
func (d Directories) Work() string {
	return filepath.Join(d.home, "work")
}
