package ensemble

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/mattn/go-zglob"

	"github.com/fuzzpool/fuzzpool/pkg/pool"
)

// publishArtifacts copies every file below dir into the matching pool
// subdirectory. Files are copied, never moved: local artifacts must
// remain available for inspection and resume. Filenames are
// content-unique (the fuzzer hashes them), so republishing the same
// name every cycle is a harmless overwrite. A file that vanishes
// between listing and copy (the fuzzer may be rewriting its output
// concurrently) is skipped; other failures are collected and surfaced.
func (s *Syncer) publishArtifacts(dir string, kind pool.ArtifactKind) (int, error) {
	matches, err := zglob.Glob(filepath.Join(dir, "**", "*"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	var (
		published int
		merr      *multierror.Error
	)
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			merr = multierror.Append(merr, err)
			continue
		}
		if fi.IsDir() {
			continue
		}
		if err := s.pool.PublishArtifact(kind, m); err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		published++
	}
	return published, merr.ErrorOrNil()
}
