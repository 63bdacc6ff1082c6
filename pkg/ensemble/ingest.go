package ensemble

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mholt/archiver"

	"github.com/fuzzpool/fuzzpool/pkg/pool"
)

// ingestPeers pulls every peer node's archive from the pool and merges
// it into the local output root. Peer worker directories appear locally
// under their original names; extraction overwrites existing files,
// which is safe because queue filenames are content-addressed, so
// re-extracting identical content is a no-op.
//
// Failure on one peer archive — corrupt download, archive mid-write by
// the peer, transient I/O — is recoverable: it is logged and the
// remaining peers still ingest. The failed archive stays (or is
// refreshed) in the pool and is retried on the next cycle. Listing
// failures and anything outside per-archive handling propagate.
func (s *Syncer) ingestPeers() (ingested, skipped int, err error) {
	archives, err := s.pool.ListArchives(s.id.NodeID)
	if err != nil {
		return 0, 0, err
	}

	for _, a := range archives {
		if err := s.ingestOne(a); err != nil {
			if !IsRecoverable(err) {
				return ingested, skipped, err
			}
			s.log.Warnw("peer archive not ingested; will retry on next sync cycle",
				"peer", a.NodeID, "error", err)
			skipped++
			continue
		}
		ingested++
	}
	return ingested, skipped, nil
}

// ingestOne copies a single peer archive out of the pool and extracts
// it into the output root. The local copy of the archive is discarded
// regardless of outcome.
func (s *Syncer) ingestOne(a pool.Archive) error {
	tmp := filepath.Join(s.scratchDir(), "fuzzpool-pull-"+uuid.NewString()+".tgz")
	defer os.Remove(tmp)

	if err := s.pool.FetchArchive(a, tmp); err != nil {
		return recoverable("peer archive fetch", err)
	}

	tgz := archiver.NewTarGz()
	tgz.OverwriteExisting = true
	if err := tgz.Unarchive(tmp, s.ws.OutputRoot); err != nil {
		return recoverable("peer archive extraction", fmt.Errorf("extracting archive of node %s: %w", a.NodeID, err))
	}

	s.log.Debugw("peer archive ingested", "peer", a.NodeID)
	return nil
}

func (s *Syncer) scratchDir() string {
	if s.workDir != "" {
		return s.workDir
	}
	return os.TempDir()
}
