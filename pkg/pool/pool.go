// Package pool implements the shared filesystem protocol through which
// ensemble nodes exchange corpora and artifacts. The pool directory is
// the only shared mutable resource in the system; every read of it is
// assumed racy. Instead of locks, the protocol relies on rename-based
// atomic publication for archives and on idempotent overwrites for
// content-addressed artifact files.
package pool

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/otiai10/copy"

	"github.com/fuzzpool/fuzzpool/pkg/logging"
)

// Layout of the pool directory. One archive slot per node; flat pools
// for artifacts; a staging area for seeds awaiting claim.
const (
	seedsDir   = "new_seeds"
	crashesDir = "crashes"
	hangsDir   = "hangs"

	archivePrefix = "FuzzData_"
	archiveExt    = ".tgz"

	// tmpPrefix marks in-flight files inside the pool. Entries carrying
	// it are never returned by listings.
	tmpPrefix = ".tmp-"
)

// ErrClaimLost signals that a seed this worker tried to claim was
// already claimed by another node's primary. Losing the race is part of
// normal operation.
var ErrClaimLost = errors.New("seed already claimed by another worker")

// ArtifactKind selects the pool subdirectory an artifact belongs to.
type ArtifactKind string

const (
	KindCrash ArtifactKind = crashesDir
	KindHang  ArtifactKind = hangsDir
)

// Archive is a reference to one node's archive slot in the pool.
type Archive struct {
	NodeID string
	Path   string
}

// Pool provides typed operations over a shared pool directory.
type Pool struct {
	dir string
}

// Open returns a Pool rooted at dir, creating the protocol
// subdirectories if they are missing. Creation is idempotent.
func Open(dir string) (*Pool, error) {
	for _, d := range []string{dir,
		filepath.Join(dir, seedsDir),
		filepath.Join(dir, crashesDir),
		filepath.Join(dir, hangsDir),
	} {
		if err := os.MkdirAll(d, os.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create pool directory %s: %w", d, err)
		}
	}
	return &Pool{dir: dir}, nil
}

// Dir returns the pool root directory.
func (p *Pool) Dir() string {
	return p.dir
}

// PublishArtifact copies a local crash or hang file into the matching
// pool subdirectory. Artifact filenames are content-unique, so
// overwriting an already published name is harmless, and the operation
// is safe to repeat every cycle. The local file is never moved; it must
// remain available for local inspection and resume.
func (p *Pool) PublishArtifact(kind ArtifactKind, src string) error {
	dst := filepath.Join(p.dir, string(kind), filepath.Base(src))
	if err := copy.Copy(src, dst); err != nil {
		return fmt.Errorf("failed to publish %s artifact %s: %w", kind, src, err)
	}
	return nil
}

// StageSeed copies a seed file into the pool's staging area, where any
// node's primary may claim it.
func (p *Pool) StageSeed(src string) error {
	dst := filepath.Join(p.dir, seedsDir, filepath.Base(src))
	if err := copy.Copy(src, dst); err != nil {
		return fmt.Errorf("failed to stage seed %s: %w", src, err)
	}
	return nil
}

// Seeds lists the names of seed files currently staged in the pool.
// The listing is racy by design: a returned name may already be gone by
// the time the caller attempts to claim it.
func (p *Pool) Seeds() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(p.dir, seedsDir))
	if err != nil {
		return nil, fmt.Errorf("failed to list staged seeds: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), tmpPrefix) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// ClaimSeed attempts to claim a staged seed by moving it into destDir.
// The move is the claim mechanism: when two primaries race for the same
// seed, the filesystem guarantees at most one rename succeeds. A lost
// race is reported as ErrClaimLost; any other failure is a real I/O
// error and is returned as such.
//
// When the pool and destDir live on different filesystems a direct
// rename is impossible (EXDEV). In that case the claim is taken by an
// atomic rename within the pool to a uniquely named marker, which
// preserves the at-most-one-winner guarantee, and the marker is then
// copied out and removed.
func (p *Pool) ClaimSeed(name, destDir string) error {
	src := filepath.Join(p.dir, seedsDir, name)
	dst := filepath.Join(destDir, name)

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("claiming seed %s: %w", name, ErrClaimLost)
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("failed to claim seed %s: %w", name, err)
	}

	// Cross-device: claim inside the pool first, then copy out.
	marker := filepath.Join(p.dir, seedsDir, tmpPrefix+uuid.NewString()+"-"+name)
	if err := os.Rename(src, marker); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("claiming seed %s: %w", name, ErrClaimLost)
		}
		return fmt.Errorf("failed to claim seed %s: %w", name, err)
	}
	defer os.Remove(marker)

	if err := copy.Copy(marker, dst); err != nil {
		return fmt.Errorf("failed to copy claimed seed %s: %w", name, err)
	}
	return nil
}

// PublishArchive publishes a locally built corpus archive into this
// node's slot, overwriting the previous cycle's archive. The archive is
// first copied into the pool under a hidden temporary name, then moved
// into place with a rename local to the pool filesystem, so that no
// reader ever observes a partially written archive.
func (p *Pool) PublishArchive(nodeID, src string) error {
	tmp := filepath.Join(p.dir, tmpPrefix+uuid.NewString()+archiveExt)
	if err := copyFileSync(src, tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to upload archive for node %s: %w", nodeID, err)
	}

	slot := filepath.Join(p.dir, archivePrefix+nodeID+archiveExt)
	if err := os.Rename(tmp, slot); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to publish archive for node %s: %w", nodeID, err)
	}
	return nil
}

// ListArchives returns the archive slots currently present in the pool,
// excluding the slot belonging to excludeNodeID. A node must never
// ingest its own archive.
func (p *Pool) ListArchives(excludeNodeID string) ([]Archive, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list pool archives: %w", err)
	}

	var archives []Archive
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, archiveExt) {
			continue
		}
		nodeID := strings.TrimSuffix(strings.TrimPrefix(name, archivePrefix), archiveExt)
		if nodeID == "" || nodeID == excludeNodeID {
			continue
		}
		archives = append(archives, Archive{NodeID: nodeID, Path: filepath.Join(p.dir, name)})
	}
	return archives, nil
}

// FetchArchive copies a peer's archive out of the pool to a local path.
// The peer may overwrite its slot concurrently; a torn read surfaces
// later as an extraction failure, which callers treat as recoverable.
func (p *Pool) FetchArchive(a Archive, dst string) error {
	if err := copy.Copy(a.Path, dst); err != nil {
		return fmt.Errorf("failed to fetch archive of node %s: %w", a.NodeID, err)
	}
	return nil
}

func copyFileSync(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	// flush before the rename makes it visible.
	if err := out.Sync(); err != nil {
		logging.S().Debugw("fsync not supported on pool filesystem", "path", dst, "error", err)
	}
	return out.Close()
}
