package ensemble

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

// publishCorpus bundles this node's worker corpora into a compressed
// archive and publishes it into the node's pool slot, returning the
// archive size. The archive holds, for every worker directory carrying
// this node's name prefix, the worker's stats file and its entire
// queue directory under the worker's relative path. The bundle is
// assembled in scratch space first; a single rename inside the pool
// makes it visible, so peers never observe a partial archive.
//
// Failures here are fatal for the cycle. There is deliberately no
// skip-and-continue: a node that silently stops publishing disappears
// from the ensemble without anyone noticing.
func (s *Syncer) publishCorpus() (int64, error) {
	tmp, err := os.CreateTemp(s.workDir, "fuzzpool-corpus-*.tgz")
	if err != nil {
		return 0, fmt.Errorf("failed to create scratch archive: %w", err)
	}
	defer os.Remove(tmp.Name())

	size, err := s.buildArchive(tmp)
	tmp.Close()
	if err != nil {
		return 0, fmt.Errorf("failed to build corpus archive: %w", err)
	}

	if err := s.pool.PublishArchive(s.id.NodeID, tmp.Name()); err != nil {
		return 0, err
	}
	s.log.Infow("corpus archive published", "node", s.id.NodeID, "size", humanize.Bytes(uint64(size)))
	return size, nil
}

// buildArchive writes the tar.gz corpus bundle to w and returns the
// number of compressed bytes written.
func (s *Syncer) buildArchive(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	gz := gzip.NewWriter(cw)
	tw := tar.NewWriter(gz)

	entries, err := os.ReadDir(s.ws.OutputRoot)
	if err != nil {
		return 0, err
	}

	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), s.id.NodePrefix()) {
			continue
		}
		s.log.Debugw("adding worker to archive", "dir", e.Name())

		stats := s.ws.StatsFile(e.Name())
		if err := addTarFile(tw, stats, filepath.Join(e.Name(), statsFileName)); err != nil {
			return 0, err
		}

		queue := filepath.Join(s.ws.OutputRoot, e.Name(), queueDirName)
		if err := addTarTree(tw, queue, filepath.Join(e.Name(), queueDirName)); err != nil {
			return 0, err
		}
	}

	if err := tw.Close(); err != nil {
		return 0, err
	}
	if err := gz.Close(); err != nil {
		return 0, err
	}
	return cw.n, nil
}

// addTarTree archives the directory rooted at dir under arcroot,
// preserving the relative layout.
func addTarTree(tw *tar.Writer, dir, arcroot string) error {
	dir = filepath.Clean(dir)

	walker := func(file string, finfo os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, file)
		if err != nil {
			return err
		}

		hdr, err := tar.FileInfoHeader(finfo, finfo.Name())
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(filepath.Join(arcroot, rel))

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		if finfo.Mode().IsDir() {
			return nil
		}

		srcFile, err := os.Open(file)
		if err != nil {
			return err
		}
		defer srcFile.Close()
		_, err = io.Copy(tw, srcFile)
		return err
	}

	return filepath.Walk(dir, walker)
}

// addTarFile archives a single regular file under arcname.
func addTarFile(tw *tar.Writer, file, arcname string) error {
	finfo, err := os.Stat(file)
	if err != nil {
		return err
	}

	hdr, err := tar.FileInfoHeader(finfo, finfo.Name())
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(arcname)

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	srcFile, err := os.Open(file)
	if err != nil {
		return err
	}
	defer srcFile.Close()
	_, err = io.Copy(tw, srcFile)
	return err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
