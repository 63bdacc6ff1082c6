package ensemble

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuzzpool/fuzzpool/pkg/pool"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// seedWorker fakes the on-disk state the fuzzer would have produced for
// one worker: a stats file and a handful of queue entries.
func seedWorker(t *testing.T, root, name string, queue map[string]string) {
	t.Helper()
	writeFile(t, filepath.Join(root, name, "fuzzer_stats"),
		"execs_done: 1\ncycles_done: 1\nunique_crashes: 0\nunique_hangs: 0\n")
	for fn, content := range queue {
		writeFile(t, filepath.Join(root, name, "queue", fn), content)
	}
}

func newTestSyncer(t *testing.T, poolDir, outputRoot, nodeID, workerID string) *Syncer {
	t.Helper()
	id := NewWorkerIdentity(nodeID, workerID)
	ws := NewWorkspace(outputRoot, id)
	require.NoError(t, ws.Ensure())

	p, err := pool.Open(poolDir)
	require.NoError(t, err)
	return NewSyncer(id, ws, p, t.TempDir())
}

// snapshotTree returns a relative-path → content map of every regular
// file below root.
func snapshotTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[rel] = string(b)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestSyncPublishesArtifacts(t *testing.T) {
	poolDir := t.TempDir()
	root := t.TempDir()
	s := newTestSyncer(t, poolDir, root, "0", "1") // secondary

	writeFile(t, filepath.Join(s.ws.HangDir, "id:000000,src:000001"), "hang input")
	writeFile(t, filepath.Join(s.ws.CrashDir, "id:000000,sig:06"), "crash input")
	writeFile(t, filepath.Join(s.ws.CrashDir, "README.txt"), "triage notes")

	rep, err := s.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.HangsPushed)
	assert.Equal(t, 2, rep.CrashesPushed)

	assert.FileExists(t, filepath.Join(poolDir, "hangs", "id:000000,src:000001"))
	assert.FileExists(t, filepath.Join(poolDir, "crashes", "id:000000,sig:06"))

	// locals are copied, not moved.
	assert.FileExists(t, filepath.Join(s.ws.CrashDir, "id:000000,sig:06"))

	// republishing the same names the next cycle is harmless.
	_, err = s.Sync(context.Background())
	require.NoError(t, err)
}

func TestSecondarySkipsCorpusWork(t *testing.T) {
	poolDir := t.TempDir()

	// a peer's archive sits in the pool.
	peerRoot := t.TempDir()
	peer := newTestSyncer(t, poolDir, peerRoot, "9", "0")
	seedWorker(t, peerRoot, "fuzzer_9_0", map[string]string{"id:000001": "aaa"})
	_, err := peer.Sync(context.Background())
	require.NoError(t, err)

	root := t.TempDir()
	s := newTestSyncer(t, poolDir, root, "0", "1")
	seedWorker(t, root, "fuzzer_0_1", map[string]string{"id:000001": "bbb"})

	rep, err := s.Sync(context.Background())
	require.NoError(t, err)

	// no archive published, no peers ingested.
	assert.Zero(t, rep.ArchiveBytes)
	assert.Zero(t, rep.PeersIngested)
	assert.NoFileExists(t, filepath.Join(poolDir, "FuzzData_0.tgz"))
	assert.NoDirExists(t, filepath.Join(root, "fuzzer_9_0"))
}

func TestEnsembleConvergence(t *testing.T) {
	poolDir := t.TempDir()

	rootA := t.TempDir()
	a := newTestSyncer(t, poolDir, rootA, "0", "0")
	seedWorker(t, rootA, "fuzzer_0_0", map[string]string{"id:000001,orig:seed": "input a"})
	seedWorker(t, rootA, "fuzzer_0_1", map[string]string{"id:000002": "input a2"})

	rootB := t.TempDir()
	b := newTestSyncer(t, poolDir, rootB, "1", "0")
	seedWorker(t, rootB, "fuzzer_1_0", map[string]string{"id:000001": "input b"})

	// cycle k: A publishes its corpus; B's cycle picks it up.
	_, err := a.Sync(context.Background())
	require.NoError(t, err)

	repB, err := b.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repB.PeersIngested)

	// every queue entry A published is now in B's local view, for both
	// of A's workers, under their original names.
	assert.FileExists(t, filepath.Join(rootB, "fuzzer_0_0", "queue", "id:000001,orig:seed"))
	assert.FileExists(t, filepath.Join(rootB, "fuzzer_0_0", "fuzzer_stats"))
	assert.FileExists(t, filepath.Join(rootB, "fuzzer_0_1", "queue", "id:000002"))

	// cycle k+1: B has published too, so A converges on B's corpus.
	repA, err := a.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repA.PeersIngested)
	assert.FileExists(t, filepath.Join(rootA, "fuzzer_1_0", "queue", "id:000001"))
}

func TestOwnArchiveNeverIngested(t *testing.T) {
	poolDir := t.TempDir()
	root := t.TempDir()
	s := newTestSyncer(t, poolDir, root, "0", "0")
	seedWorker(t, root, "fuzzer_0_0", map[string]string{"id:000001": "x"})

	// two cycles: by the second, this node's own archive is in the
	// pool, and must be the only slot there.
	_, err := s.Sync(context.Background())
	require.NoError(t, err)
	rep, err := s.Sync(context.Background())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(poolDir, "FuzzData_0.tgz"))
	assert.Zero(t, rep.PeersIngested)
	assert.Zero(t, rep.PeersSkipped)
}

func TestCorruptPeerArchiveSkipped(t *testing.T) {
	poolDir := t.TempDir()

	// one healthy peer.
	peerRoot := t.TempDir()
	peer := newTestSyncer(t, poolDir, peerRoot, "2", "0")
	seedWorker(t, peerRoot, "fuzzer_2_0", map[string]string{"id:000007": "good"})
	_, err := peer.Sync(context.Background())
	require.NoError(t, err)

	// one peer whose slot holds garbage, as if caught mid-write by a
	// non-atomic writer or truncated in transit.
	writeFile(t, filepath.Join(poolDir, "FuzzData_3.tgz"), "this is not a tarball")

	root := t.TempDir()
	s := newTestSyncer(t, poolDir, root, "0", "0")
	seedWorker(t, root, "fuzzer_0_0", map[string]string{"id:000001": "x"})

	rep, err := s.Sync(context.Background())
	require.NoError(t, err)

	// the corrupt peer is skipped, the healthy one still lands.
	assert.Equal(t, 1, rep.PeersIngested)
	assert.Equal(t, 1, rep.PeersSkipped)
	assert.FileExists(t, filepath.Join(root, "fuzzer_2_0", "queue", "id:000007"))
}

func TestIngestIsIdempotent(t *testing.T) {
	poolDir := t.TempDir()

	peerRoot := t.TempDir()
	peer := newTestSyncer(t, poolDir, peerRoot, "5", "0")
	seedWorker(t, peerRoot, "fuzzer_5_0", map[string]string{
		"id:000001": "one",
		"id:000002": "two",
	})
	_, err := peer.Sync(context.Background())
	require.NoError(t, err)

	root := t.TempDir()
	s := newTestSyncer(t, poolDir, root, "0", "0")
	seedWorker(t, root, "fuzzer_0_0", map[string]string{"id:000001": "x"})

	_, err = s.Sync(context.Background())
	require.NoError(t, err)
	once := snapshotTree(t, root)

	// extracting the same archive again must change nothing.
	_, err = s.Sync(context.Background())
	require.NoError(t, err)
	twice := snapshotTree(t, root)

	assert.Equal(t, once, twice)
}

func TestPrimarySeedIntake(t *testing.T) {
	poolDir := t.TempDir()
	p, err := pool.Open(poolDir)
	require.NoError(t, err)

	seed := filepath.Join(t.TempDir(), "seed-42")
	writeFile(t, seed, "starting point")
	require.NoError(t, p.StageSeed(seed))

	root := t.TempDir()
	s := newTestSyncer(t, poolDir, root, "0", "0")
	seedWorker(t, root, "fuzzer_0_0", map[string]string{"id:000001": "x"})

	rep, err := s.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.SeedsClaimed)
	assert.FileExists(t, filepath.Join(root, "new_seeds", "queue", "seed-42"))

	// the staged copy is gone from the pool; the next cycle claims
	// nothing.
	rep, err = s.Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rep.SeedsClaimed)
}

func TestArchiveBuildFailureIsFatalForCycle(t *testing.T) {
	poolDir := t.TempDir()
	root := t.TempDir()
	s := newTestSyncer(t, poolDir, root, "0", "0")

	// a worker directory without a stats file: local corpus state is
	// unreadable, and the cycle must fail loudly rather than publish a
	// partial view.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "fuzzer_0_1", "queue"), 0755))

	_, err := s.Sync(context.Background())
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(poolDir, "FuzzData_0.tgz"))
}
