package stats

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `start_time        : 1591712222
execs_done        : 1000
cycles_done       : 3
unique_crashes    : 2
unique_hangs      : 1
afl_banner        : target
`

func TestParse(t *testing.T) {
	s, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, int64(1000), s.ExecsDone)
	assert.Equal(t, int64(3), s.CyclesDone)
	assert.Equal(t, int64(2), s.UniqueCrashes)
	assert.Equal(t, int64(1), s.UniqueHangs)

	assert.Equal(t, map[string]int64{
		"execs_done":     1000,
		"cycles_done":    3,
		"unique_crashes": 2,
		"unique_hangs":   1,
	}, s.Map())
}

func TestParseMissingKeyIsNotDefaulted(t *testing.T) {
	// unique_hangs absent: the reporter must error out instead of
	// fabricating a zero.
	in := "execs_done: 1000\ncycles_done: 3\nunique_crashes: 2\n"
	_, err := Parse(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unique_hangs")
}

func TestParseNonNumericValue(t *testing.T) {
	in := sample + "\n"
	in = strings.Replace(in, "1000", "a lot", 1)
	_, err := Parse(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execs_done")
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fuzzer_stats")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	s, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), s.ExecsDone)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
