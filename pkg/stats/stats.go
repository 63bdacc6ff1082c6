// Package stats reads the line-oriented "key: value" stats file that
// the underlying fuzzer maintains, and extracts the fixed subset of
// counters the ensemble reports upstream.
package stats

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// The recognized key set. Every key is required: a missing key is a
// schema mismatch and is surfaced, never defaulted — a fabricated zero
// would corrupt ensemble-wide reporting.
const (
	KeyExecsDone     = "execs_done"
	KeyCyclesDone    = "cycles_done"
	KeyUniqueCrashes = "unique_crashes"
	KeyUniqueHangs   = "unique_hangs"
)

// Summary is the fixed digest of one worker's fuzzer stats.
type Summary struct {
	ExecsDone     int64 `json:"execs_done"`
	CyclesDone    int64 `json:"cycles_done"`
	UniqueCrashes int64 `json:"unique_crashes"`
	UniqueHangs   int64 `json:"unique_hangs"`
}

// Map returns the summary as a key→value mapping keyed by the stats
// file key names, for the outer aggregator.
func (s *Summary) Map() map[string]int64 {
	return map[string]int64{
		KeyExecsDone:     s.ExecsDone,
		KeyCyclesDone:    s.CyclesDone,
		KeyUniqueCrashes: s.UniqueCrashes,
		KeyUniqueHangs:   s.UniqueHangs,
	}
}

// ReadFile parses the stats file at path. A missing file is an error:
// the caller decides whether that is fatal.
func ReadFile(path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats file: %w", err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stats file %s: %w", path, err)
	}
	return s, nil
}

// Parse extracts a Summary from stats file content. Unrecognized keys
// are ignored; recognized keys must parse as integers and must all be
// present.
func Parse(r io.Reader) (*Summary, error) {
	var (
		s    Summary
		seen = make(map[string]bool, 4)
	)

	fields := map[string]*int64{
		KeyExecsDone:     &s.ExecsDone,
		KeyCyclesDone:    &s.CyclesDone,
		KeyUniqueCrashes: &s.UniqueCrashes,
		KeyUniqueHangs:   &s.UniqueHangs,
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), ":")
		if !found {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		dst, ok := fields[key]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("key %s holds non-numeric value %q", key, value)
		}
		*dst = n
		seen[key] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for key := range fields {
		if !seen[key] {
			return nil, fmt.Errorf("required key %s missing", key)
		}
	}
	return &s, nil
}
