package runlog

import (
	"time"

	"github.com/fuzzpool/fuzzpool/pkg/ensemble"
	"github.com/fuzzpool/fuzzpool/pkg/stats"
)

// Record captures the outcome of one completed sync cycle, for
// after-the-fact inspection with `fuzzpool log`. The engine itself
// assigns sync cycles no identity; the id here exists purely as a
// storage key and is sortable by creation time.
type Record struct {
	ID     string               `json:"id"`
	Cycle  ensemble.CycleReport `json:"cycle"`
	Stats  *stats.Summary       `json:"stats,omitempty"`
	Logged time.Time            `json:"logged"`
}
