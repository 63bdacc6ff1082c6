package ensemble

import (
	"errors"

	"github.com/hashicorp/go-multierror"

	"github.com/fuzzpool/fuzzpool/pkg/pool"
)

// intakeSeeds scans the pool's staging area and claims each newly
// dropped seed into the local new_seeds queue. The claim is a move, so
// when primaries on different nodes race for the same seed at most one
// wins; losing is normal and merely logged. Genuine I/O failures are
// collected and surfaced: a seed lost to a permission or disk error is
// not a race, and masking it would hide real breakage.
func (s *Syncer) intakeSeeds() (int, error) {
	names, err := s.pool.Seeds()
	if err != nil {
		return 0, err
	}

	var (
		claimed int
		merr    *multierror.Error
	)
	for _, name := range names {
		err := s.pool.ClaimSeed(name, s.ws.SeedQueueDir)
		switch {
		case err == nil:
			s.log.Debugw("claimed new seed", "seed", name)
			claimed++
		case errors.Is(err, pool.ErrClaimLost):
			s.log.Debugw("seed not claimed; another worker won the race", "seed", name)
		default:
			merr = multierror.Append(merr, err)
		}
	}
	return claimed, merr.ErrorOrNil()
}
