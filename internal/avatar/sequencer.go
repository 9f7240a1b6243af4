package avatar

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultStartGap is the minimum delay between two avatar starts in the same
// room. The avatar service rejects back-to-back joins.
const DefaultStartGap = 2 * time.Second

// Sequencer starts bindings one after another, never issuing a start call
// before the previous one has returned and Gap has elapsed.
type Sequencer struct {
	Gap   time.Duration
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// NewSequencer returns a sequencer with the given gap. A non-positive gap
// selects DefaultStartGap.
func NewSequencer(gap time.Duration) *Sequencer {
	if gap <= 0 {
		gap = DefaultStartGap
	}
	return &Sequencer{Gap: gap}
}

// StartAll starts bindings in order and returns one error slot per binding.
// A failed start does not stop the remaining bindings. If ctx is cancelled
// while waiting, every binding not yet started gets ctx's error.
func (s *Sequencer) StartAll(ctx context.Context, room string, bindings []*Binding) []error {
	errs := make([]error, len(bindings))
	var (
		last   time.Time
		issued bool
	)
	for i, b := range bindings {
		if b.Ready() {
			continue
		}
		if issued {
			if wait := s.Gap - s.now().Sub(last); wait > 0 {
				log.Debug().Dur("wait", wait).Str("persona", b.Persona().Identity).Msg("Waiting before next avatar start")
				if err := s.sleep(ctx, wait); err != nil {
					for j := i; j < len(bindings); j++ {
						errs[j] = err
					}
					return errs
				}
			}
		}
		errs[i] = b.Start(ctx, room)
		last = s.now()
		issued = true
	}
	return errs
}

func (s *Sequencer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Sequencer) sleep(ctx context.Context, d time.Duration) error {
	if s.Sleep != nil {
		return s.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
