package saga

import (
	"context"
	"log"

	"github.com/trailerops/yardgate/internal/model"
)

// compensation accumulates the side effects of a partially completed
// submission. Fields are set only once the corresponding step has succeeded.
type compensation struct {
	movementID string            // created movement to delete
	trailerID  string            // trailer created by this request, if any
	statsDelta *model.StatsDelta // applied stats increment to reverse
	promoted   []string          // final object keys created by this request
}

// compensate undoes partial progress in reverse dependency order: movement
// record, same-request trailer, stats delta, promoted objects. Every step is
// best-effort and independently guarded: a failed reversal is logged and the
// remaining steps still run, since the goal is maximal cleanup rather than an
// all-or-nothing rollback. The caller re-raises the original failure; nothing
// here reaches the client.
func (s *Saga) compensate(ctx context.Context, c *compensation) {
	if c.movementID != "" {
		if err := s.movements.Delete(ctx, c.movementID); err != nil {
			log.Printf("compensation: delete movement %s: %v", c.movementID, err)
		}
	}
	if c.trailerID != "" {
		if err := s.trailers.Delete(ctx, c.trailerID); err != nil {
			log.Printf("compensation: delete trailer %s: %v", c.trailerID, err)
		}
	}
	if c.statsDelta != nil {
		if err := s.stats.Apply(ctx, c.statsDelta.Inverse()); err != nil {
			log.Printf("compensation: reverse stats delta for yard %s day %s: %v",
				c.statsDelta.YardID, c.statsDelta.DayKey, err)
		}
	}
	for _, key := range c.promoted {
		if err := s.objects.Delete(ctx, key); err != nil {
			log.Printf("compensation: delete promoted object %s: %v", key, err)
		}
	}
}
