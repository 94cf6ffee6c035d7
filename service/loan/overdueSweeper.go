package loan

import (
	"context"
	"log/slog"

	"schoollibrary/model"
	"schoollibrary/util/events"
)

const sweepBatch = 200

// Sweeper flags Borrowed loans that passed their due date. It is run from the
// admin CLI by an external scheduler; the API server never starts it.
type Sweeper interface {
	MarkOverdue(ctx context.Context) (int, error)
}

func NewSweeper(db DB, r Repo, cfg Config, pub events.Publisher, log *slog.Logger) Sweeper {
	return newService(db, r, cfg, pub, log)
}

func (s *service) MarkOverdue(ctx context.Context) (int, error) {
	now := s.now()
	flagged := 0
	for {
		due, err := s.r.ListDueBefore(ctx, now, sweepBatch)
		if err != nil {
			return flagged, err
		}
		for _, l := range due {
			ok, err := s.r.FlagOverdue(ctx, s.db, l.ID, now)
			if err != nil {
				return flagged, err
			}
			if !ok {
				continue
			}
			flagged++
			l.IsOverdue = true
			s.publish(ctx, model.EventLoanOverdue, l)
		}
		if len(due) < sweepBatch {
			break
		}
		if err := ctx.Err(); err != nil {
			return flagged, err
		}
	}
	s.log.Info("overdue sweep done", "flagged", flagged)
	return flagged, nil
}
