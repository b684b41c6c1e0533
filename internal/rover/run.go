package rover

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"plant-rover/internal/metrics"
)

// Summary tallies a run.
type Summary struct {
	Visited  int
	Watered  int
	Skipped  int
	Failed   int
	Outcomes []Outcome
	Errors   []error
}

// Run visits plants 1..Plants in order. A failed visit is logged and counted
// and the route continues. Run only returns an error when ctx ends.
func (r *Rover) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	for plant := 1; plant <= r.opts.Plants; plant++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		out, err := r.Visit(ctx, plant)
		sum.Visited++
		sum.Outcomes = append(sum.Outcomes, out)

		switch {
		case err != nil:
			sum.Failed++
			sum.Errors = append(sum.Errors, err)
			r.deps.Metrics.RecordVisit(metrics.StatusFailed)

			var ve *VisitError
			if errors.As(err, &ve) {
				r.deps.Metrics.RecordVisitError(string(ve.Stage))
			}
			r.log.Error("visit failed", zap.Int("plant", plant), zap.Error(err))

		case out.Skipped != nil:
			sum.Skipped++
			r.deps.Metrics.RecordVisit(metrics.StatusSkipped)

		case out.Watered:
			sum.Watered++
			r.deps.Metrics.RecordVisit(metrics.StatusWatered)

		default:
			r.deps.Metrics.RecordVisit(metrics.StatusSatisfied)
		}
	}

	r.log.Info("route complete",
		zap.Int("visited", sum.Visited),
		zap.Int("watered", sum.Watered),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed))
	return sum, ctx.Err()
}
