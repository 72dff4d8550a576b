package adapt

import (
	"context"

	"github.com/XiaoConstantine/ace-go/pkg/errors"
)

// RunOffline repeats the full sample sequence for the given number of
// epochs, producing one step record per (epoch, sample) pair in epoch-major
// order. Cancellation is honored at sample boundaries only. On any step's
// terminal failure the run stops and returns the records completed so far
// together with the error.
func (a *Adapter) RunOffline(ctx context.Context, samples []Sample, epochs int) ([]StepRecord, error) {
	if epochs <= 0 {
		epochs = 1
	}

	records := make([]StepRecord, 0, len(samples)*epochs)
	for epoch := 1; epoch <= epochs; epoch++ {
		for i, sample := range samples {
			if err := errors.CheckContext(ctx, "offline adaptation"); err != nil {
				return records, err
			}

			record, err := a.runStep(ctx, sample, epoch, epochs, i+1, len(samples))
			if err != nil {
				return records, err
			}
			records = append(records, *record)
		}
	}
	return records, nil
}
