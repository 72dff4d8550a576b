package adapt

import (
	"context"

	"github.com/XiaoConstantine/ace-go/pkg/errors"
)

// RunOnline consumes each sample exactly once, with no look-ahead and no
// repetition. Every step reports its epoch and size fields as the sample's
// own one-based position, so record i reads epoch i/i, sample i/i.
// Cancellation and failure semantics match RunOffline.
func (a *Adapter) RunOnline(ctx context.Context, samples []Sample) ([]StepRecord, error) {
	records := make([]StepRecord, 0, len(samples))
	for i, sample := range samples {
		if err := errors.CheckContext(ctx, "online adaptation"); err != nil {
			return records, err
		}

		position := i + 1
		record, err := a.runStep(ctx, sample, position, position, position, position)
		if err != nil {
			return records, err
		}
		records = append(records, *record)
	}
	return records, nil
}
