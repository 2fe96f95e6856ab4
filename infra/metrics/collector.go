package metrics

import (
	"context"
	"time"

	coremetrics "github.com/mishra-lab/scheduler/core/metrics"
	"github.com/mishra-lab/scheduler/core/mip"
	"github.com/mishra-lab/scheduler/internal/eventbus"
)

// StartProgressCollector records every solver progress update published on
// bus as a ProgressEvent for runID. Sinks that do not implement
// ProgressRecorder are ignored. The returned channel is closed once the
// collector stops, after ctx is canceled or the bus is closed.
func StartProgressCollector(ctx context.Context, bus *eventbus.Bus[mip.Progress], sink coremetrics.MetricsSink, runID string) <-chan struct{} {
	rec, ok := sink.(coremetrics.ProgressRecorder)
	if bus == nil || !ok {
		done := make(chan struct{})
		close(done)
		return done
	}
	return bus.Forward(ctx, func(p mip.Progress) {
		_ = rec.RecordProgress(coremetrics.ProgressEvent{
			RunID:        runID,
			Nodes:        p.Nodes,
			Depth:        p.Depth,
			Incumbent:    p.Incumbent,
			HasIncumbent: p.HasIncumbent,
			Elapsed:      p.Elapsed,
			Time:         time.Now(),
		})
	})
}
