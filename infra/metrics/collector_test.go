package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	coremetrics "github.com/mishra-lab/scheduler/core/metrics"
	"github.com/mishra-lab/scheduler/core/mip"
	"github.com/mishra-lab/scheduler/internal/eventbus"
)

type progressSink struct {
	coremetrics.NopSink
	mu     sync.Mutex
	events []coremetrics.ProgressEvent
}

func (s *progressSink) RecordProgress(ev coremetrics.ProgressEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func TestStartProgressCollector(t *testing.T) {
	bus := eventbus.New[mip.Progress](4)
	sink := &progressSink{}
	done := StartProgressCollector(context.Background(), bus, sink, "run-7")

	// Forward subscribes before returning, so the event is delivered.
	bus.Publish(mip.Progress{Nodes: 100, Depth: 3, Incumbent: 0.5, HasIncumbent: true, Elapsed: time.Second})
	bus.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop after bus close")
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) != 1 {
		t.Fatalf("events = %d", len(sink.events))
	}
	ev := sink.events[0]
	if ev.RunID != "run-7" || ev.Nodes != 100 || !ev.HasIncumbent || ev.Incumbent != 0.5 {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestStartProgressCollectorIgnoresPlainSinks(t *testing.T) {
	bus := eventbus.New[mip.Progress](1)
	done := StartProgressCollector(context.Background(), bus, plainSink{}, "r")
	select {
	case <-done:
	default:
		t.Fatal("collector should not run for a sink without RecordProgress")
	}
}

type plainSink struct{}

func (plainSink) RecordRun(coremetrics.RunResult) error { return nil }
