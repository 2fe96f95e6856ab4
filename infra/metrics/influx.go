package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/mishra-lab/scheduler/core/metrics"
	"github.com/mishra-lab/scheduler/infra/logger"
)

// InfluxSink writes scheduler events to an InfluxDB instance.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the instance and returns a NopSink when the
// health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRun writes a scheduler_run point.
func (s *InfluxSink) RecordRun(res coremetrics.RunResult) error {
	return s.write(runPoint(res))
}

func runPoint(res coremetrics.RunResult) *write.Point {
	return write.NewPointWithMeasurement("scheduler_run").
		AddTag("run_id", res.RunID).
		AddTag("outcome", string(res.Outcome)).
		AddTag("backend", res.Backend).
		AddField("num_blocks", res.NumBlocks).
		AddField("clinicians", res.Clinicians).
		AddField("divisions", res.Divisions).
		AddField("variables", res.Variables).
		AddField("constraints", res.Constraints).
		AddField("nodes", res.Nodes).
		AddField("objective", round3(res.Objective)).
		AddField("duration_ms", res.Duration.Milliseconds()).
		SetTime(res.Time)
}

// RecordProgress writes a solver_progress point.
func (s *InfluxSink) RecordProgress(ev coremetrics.ProgressEvent) error {
	p := write.NewPointWithMeasurement("solver_progress").
		AddTag("run_id", ev.RunID).
		AddField("nodes", ev.Nodes).
		AddField("depth", ev.Depth).
		AddField("elapsed_ms", ev.Elapsed.Milliseconds())
	if ev.HasIncumbent {
		p = p.AddField("incumbent", round3(ev.Incumbent))
	}
	return s.write(p.SetTime(ev.Time))
}

// RecordConflicts writes one schedule_conflict point per clinician.
func (s *InfluxSink) RecordConflicts(evs []coremetrics.ConflictEvent) error {
	for _, ev := range evs {
		p := write.NewPointWithMeasurement("schedule_conflict").
			AddTag("run_id", ev.RunID).
			AddTag("clinician", ev.Clinician).
			AddField("blocks_off_assigned", ev.BlocksOffAssigned).
			AddField("weekends_off_assigned", ev.WeekendsOffAssigned).
			SetTime(ev.Time)
		if err := s.write(p); err != nil {
			return err
		}
	}
	return nil
}

// RecordPublish writes a schedule_publish point.
func (s *InfluxSink) RecordPublish(ev coremetrics.PublishEvent) error {
	p := write.NewPointWithMeasurement("schedule_publish").
		AddTag("run_id", ev.RunID).
		AddTag("division", ev.Division).
		AddTag("kind", ev.Kind).
		AddTag("success", strconv.FormatBool(ev.Success)).
		AddField("count", 1).
		SetTime(ev.Time)
	return s.write(p)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
