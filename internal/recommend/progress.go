package recommend

import (
	"sync"

	"go.uber.org/zap"

	"extendwork/recommend-service/internal/model"
)

// Stage percentage boundaries. Each stage owns the inclusive range from the
// previous boundary to its own; searching is subdivided proportionally per
// completed provider call.
const (
	pctAuthDone      = 5
	pctAnalyzingDone = 25
	pctDetectingDone = 35
	pctSearchingDone = 65
	pctInsertingDone = 80
	pctScoringDone   = 95
	pctComplete      = 100
)

// Sink consumes progress events. Emit errors indicate a dead transport (a
// disconnected caller); the pipeline logs them and keeps running.
type Sink interface {
	Emit(ev model.ProgressEvent) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ev model.ProgressEvent) error

func (f SinkFunc) Emit(ev model.ProgressEvent) error { return f(ev) }

// NopSink discards all events. Used by non-streaming callers.
type NopSink struct{}

func (NopSink) Emit(model.ProgressEvent) error { return nil }

// tracker wraps a Sink with the per-run ordering rules: progress never
// decreases, the run id is stamped onto every event, and exactly one
// terminal event (complete or error) is emitted.
type tracker struct {
	sink   Sink
	logger *zap.Logger
	runID  string

	mu   sync.Mutex
	last int
	done bool
}

func newTracker(sink Sink, logger *zap.Logger, runID string) *tracker {
	if sink == nil {
		sink = NopSink{}
	}
	return &tracker{sink: sink, logger: logger, runID: runID}
}

// Stage emits a non-terminal event at the given percentage, clamped so it
// never moves backwards.
func (t *tracker) Stage(stage, message string, progress int, details *model.ProgressDetails) {
	t.emit(model.ProgressEvent{
		Stage:    stage,
		Message:  message,
		Progress: progress,
		Details:  details,
	}, false)
}

// Complete emits the single terminal success event carrying the payload.
func (t *tracker) Complete(message string, result *model.Result, details *model.ProgressDetails) {
	t.emit(model.ProgressEvent{
		Stage:    model.StageComplete,
		Message:  message,
		Progress: pctComplete,
		Details:  details,
		Data:     result,
	}, true)
}

// Fail emits the single terminal error event at the current progress value.
func (t *tracker) Fail(message string) {
	t.mu.Lock()
	progress := t.last
	t.mu.Unlock()

	t.emit(model.ProgressEvent{
		Stage:    model.StageError,
		Message:  message,
		Progress: progress,
		Error:    message,
	}, true)
}

func (t *tracker) emit(ev model.ProgressEvent, terminal bool) {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return
	}
	if ev.Progress < t.last {
		ev.Progress = t.last
	}
	t.last = ev.Progress
	if terminal {
		t.done = true
	}
	t.mu.Unlock()

	if ev.Details == nil {
		ev.Details = &model.ProgressDetails{}
	}
	ev.Details.RunID = t.runID

	if err := t.sink.Emit(ev); err != nil {
		// A dead sink must never abort the run; in-flight work completes.
		t.logger.Debug("progress sink rejected event",
			zap.String("run_id", t.runID),
			zap.String("stage", ev.Stage),
			zap.Error(err),
		)
	}
}
