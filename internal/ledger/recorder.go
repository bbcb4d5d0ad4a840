package ledger

import (
	"context"
	"time"

	"github.com/park285/pgn2gif/internal/dispatch"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// Recorder is a dispatch.Reporter that writes each task outcome and the
// final summary to the ledger. Write failures are logged, never returned.
type Recorder struct {
	ledger *Ledger
	runID  string
	logger *zap.Logger
}

func (l *Ledger) Recorder(runID string) *Recorder {
	return &Recorder{ledger: l, runID: runID, logger: l.logger}
}

func (r *Recorder) RunID() string { return r.runID }

func (r *Recorder) Start(int)                {}
func (r *Recorder) Dispatched(dispatch.Task) {}

func (r *Recorder) Finished(res dispatch.TaskResult) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.ledger.RecordTask(ctx, r.runID, res); err != nil {
		r.logger.Warn("ledger_task_failed", zap.String("run", r.runID), zap.Int("index", res.Index), zap.Error(err))
	}
}

func (r *Recorder) Done(sum dispatch.Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.ledger.FinishRun(ctx, r.runID, sum); err != nil {
		r.logger.Warn("ledger_finish_failed", zap.String("run", r.runID), zap.Error(err))
	}
}
