// Package progress reports a run as it happens. Nothing here affects which
// files get written.
package progress

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/park285/pgn2gif/internal/dispatch"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// Log writes one line per finished task. Failures go out at warn level,
// successes at info when verbose and debug otherwise.
type Log struct {
	logger  *zap.Logger
	verbose bool
}

func NewLog(logger *zap.Logger, verbose bool) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger, verbose: verbose}
}

func (l *Log) Start(total int) {
	l.logger.Info("run_started", zap.Int("tasks", total))
}

func (l *Log) Dispatched(task dispatch.Task) {
	l.logger.Debug("task_dispatched",
		zap.Int("index", task.Index),
		zap.String("white", task.Record.White),
		zap.String("black", task.Record.Black),
	)
}

func (l *Log) Finished(res dispatch.TaskResult) {
	if res.Status != dispatch.StatusOK {
		l.logger.Warn("render_failed",
			zap.Int("index", res.Index),
			zap.String("stage", string(res.Stage)),
			zap.Error(res.Err),
		)
		return
	}
	fields := []zap.Field{
		zap.Int("index", res.Index),
		zap.String("path", res.Path),
		zap.Int("frames", res.Frames),
		zap.Int("bytes", res.Bytes),
		zap.Duration("took", res.Duration),
	}
	if l.verbose {
		l.logger.Info("gif_written", fields...)
		return
	}
	l.logger.Debug("gif_written", fields...)
}

func (l *Log) Done(sum dispatch.Summary) {
	l.logger.Info("run_finished",
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
		zap.Int64("bytes", sum.BytesWritten),
		zap.Duration("elapsed", sum.Elapsed),
	)
}

// Bar draws a terminal progress bar advanced once per finished task.
type Bar struct {
	w   io.Writer
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func NewBar(w io.Writer) *Bar {
	if w == nil {
		w = os.Stderr
	}
	return &Bar{w: w}
}

func (b *Bar) Start(total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(b.w),
		progressbar.OptionSetDescription("rendering"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
}

func (b *Bar) Dispatched(dispatch.Task) {}

func (b *Bar) Finished(dispatch.TaskResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar != nil {
		_ = b.bar.Add(1)
	}
}

func (b *Bar) Done(dispatch.Summary) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar != nil {
		_ = b.bar.Finish()
	}
}

// Multi forwards every event to each reporter in order.
type Multi []dispatch.Reporter

func (m Multi) Start(total int) {
	for _, r := range m {
		r.Start(total)
	}
}

func (m Multi) Dispatched(task dispatch.Task) {
	for _, r := range m {
		r.Dispatched(task)
	}
}

func (m Multi) Finished(res dispatch.TaskResult) {
	for _, r := range m {
		r.Finished(res)
	}
}

func (m Multi) Done(sum dispatch.Summary) {
	for _, r := range m {
		r.Done(sum)
	}
}

type Nop struct{}

func (Nop) Start(int)                    {}
func (Nop) Dispatched(dispatch.Task)     {}
func (Nop) Finished(dispatch.TaskResult) {}
func (Nop) Done(dispatch.Summary)        {}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
