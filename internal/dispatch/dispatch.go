// Package dispatch fans selected records out to a runner, one render+write
// task per record, and collects the outcome of each.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/park285/pgn2gif/internal/frames"
	"github.com/park285/pgn2gif/internal/lilagif"
	"github.com/park285/pgn2gif/internal/pgnsource"
	"github.com/park285/pgn2gif/internal/workerpool"
	"github.com/park285/pgn2gif/pkg/gifdto"
	"go.uber.org/zap"
)

type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Stage names the step a task failed in.
type Stage string

const (
	StageSubmit  Stage = "submit"
	StageExtract Stage = "extract"
	StageRender  Stage = "render"
	StageWrite   Stage = "write"
	// StagePanic marks a task that panicked.
	StagePanic Stage = "panic"
)

var (
	ErrNoRunner   = errors.New("dispatcher needs a runner")
	ErrNoRenderer = errors.New("dispatcher needs a renderer")
	ErrNoWriter   = errors.New("dispatcher needs a writer")
)

// Task is one selected record bound to its output index.
type Task struct {
	Index  int
	Path   string
	Record pgnsource.Record
}

type TaskResult struct {
	Index    int
	Path     string
	White    string
	Black    string
	Status   Status
	Stage    Stage
	Err      error
	Frames   int
	Bytes    int
	Duration time.Duration
}

type Summary struct {
	Read         int
	Selected     int
	Skipped      int
	ParseErrors  int
	Succeeded    int
	Failed       int
	BytesWritten int64
	Elapsed      time.Duration
	Results      []TaskResult
}

// Writer is satisfied by *output.Writer.
type Writer interface {
	Path(index int) string
	Write(index int, data []byte) (string, error)
}

// Reporter observes a run. Finished is called from worker goroutines and
// must be safe for concurrent use.
type Reporter interface {
	Start(total int)
	Dispatched(task Task)
	Finished(result TaskResult)
	Done(summary Summary)
}

type nopReporter struct{}

func (nopReporter) Start(int)           {}
func (nopReporter) Dispatched(Task)     {}
func (nopReporter) Finished(TaskResult) {}
func (nopReporter) Done(Summary)        {}

type Dispatcher struct {
	runner   workerpool.Runner
	renderer lilagif.Renderer
	writer   Writer
	reporter Reporter
	logger   *zap.Logger
	delay    int
	comment  string
}

type Option func(*Dispatcher)

func WithReporter(r Reporter) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.reporter = r
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithDelay sets the per-frame delay in milliseconds.
func WithDelay(ms int) Option {
	return func(d *Dispatcher) {
		if ms > 0 {
			d.delay = ms
		}
	}
}

// WithComment sets the comment embedded in every rendered GIF.
func WithComment(c string) Option {
	return func(d *Dispatcher) { d.comment = c }
}

func New(runner workerpool.Runner, renderer lilagif.Renderer, writer Writer, opts ...Option) (*Dispatcher, error) {
	switch {
	case runner == nil:
		return nil, ErrNoRunner
	case renderer == nil:
		return nil, ErrNoRenderer
	case writer == nil:
		return nil, ErrNoWriter
	}
	d := &Dispatcher{
		runner:   runner,
		renderer: renderer,
		writer:   writer,
		reporter: nopReporter{},
		logger:   zap.NewNop(),
		delay:    60,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Run submits every selected record exactly once and blocks until all tasks
// have finished. Record i is always written to Path(i). The runner is left
// open; its owner closes it.
func (d *Dispatcher) Run(ctx context.Context, sel Selection) Summary {
	start := time.Now()
	results := make([]TaskResult, len(sel.Records))
	d.reporter.Start(len(sel.Records))

	var wg sync.WaitGroup
	for i, rec := range sel.Records {
		task := Task{Index: i, Path: d.writer.Path(i), Record: rec}
		d.reporter.Dispatched(task)

		wg.Add(1)
		err := d.runner.Submit(func() {
			defer wg.Done()
			res := d.safeExecute(ctx, task)
			results[task.Index] = res
			d.reporter.Finished(res)
		})
		if err != nil {
			wg.Done()
			res := failed(task, StageSubmit, err, 0)
			results[i] = res
			d.reporter.Finished(res)
		}
	}
	wg.Wait()

	sum := Summary{
		Read:        sel.Read,
		Selected:    len(sel.Records),
		Skipped:     sel.Skipped,
		ParseErrors: sel.ParseErrors,
		Elapsed:     time.Since(start),
		Results:     results,
	}
	for _, r := range results {
		if r.Status == StatusOK {
			sum.Succeeded++
			sum.BytesWritten += int64(r.Bytes)
		} else {
			sum.Failed++
		}
	}
	d.reporter.Done(sum)
	return sum
}

// safeExecute turns a panic inside execute into a failed result so the
// task is still counted and reported.
func (d *Dispatcher) safeExecute(ctx context.Context, task Task) (res TaskResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = d.fail(task, StagePanic, fmt.Errorf("panic: %v", r), start)
		}
	}()
	return d.execute(ctx, task)
}

func (d *Dispatcher) execute(ctx context.Context, task Task) TaskResult {
	start := time.Now()
	rec := task.Record

	snapshots, err := frames.Extract(rec.Game, d.delay)
	if err != nil {
		return d.fail(task, StageExtract, err, start)
	}

	req := &gifdto.GameRequest{
		White:       rec.White,
		Black:       rec.Black,
		Comment:     d.comment,
		Orientation: frames.Orientation(rec.Result),
		Delay:       d.delay,
		Frames:      snapshots,
	}
	data, err := d.renderer.Render(ctx, req)
	if err != nil {
		res := d.fail(task, StageRender, err, start)
		res.Frames = len(snapshots)
		return res
	}

	path, err := d.writer.Write(task.Index, data)
	if err != nil {
		res := d.fail(task, StageWrite, err, start)
		res.Frames = len(snapshots)
		return res
	}

	d.logger.Debug("task_done",
		zap.Int("index", task.Index),
		zap.String("path", path),
		zap.Int("frames", len(snapshots)),
		zap.Int("bytes", len(data)),
	)
	return TaskResult{
		Index:    task.Index,
		Path:     path,
		White:    rec.White,
		Black:    rec.Black,
		Status:   StatusOK,
		Frames:   len(snapshots),
		Bytes:    len(data),
		Duration: time.Since(start),
	}
}

func (d *Dispatcher) fail(task Task, stage Stage, err error, start time.Time) TaskResult {
	d.logger.Warn("task_failed",
		zap.Int("index", task.Index),
		zap.String("stage", string(stage)),
		zap.String("white", task.Record.White),
		zap.String("black", task.Record.Black),
		zap.Error(err),
	)
	return failed(task, stage, err, time.Since(start))
}

func failed(task Task, stage Stage, err error, took time.Duration) TaskResult {
	return TaskResult{
		Index:    task.Index,
		Path:     task.Path,
		White:    task.Record.White,
		Black:    task.Record.Black,
		Status:   StatusFailed,
		Stage:    stage,
		Err:      fmt.Errorf("%s: %w", stage, err),
		Duration: took,
	}
}
