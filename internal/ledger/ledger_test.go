package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/park285/pgn2gif/internal/dispatch"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestRunRoundTrip(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	id, err := l.BeginRun(ctx, RunInfo{Input: "games.pgn", Output: "/out", Target: "Alice", Mode: "concurrent", Workers: 4})
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	runs, err := l.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != id || !runs[0].FinishedAt.IsZero() {
		t.Fatalf("open run: %+v", runs)
	}

	sum := dispatch.Summary{Read: 5, Selected: 3, Skipped: 2, Succeeded: 2, Failed: 1, BytesWritten: 1234}
	if err := l.FinishRun(ctx, id, sum); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	runs, err = l.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	r := runs[0]
	if r.FinishedAt.IsZero() || r.Selected != 3 || r.Failed != 1 || r.BytesWritten != 1234 {
		t.Fatalf("finished run: %+v", r)
	}
	if r.Input != "games.pgn" || r.Target != "Alice" || r.Workers != 4 {
		t.Fatalf("run info: %+v", r.RunInfo)
	}
}

func TestRecordTaskUpserts(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	id, err := l.BeginRun(ctx, RunInfo{Input: "g.pgn", Output: "/out", Mode: "sequential", Workers: 1})
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	failed := dispatch.TaskResult{Index: 1, Path: "/out/1.gif", White: "A", Black: "B",
		Status: dispatch.StatusFailed, Stage: dispatch.StageRender, Err: errors.New("render: status=500")}
	ok := dispatch.TaskResult{Index: 0, Path: "/out/0.gif", White: "C", Black: "D",
		Status: dispatch.StatusOK, Frames: 7, Bytes: 99, Duration: 1500 * time.Millisecond}
	for _, res := range []dispatch.TaskResult{failed, ok} {
		if err := l.RecordTask(ctx, id, res); err != nil {
			t.Fatalf("RecordTask: %v", err)
		}
	}
	failed.Status, failed.Stage, failed.Err, failed.Bytes = dispatch.StatusOK, "", nil, 42
	if err := l.RecordTask(ctx, id, failed); err != nil {
		t.Fatalf("RecordTask again: %v", err)
	}

	tasks, err := l.RunTasks(ctx, id)
	if err != nil {
		t.Fatalf("RunTasks: %v", err)
	}
	if len(tasks) != 2 || tasks[0].Index != 0 || tasks[1].Index != 1 {
		t.Fatalf("tasks: %+v", tasks)
	}
	if tasks[0].Frames != 7 || tasks[0].Duration != 1500*time.Millisecond {
		t.Fatalf("task 0: %+v", tasks[0])
	}
	if tasks[1].Status != "ok" || tasks[1].Error != "" || tasks[1].Bytes != 42 {
		t.Fatalf("task 1 was not replaced: %+v", tasks[1])
	}
}

func TestFinishUnknownRun(t *testing.T) {
	l := openTestLedger(t)
	if err := l.FinishRun(context.Background(), "missing", dispatch.Summary{}); err == nil {
		t.Fatalf("expected error for unknown run")
	}
}

func TestRecorderConcurrentWrites(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	id, err := l.BeginRun(ctx, RunInfo{Input: "g.pgn", Output: "/out", Mode: "concurrent", Workers: 8})
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	rec := l.Recorder(id)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec.Finished(dispatch.TaskResult{Index: i, Status: dispatch.StatusOK})
		}(i)
	}
	wg.Wait()
	rec.Done(dispatch.Summary{Selected: 16, Succeeded: 16})

	tasks, err := l.RunTasks(ctx, id)
	if err != nil {
		t.Fatalf("RunTasks: %v", err)
	}
	if len(tasks) != 16 {
		t.Fatalf("recorded %d tasks, want 16", len(tasks))
	}
	runs, _ := l.RecentRuns(ctx, 1)
	if len(runs) != 1 || runs[0].Succeeded != 16 {
		t.Fatalf("runs: %+v", runs)
	}
}

func TestRebind(t *testing.T) {
	pg := &Ledger{driver: driverPostgres}
	if got := pg.rebind("a=? AND b=?"); got != "a=$1 AND b=$2" {
		t.Fatalf("postgres rebind = %q", got)
	}
	lite := &Ledger{driver: driverSQLite}
	if got := lite.rebind("a=?"); got != "a=?" {
		t.Fatalf("sqlite rebind = %q", got)
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), "  ", nil); !errors.Is(err, ErrDSNRequired) {
		t.Fatalf("got %v", err)
	}
}

func TestOpenUnreachablePostgres(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err := Open(ctx, "postgres://u:p@127.0.0.1:1/db?sslmode=disable&connect_timeout=1", nil)
	if err == nil || !strings.Contains(err.Error(), "ledger") {
		t.Fatalf("expected ping error, got %v", err)
	}
}
