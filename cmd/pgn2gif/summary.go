package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/park285/pgn2gif/internal/dispatch"
)

func printSummary(w io.Writer, sum dispatch.Summary, stats cacheStats) {
	rows := [][]string{
		{"games read", strconv.Itoa(sum.Read)},
		{"selected", strconv.Itoa(sum.Selected)},
		{"filtered out", strconv.Itoa(sum.Skipped)},
		{"parse errors", strconv.Itoa(sum.ParseErrors)},
		{"written", strconv.Itoa(sum.Succeeded)},
		{"failed", strconv.Itoa(sum.Failed)},
		{"bytes", humanize.Bytes(uint64(sum.BytesWritten))},
		{"elapsed", sum.Elapsed.Round(time.Millisecond).String()},
	}
	if stats != nil {
		rows = append(rows, []string{"cache hits", fmt.Sprintf("%d/%d", stats.Hits(), stats.Hits()+stats.Misses())})
	}
	fmt.Fprintln(w, renderTable([]string{"Run", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))

	var failed [][]string
	for _, r := range sum.Results {
		if r.Status == dispatch.StatusOK {
			continue
		}
		msg := ""
		if r.Err != nil {
			msg = r.Err.Error()
		}
		failed = append(failed, []string{strconv.Itoa(r.Index), r.White, r.Black, string(r.Stage), msg})
	}
	if len(failed) > 0 {
		fmt.Fprintln(w, renderTable([]string{"#", "White", "Black", "Stage", "Error"}, failed, []columnAlignment{alignRight}))
	}
}
