package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/park285/pgn2gif/internal/ledger"
	"github.com/spf13/cobra"
)

func newHistoryCommand(a *app, fv *flagValues) *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, fv)
			if err != nil {
				return err
			}
			if cfg.Ledger.DSN == "" {
				return fmt.Errorf("history: %w (set --ledger or PGN2GIF_LEDGER_DSN)", ledger.ErrDSNRequired)
			}
			l, err := ledger.Open(cmd.Context(), cfg.Ledger.DSN, nil)
			if err != nil {
				return err
			}
			defer l.Close()

			if runID != "" {
				tasks, err := l.RunTasks(cmd.Context(), runID)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, renderTaskTable(tasks))
				return nil
			}
			runs, err := l.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(a.stdout, "no runs recorded")
				return nil
			}
			fmt.Fprintln(a.stdout, renderRunTable(runs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "Show the tasks of one run")
	return cmd
}

func renderRunTable(runs []ledger.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		took := "running"
		if !r.FinishedAt.IsZero() {
			took = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		target := r.Target
		if target == "" {
			target = "(all)"
		}
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Mode,
			target,
			strconv.Itoa(r.Selected),
			strconv.Itoa(r.Succeeded),
			strconv.Itoa(r.Failed),
			humanize.Bytes(uint64(r.BytesWritten)),
			took,
		})
	}
	return renderTable(
		[]string{"Run", "Started", "Mode", "Player", "Games", "OK", "Failed", "Size", "Took"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
}

func renderTaskTable(tasks []ledger.Task) string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			strconv.Itoa(t.Index),
			t.White,
			t.Black,
			t.Status,
			strconv.Itoa(t.Frames),
			humanize.Bytes(uint64(t.Bytes)),
			t.Error,
		})
	}
	return renderTable(
		[]string{"#", "White", "Black", "Status", "Frames", "Size", "Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	)
}
