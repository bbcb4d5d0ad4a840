package dispatch

import (
	"errors"
	"fmt"
	"io"

	"github.com/park285/pgn2gif/internal/filter"
	"github.com/park285/pgn2gif/internal/pgnsource"
	"go.uber.org/zap"
)

// RecordSource is satisfied by *pgnsource.Source.
type RecordSource interface {
	Next() (pgnsource.Record, error)
}

// Selection is the filtered record list plus what was dropped on the way.
type Selection struct {
	Records     []pgnsource.Record
	Read        int
	Skipped     int
	ParseErrors int
}

// Select drains src and keeps the records f admits, in input order.
// Unparsable games are logged and counted; any other read error aborts.
func Select(src RecordSource, f filter.Participant, logger *zap.Logger) (Selection, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var sel Selection
	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *pgnsource.ParseError
		if errors.As(err, &perr) {
			sel.ParseErrors++
			logger.Warn("pgn_parse_failed", zap.Int("game", perr.Index), zap.Error(perr.Err))
			continue
		}
		if err != nil {
			return sel, fmt.Errorf("read records: %w", err)
		}

		sel.Read++
		if !f.Match(rec.White, rec.Black) {
			sel.Skipped++
			logger.Debug("record_filtered",
				zap.Int("game", rec.Index),
				zap.String("white", rec.White),
				zap.String("black", rec.Black),
			)
			continue
		}
		sel.Records = append(sel.Records, rec)
	}
	logger.Info("records_selected",
		zap.Int("read", sel.Read),
		zap.Int("selected", len(sel.Records)),
		zap.Int("skipped", sel.Skipped),
		zap.Int("parse_errors", sel.ParseErrors),
		zap.String("target", f.Target()),
	)
	return sel, nil
}
