package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/schema"
)

// PrintEvents outputs scan events, newest first, in the configured format.
func PrintEvents(events []schema.ScanEvent, cfg *contract.Config) error {
	fmtFloat, intFmt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if events == nil {
				events = []schema.ScanEvent{}
			}
			return writeJSON(w, events)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeEventsCSV(w, events, fmtFloat)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeEventsText(w, events, cfg, fmtFloat, intFmt)
		}, "Wrote table")
	}
}

func writeEventsText(w io.Writer, events []schema.ScanEvent, cfg *contract.Config, fmtFloat func(float64) string, intFmt string) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(w, "No scan events recorded.")
		return err
	}

	errWidth := getMaxTableTextWidth(cfg, 90)
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			e.StartedAt.Format(contract.DateTimeFormat),
			e.UserID,
			string(e.Mode),
			string(e.Status),
			formatOptionalScore(e.Score, fmtFloat),
			string(e.Grade),
			strconv.FormatBool(e.Persisted),
			fmt.Sprintf(intFmt, e.DurationMs),
			contract.TruncateText(e.Error, errWidth),
		})
	}
	if err := writeTable(w, []string{"Started", "User", "Mode", "Status", "Score", "Grade", "Persisted", "Ms", "Error"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d events\n", len(events))
	return err
}

func writeEventsCSV(w io.Writer, events []schema.ScanEvent, fmtFloat func(float64) string) error {
	header := []string{"event_id", "user_id", "mode", "status", "score", "grade", "persisted", "rate_remaining", "started_at", "finished_at", "duration_ms", "error"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, e := range events {
			score := ""
			if e.Score != nil {
				score = fmtFloat(*e.Score)
			}
			rec := []string{
				e.EventID,
				e.UserID,
				string(e.Mode),
				string(e.Status),
				score,
				string(e.Grade),
				strconv.FormatBool(e.Persisted),
				strconv.Itoa(e.RateRemaining),
				e.StartedAt.Format(contract.DateTimeFormat),
				e.FinishedAt.Format(contract.DateTimeFormat),
				strconv.FormatInt(e.DurationMs, 10),
				e.Error,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
