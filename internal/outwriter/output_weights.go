package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/schema"
)

// PrintWeights displays the component weights, the grade bands and the composite formula.
// This is a static display that does not require any scan.
func PrintWeights(model schema.WeightsRenderModel, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, model)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeWeightsCSV(w, model)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeWeightsText(w, model)
		}, "Wrote text")
	}
}

func writeWeightsText(w io.Writer, model schema.WeightsRenderModel) error {
	if _, err := fmt.Fprintf(w, "📊 Developer Score Components\n============================\n\n"); err != nil {
		return err
	}
	for _, row := range model.Components {
		if _, err := fmt.Fprintf(w, "%s (%.0f%%): %s\n", row.Kind, row.Weight, row.Description); err != nil {
			return err
		}
		for _, reason := range row.Rationale {
			if _, err := fmt.Fprintf(w, "   - %s\n", reason); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "Formula: %s\n\n", model.Formula); err != nil {
		return err
	}

	rows := make([][]string, 0, len(model.Grades))
	for _, band := range model.Grades {
		rows = append(rows, []string{contract.GetColorGrade(band.Grade), fmt.Sprintf("%.0f", band.Min)})
	}
	return writeTable(w, []string{"Grade", "Min"}, rows)
}

func writeWeightsCSV(w io.Writer, model schema.WeightsRenderModel) error {
	return writeCSVWithHeader(w, []string{"component", "weight", "description", "rationale"}, func(cw *csv.Writer) error {
		for _, row := range model.Components {
			rec := []string{
				string(row.Kind),
				fmt.Sprintf("%.0f", row.Weight),
				row.Description,
				strings.Join(row.Rationale, "|"),
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
		return nil
	})
}
