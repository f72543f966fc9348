package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/devscore/schema"
)

// Color variables for console output.
var (
	TopColor      = color.New(color.FgGreen, color.Bold) // S and A grades.
	GoodColor     = color.New(color.FgCyan)              // B grade.
	FairColor     = color.New(color.FgYellow)            // C grade.
	WeakColor     = color.New(color.FgMagenta)           // D grade.
	FailingColor  = color.New(color.FgRed, color.Bold)   // F grade.
	FallbackColor = color.New(color.Faint)               // fallback-estimated components.
)

// GetColorGrade returns a colored grade for console output (table).
func GetColorGrade(grade schema.Grade) string {
	text := string(grade)
	switch grade {
	case schema.GradeS, schema.GradeA:
		return TopColor.Sprint(text)
	case schema.GradeB:
		return GoodColor.Sprint(text)
	case schema.GradeC:
		return FairColor.Sprint(text)
	case schema.GradeD:
		return WeakColor.Sprint(text)
	default:
		return FailingColor.Sprint(text)
	}
}

// GetColorSource returns a colored score source for console output.
func GetColorSource(source schema.ScoreSource) string {
	if source == schema.FallbackSource {
		return FallbackColor.Sprint(string(source))
	}
	return string(source)
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It falls back to os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetSnapshotDBFilePath returns the path to the SQLite DB file for snapshot storage.
func GetSnapshotDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".devscore_snapshots.db"
	}
	return filepath.Join(homeDir, ".devscore_snapshots.db")
}

// GetEventDBFilePath returns the path to the SQLite DB file for the scan event log.
func GetEventDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".devscore_events.db"
	}
	return filepath.Join(homeDir, ".devscore_events.db")
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// TruncateText truncates text to a maximum width with an ellipsis suffix.
func TruncateText(text string, maxWidth int) string {
	runes := []rune(text)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return text
}
