package core

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Context keys for scan options
type contextKey string

const (
	showProgressKey contextKey = "showProgress"
	scanIDKey       contextKey = "scanID"
)

var progressColor = color.New(color.Faint)

// WithProgress enables progress lines on stderr for scans run with ctx
func WithProgress(ctx context.Context) context.Context {
	return context.WithValue(ctx, showProgressKey, true)
}

// showProgress returns whether progress lines should be printed
func showProgress(ctx context.Context) bool {
	val := ctx.Value(showProgressKey)
	if val == nil {
		return false // default: quiet, the API server shares this code
	}
	show, ok := val.(bool)
	return ok && show
}

// withScanID attaches the event id of the running scan
func withScanID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, scanIDKey, id)
}

// getScanID returns the event id of the running scan, or "" outside a scan
func getScanID(ctx context.Context) string {
	id, _ := ctx.Value(scanIDKey).(string)
	return id
}

// logProgress prints one progress line when enabled on ctx
func logProgress(ctx context.Context, format string, args ...any) {
	if !showProgress(ctx) {
		return
	}
	_, _ = progressColor.Fprintf(os.Stderr, "%s\n", fmt.Sprintf(format, args...))
}
