// Package outwriter renders scan results, snapshots, events and the scoring model
// as text tables, JSON or CSV.
package outwriter

import (
	"os"

	"github.com/huangsam/devscore/internal/contract"
	"golang.org/x/term"
)

// getMaxTableTextWidth returns the room left for a free-text column once
// fixedWidth characters are taken by the other columns.
func getMaxTableTextWidth(cfg *contract.Config, fixedWidth int) int {
	termWidth := cfg.Width // absolute override from flag/env
	if termWidth <= 0 {
		detected, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detected <= 0 {
			termWidth = 100 // CI and pipes
		} else {
			termWidth = detected
		}
	}

	// Borders, separators and padding
	available := termWidth - fixedWidth - 10
	if available < 20 {
		return 20
	}
	if available > 80 {
		return 80
	}
	return available
}
