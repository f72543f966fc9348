package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/huangsam/devscore/core"
	"github.com/spf13/cobra"
)

// versionCmd shows the build and scoring-model details for diagnostic purposes.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of devscore.",
	Long: `Display the release version, build details and the scoring model in use.

Scores from binaries with different weight lines are not comparable, so include
this output when reporting a score discrepancy.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		if short, _ := cmd.Flags().GetBool("short"); short {
			cmd.Println(version)
			return
		}
		cmd.Printf("devscore CLI\n")
		cmd.Printf("  Version:  %s\n", version)
		cmd.Printf("  Commit:   %s\n", commit)
		cmd.Printf("  Built:    %s\n", date)
		cmd.Printf("  Runtime:  %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		cmd.Printf("  Weights:  %s\n", weightsLine())
	},
}

// weightsLine renders the component weights as kind=percent pairs.
func weightsLine() string {
	rows := core.Weights().Components
	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		parts = append(parts, fmt.Sprintf("%s=%g", row.Kind, row.Weight))
	}
	return strings.Join(parts, " ")
}

func init() {
	versionCmd.Flags().Bool("short", false, "Print only the release version")
}
