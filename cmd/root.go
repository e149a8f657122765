package cmd

import (
	"github.com/abhisek/cdcat/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cdcat",
	Short: "Cognitive diagnostic CAT simulator",
	Long: "cdcat runs simulated cognitive-diagnostic computerized adaptive testing\n" +
		"sessions over a calibrated item bank and a pre-collected response matrix,\n" +
		"producing per-examinee attribute-mastery estimates and selection traces.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite results database (overrides CDCAT_DB env var)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(bankCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest
// priority), then CDCAT_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
