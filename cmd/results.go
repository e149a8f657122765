package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/abhisek/cdcat/internal/store"
)

var resultsCmd = &cobra.Command{
	Use:   "results [run-id]",
	Short: "List stored runs or show one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve DB path: %w", err)
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		repo := st.RunRepo()

		if len(args) == 0 {
			runs, err := repo.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no stored runs")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tCREATED\tMODE\tSTRATEGY\tEXAMINEES")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
					r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Mode, r.Strategy, r.Examinees)
			}
			return w.Flush()
		}

		out, err := repo.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printSummary(out)
		return nil
	},
}
