package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abhisek/cdcat/internal/cat"
	"github.com/abhisek/cdcat/internal/itembank"
	"github.com/abhisek/cdcat/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a CD-CAT simulation batch",
	Long: "Run one adaptive session per examinee over the supplied item bank and\n" +
		"response matrix, printing a per-examinee summary. With --save, results\n" +
		"and the resolved configuration are persisted to the results database.",
	RunE: runSimulation,
}

func init() {
	runCmd.Flags().String("config", "", "YAML simulation config (defaults apply when omitted)")
	runCmd.Flags().String("bank", "", "Item bank JSON file (q_matrix + latent_class_probs)")
	runCmd.Flags().String("qmatrix", "", "Q-matrix CSV (alternative to --bank)")
	runCmd.Flags().String("probs", "", "Latent-class probability CSV (with --qmatrix)")
	runCmd.Flags().String("responses", "", "Response matrix CSV, one row per examinee")
	runCmd.Flags().Bool("save", false, "Persist results to the results database")

	runCmd.Flags().String("strategy", "", "Override item-selection strategy")
	runCmd.Flags().Int("max-items", 0, "Override maximum item count")
	runCmd.Flags().Int("workers", 0, "Override worker count")
	runCmd.Flags().Int64("seed", 0, "Override base random seed")
	runCmd.Flags().Bool("progress", false, "Show a progress counter")

	_ = runCmd.MarkFlagRequired("responses")
}

func runSimulation(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	bank, err := loadBank(cmd)
	if err != nil {
		return err
	}

	respPath, _ := cmd.Flags().GetString("responses")
	responses, err := itembank.LoadResponsesCSV(respPath, bank.J())
	if err != nil {
		return fmt.Errorf("load responses: %w", err)
	}

	runner, err := cat.NewRunner(bank, responses, cfg)
	if err != nil {
		return err
	}
	out, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	printSummary(out)

	if save, _ := cmd.Flags().GetBool("save"); save {
		runID := uuid.NewString()
		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve DB path: %w", err)
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		if err := st.RunRepo().Save(ctx, runID, time.Now(), out); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		fmt.Printf("saved run %s\n", runID)
	}
	return nil
}

// loadRunConfig resolves the configuration: YAML file if given, then
// flag overrides on top.
func loadRunConfig(cmd *cobra.Command) (cat.Config, error) {
	cfg := cat.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		var err error
		cfg, err = cat.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
	}
	if s, _ := cmd.Flags().GetString("strategy"); s != "" {
		cfg.Strategy = s
	}
	if n, _ := cmd.Flags().GetInt("max-items"); n > 0 {
		cfg.MaxItems = n
	}
	if n, _ := cmd.Flags().GetInt("workers"); n > 0 {
		cfg.Workers = n
	}
	if s, _ := cmd.Flags().GetInt64("seed"); s != 0 {
		cfg.Seed = s
	}
	if p, _ := cmd.Flags().GetBool("progress"); p {
		cfg.Progress = true
	}
	return cfg, nil
}

// loadBank reads the item bank from --bank JSON or --qmatrix/--probs
// CSVs.
func loadBank(cmd *cobra.Command) (*itembank.Bank, error) {
	bankPath, _ := cmd.Flags().GetString("bank")
	qPath, _ := cmd.Flags().GetString("qmatrix")

	switch {
	case bankPath != "" && qPath != "":
		return nil, fmt.Errorf("use either --bank or --qmatrix, not both")
	case bankPath != "":
		return itembank.LoadJSON(bankPath)
	case qPath != "":
		q, err := itembank.LoadQMatrixCSV(qPath)
		if err != nil {
			return nil, fmt.Errorf("load Q-matrix: %w", err)
		}
		var probs [][]float64
		if pPath, _ := cmd.Flags().GetString("probs"); pPath != "" {
			probs, err = itembank.LoadProbsCSV(pPath)
			if err != nil {
				return nil, fmt.Errorf("load probabilities: %w", err)
			}
		}
		return itembank.New(q, probs)
	}
	return nil, fmt.Errorf("an item bank is required: --bank or --qmatrix")
}

// printSummary writes a per-examinee summary table to stdout.
func printSummary(out *cat.RunResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EXAMINEE\tITEMS\tESTIMATE\tPRECISION\tSTATUS")

	failed := 0
	for _, res := range out.Results {
		if res.Failed() {
			failed++
			fmt.Fprintf(w, "%d\t-\t-\t-\t%s\n", res.Examinee+1, res.Err)
			continue
		}
		final := res.Final()
		estimate, precision := "-", "-"
		if final != nil {
			if final.MAPLabel != "" {
				estimate = final.MAPLabel
				precision = fmt.Sprintf("%.3f", final.MAPProb)
			} else {
				estimate = final.BestLabel
				precision = fmt.Sprintf("loss=%d", final.BestLoss)
			}
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\tok\n", res.Examinee+1, len(res.Items), estimate, precision)
	}
	w.Flush()

	fmt.Printf("\n%d examinees, %d failed, mode=%s", len(out.Results), failed, out.Config.Mode)
	if out.Config.Mode == cat.ModeParametric {
		fmt.Printf(", strategy=%s", out.Config.Strategy)
	}
	fmt.Println()
}
