package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/cdcat/internal/itembank"
)

var bankCmd = &cobra.Command{
	Use:   "bank <bank.json>",
	Short: "Validate and describe an item bank",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bank, err := itembank.LoadJSON(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("items:           %d\n", bank.J())
		fmt.Printf("attributes:      %d\n", bank.K())
		fmt.Printf("latent classes:  %d\n", bank.L())
		if bank.Parametric() {
			fmt.Println("calibration:     latent-class probabilities present")
		} else {
			fmt.Println("calibration:     Q-matrix only (nonparametric mode)")
		}

		// Per-attribute item coverage.
		coverage := make([]int, bank.K())
		for _, qrow := range bank.Q {
			for a, v := range qrow {
				coverage[a] += v
			}
		}
		for a, n := range coverage {
			fmt.Printf("attribute %d:     measured by %d items\n", a+1, n)
		}
		return nil
	},
}
