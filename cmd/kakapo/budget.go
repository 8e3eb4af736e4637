package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kakapo-ai/kakapo/pkg/audit"
	"github.com/kakapo-ai/kakapo/pkg/budget"
	"github.com/spf13/cobra"
)

func newBudgetCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Show the model token budget",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show usage against the cap for the current period",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.cfg.Budget.Enabled {
				fmt.Println("Budget enforcement is disabled.")
				return nil
			}

			l, err := audit.New(c.cfg.Audit)
			if err != nil {
				return fmt.Errorf("open audit db: %w", err)
			}
			defer func() { _ = l.Close() }()

			st, err := budget.New(c.cfg.Budget, l).Status(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PERIOD\tMAX TOKENS\tUSED\tREMAINING")
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", st.Period, st.MaxTokens, st.Used, st.Remaining)
			return w.Flush()
		},
	}

	cmd.AddCommand(statusCmd)
	return cmd
}
