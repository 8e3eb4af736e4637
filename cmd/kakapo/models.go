package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kakapo-ai/kakapo/pkg/llm"
	"github.com/spf13/cobra"
)

func newModelsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models available to the configured API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := llm.New(c.cfg.LLM).ListModels(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("No models found. Your API key may have issues.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDISPLAY NAME")
			for _, m := range list {
				fmt.Fprintf(w, "%s\t%s\n", m.Name, m.DisplayName)
			}
			return w.Flush()
		},
	}
}
