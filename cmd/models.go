package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known models with context size, vision support and pricing",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MODEL\tCONTEXT\tVISION\t$/1K IN\t$/1K OUT")
		for _, m := range ai.Models() {
			vision := "no"
			if m.Vision {
				vision = "yes"
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%.5f\t%.5f\n", m.Name, m.ContextTokens, vision, m.InputPerK, m.OutputPerK)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nProviders: %v. Any model name the provider accepts works; prices are estimates.\n", ai.Providers())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
