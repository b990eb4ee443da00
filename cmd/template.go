package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/chartloom-cli/internal/parser"
	"github.com/KaramelBytes/chartloom-cli/internal/prompts"
	"github.com/KaramelBytes/chartloom-cli/internal/utils"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Inspect the report template and prompt texts",
}

var templateMaxTokens int

var templateShowCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "Print the text extracted from a template (default: configured template_pdf)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			c, err := requireConfig()
			if err != nil {
				return err
			}
			path = c.TemplatePDF
		}
		if path == "" {
			return fmt.Errorf("no template given and template_pdf is not configured")
		}
		text, err := parser.ParseFile(path)
		if err != nil {
			return err
		}
		if templateMaxTokens > 0 {
			text = utils.TruncateToTokenLimit(text, templateMaxTokens)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, text)
		fmt.Fprintf(out, "\n✓ %s: ≈%d tokens\n", filepath.Base(path), parser.EstimateTokens(text))
		return nil
	},
}

var templatePromptsCmd = &cobra.Command{
	Use:   "prompts <file.toml>",
	Short: "Write the built-in prompt texts to a TOML file for editing (set prompts_file to use it)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if utils.FileExists(args[0]) {
			return fmt.Errorf("%s already exists", args[0])
		}
		if err := prompts.WriteDefault(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Prompts written: %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateShowCmd)
	templateCmd.AddCommand(templatePromptsCmd)
	templateShowCmd.Flags().IntVar(&templateMaxTokens, "max-tokens", 0, "truncate the printed text to about this many tokens")
}
