package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/chartloom-cli/internal/server"
)

var (
	serveAddr    string
	serveBaseURL string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the report pipeline behind POST /upload",
	Example: `  chartloom serve --addr :8000
  curl -F files=@gia.csv -F files=@mau.pdf http://localhost:8000/upload -o report.html`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			c.ServerAddr = serveAddr
		}
		log, err := newLogger(c)
		if err != nil {
			return err
		}
		ps, err := loadPrompts(c)
		if err != nil {
			return err
		}
		rt, err := buildRuntime(c, serveBaseURL)
		if err != nil {
			return err
		}
		if c.TemplatePDF == "" {
			log.Warn("no default template configured; every upload must include one")
		}

		srv := server.New(server.ConfigFrom(c), server.PipelineBuilder(c, rt, ps, log), log)
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Listening on %s (POST /upload, GET /healthz)\n", c.ServerAddr)
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config server_addr)")
	serveCmd.Flags().StringVar(&serveBaseURL, "base-url", "", "override the provider endpoint")
}
