package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"parking-analytics/internal/httpapi"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var httpAddr string

var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "Serve the reports as a REST API",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.HTTPAddr
		if httpAddr != "" {
			addr = httpAddr
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		api := httpapi.NewWebAPI(log.Logger, httpapi.Config{
			Addr:          addr,
			Location:      cfg.Location,
			InsightLimit:  cfg.InsightLimit,
			MermaidCharts: cfg.EnableMermaidCharts,
		}, provider)
		return api.Start(ctx)
	},
}

func init() {
	httpCmd.Flags().StringVar(&httpAddr, "addr", "", "listen address (default HTTP_ADDR)")
}
