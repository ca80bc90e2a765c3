package commands

import (
	"parking-analytics/internal/backend"
	"parking-analytics/internal/config"
	"parking-analytics/internal/logging"
	"parking-analytics/internal/mcp"
	"parking-analytics/internal/snapshot"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig

	provider *snapshot.Provider
)

var rootCmd = &cobra.Command{
	Use:   "parking-analytics",
	Short: "Reporting analytics for parking facilities",
	Long: `Computes occupancy, movements, shifts, income, payment-method, subscription and
period-comparison reports from a parking backend, and serves them over MCP (stdio) or HTTP.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		// Without a backend URL the provider serves cached snapshots only.
		var client backend.Client
		if cfg.Backend.BaseURL != "" {
			client = backend.NewClient(cfg.Backend)
		} else {
			log.Warn().Msg("BACKEND_URL is not set, serving cached snapshots only")
		}
		provider = snapshot.NewProvider(client, snapshot.NewStore(), cfg.CacheDir, cfg.Location, cfg.SnapshotTTL)

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("timezone", cfg.Location.String()).
			Msg("parking-analytics starting")
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the report tools over MCP (stdio)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	server := mcp.NewServer(provider, mcp.Config{
		Version:         Version,
		DefaultFacility: cfg.FacilityID,
		Location:        cfg.Location,
		InsightLimit:    cfg.InsightLimit,
		MermaidCharts:   cfg.EnableMermaidCharts,
	})
	return server.Serve(cmd.Context())
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.AddCommand(serveCmd, httpCmd, reportCmd, versionCmd)
}
