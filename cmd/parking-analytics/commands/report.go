package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"parking-analytics/internal/parking"
	"parking-analytics/internal/reports"
	"parking-analytics/internal/snapshot"
	"parking-analytics/internal/telemetry"
	"parking-analytics/internal/visuals"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var reportFlags struct {
	facility string
	kind     string
	from     string
	to       string
	policy   string
	input    string
	format   string
	output   string
	open     bool
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Compute reports once and print or save them",
	Example: `  parking-analytics report --facility 12 --kind income --from 2024-01-01 --to 2024-01-31
  parking-analytics report --input snapshot.json --kind all --format html --open`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := reportFlags
		if f.open {
			f.format = "html"
		}

		snap, err := loadSnapshot(cmd, f.input, f.facility)
		if err != nil {
			return err
		}

		params, err := reports.ParseParams(f.from, f.to, f.policy, cfg.Location, time.Now(), cfg.InsightLimit)
		if err != nil {
			return err
		}

		out, err := renderReports(snap, f.kind, params, f.format, cfg.EnableMermaidCharts)
		if err != nil {
			return err
		}

		path := f.output
		if path == "" && f.open {
			path = filepath.Join(cfg.DataPath, fmt.Sprintf("report-%s.html", snap.FacilityID))
		}
		if path == "" {
			_, err = cmd.OutOrStdout().Write(out)
			return err
		}
		if err := os.WriteFile(path, out, 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		log.Info().Str("path", path).Msg("Report written")

		if f.open {
			return browser.OpenFile(path)
		}
		return nil
	},
}

func loadSnapshot(cmd *cobra.Command, input, facility string) (parking.Snapshot, error) {
	if input != "" {
		raw, err := snapshot.ReadFile(input)
		if err != nil {
			return parking.Snapshot{}, err
		}
		if facility != "" {
			raw.FacilityID = facility
		}
		return raw.Normalize(cfg.Location, time.Now()), nil
	}

	if facility == "" {
		facility = cfg.FacilityID
	}
	if facility == "" {
		return parking.Snapshot{}, fmt.Errorf("--facility is required (or set FACILITY_ID)")
	}
	snap, err := provider.Get(cmd.Context(), facility)
	if err != nil {
		log.Warn().Err(err).Str("facility", facility).Msg("Rendering reports from an empty snapshot")
	}
	return snap, nil
}

// renderReports builds the requested kind ("all" for every report) and
// serialises it as json, markdown or html.
func renderReports(snap parking.Snapshot, kind string, params reports.Params, format string, charts bool) ([]byte, error) {
	var built []reports.Report
	if kind == "" || strings.EqualFold(kind, "all") {
		built = reports.BuildAllObserved(snap, params, func(k reports.Kind, d time.Duration) {
			telemetry.ObserveReportDuration(string(k), "cli", d)
		})
	} else {
		k, err := reports.ParseKind(kind)
		if err != nil {
			return nil, err
		}
		start := time.Now()
		r, err := reports.Build(k, snap, params)
		if err != nil {
			return nil, err
		}
		telemetry.ObserveReport(string(k), "cli", start)
		built = []reports.Report{r}
	}

	switch format {
	case "", "json":
		var v any = built
		if len(built) == 1 {
			v = built[0]
		}
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case "markdown", "md":
		parts := make([]string, len(built))
		for i, r := range built {
			parts[i] = visuals.Markdown(r, charts)
		}
		return []byte(strings.Join(parts, "\n")), nil
	case "html":
		return visuals.HTML("Facility "+snap.FacilityID, built...)
	}
	return nil, fmt.Errorf("unknown format %q (json, markdown, html)", format)
}

func init() {
	fl := reportCmd.Flags()
	fl.StringVar(&reportFlags.facility, "facility", "", "facility ID (default FACILITY_ID)")
	fl.StringVar(&reportFlags.kind, "kind", "all", "report kind: "+kindNames()+" or all")
	fl.StringVar(&reportFlags.from, "from", "", "first day of the period (YYYY-MM-DD)")
	fl.StringVar(&reportFlags.to, "to", "", "last day of the period (YYYY-MM-DD)")
	fl.StringVar(&reportFlags.policy, "policy", "preceding", "comparison policy: preceding, month, quarter, year")
	fl.StringVar(&reportFlags.input, "input", "", "render from a raw snapshot file instead of the backend")
	fl.StringVarP(&reportFlags.format, "format", "f", "json", "output format: json, markdown, html")
	fl.StringVarP(&reportFlags.output, "output", "o", "", "write to a file instead of stdout")
	fl.BoolVar(&reportFlags.open, "open", false, "render as HTML and open it in the browser")
}

func kindNames() string {
	names := make([]string, len(reports.Kinds))
	for i, k := range reports.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
