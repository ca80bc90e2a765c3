package mcp

import (
	"parking-analytics/internal/reports"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	kinds := make([]any, 0, len(reports.Kinds))
	for _, k := range reports.Kinds {
		kinds = append(kinds, string(k))
	}
	facility := &jsonschema.Schema{Type: "string", Description: "Facility (parking lot) ID. Defaults to the configured FACILITY_ID."}

	mcp.AddTool(s.srv, &mcp.Tool{
		Name:        "list_reports",
		Description: "List the available parking report kinds with a short description of each. Call this first to pick the report that answers the user's question.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleListReports)

	mcp.AddTool(s.srv, &mcp.Tool{
		Name: "get_report",
		Description: "Compute one parking report (KPIs for the current and the comparable previous period, breakdowns, trend series, rankings and natural-language insights). \n\n" +
			"Dates are calendar days in the facility time zone. Without dates the last 30 days ending today are used. \n" +
			"STRICT GUARDRAIL: Quote the returned figures and insights as they are. DO NOT recompute percentages or invent trends that the report does not contain. " +
			"If the report is empty, tell the user that no data was available for the period.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"facility_id": facility,
				"kind":        {Type: "string", Enum: kinds, Description: "Report kind (see list_reports)."},
				"from":        {Type: "string", Description: "Optional: first day of the period (YYYY-MM-DD). Requires 'to'."},
				"to":          {Type: "string", Description: "Optional: last day of the period (YYYY-MM-DD). Requires 'from'."},
				"policy": {
					Type:        "string",
					Enum:        []any{"preceding", "month", "quarter", "year"},
					Description: "Optional: how the previous period is chosen for the 'comparison' report. Default 'preceding' (the equal-length window right before).",
				},
				"format": {Type: "string", Enum: []any{"json", "markdown"}, Description: "Optional: 'json' (default) or 'markdown' with tables and charts."},
			},
			Required: []string{"kind"},
		},
	}, s.handleGetReport)

	mcp.AddTool(s.srv, &mcp.Tool{
		Name:        "refresh_snapshot",
		Description: "Re-fetch the facility data from the parking backend. Use this only when the user says the data is stale; reports already refresh periodically.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{"facility_id": facility},
		},
	}, s.handleRefresh)
}
