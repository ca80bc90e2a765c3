package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"parking-analytics/internal/reports"
	"parking-analytics/internal/telemetry"
	"parking-analytics/internal/visuals"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

type listReportsArgs struct{}

type getReportArgs struct {
	FacilityID string `json:"facility_id,omitempty"`
	Kind       string `json:"kind"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	Policy     string `json:"policy,omitempty"`
	Format     string `json:"format,omitempty"`
}

type refreshArgs struct {
	FacilityID string `json:"facility_id,omitempty"`
}

type reportKind struct {
	Kind        reports.Kind `json:"kind"`
	Description string       `json:"description"`
}

type refreshSummary struct {
	FacilityID    string `json:"facility_id"`
	Sessions      int    `json:"sessions"`
	Payments      int    `json:"payments"`
	Subscriptions int    `json:"subscriptions"`
	Shifts        int    `json:"shifts"`
	DroppedRows   int    `json:"dropped_rows"`
}

func (s *Server) handleListReports(_ context.Context, _ *mcp.CallToolRequest, _ listReportsArgs) (*mcp.CallToolResult, any, error) {
	out := make([]reportKind, 0, len(reports.Kinds))
	for _, k := range reports.Kinds {
		out = append(out, reportKind{Kind: k, Description: k.Describe()})
	}
	return textResult(formatResult(out)), nil, nil
}

func (s *Server) handleGetReport(ctx context.Context, _ *mcp.CallToolRequest, args getReportArgs) (*mcp.CallToolResult, any, error) {
	facility, err := s.facility(args.FacilityID)
	if err != nil {
		return errorResult(err), nil, nil
	}
	kind, err := reports.ParseKind(args.Kind)
	if err != nil {
		return errorResult(err), nil, nil
	}
	params, err := reports.ParseParams(args.From, args.To, args.Policy, s.cfg.Location, s.now(), s.cfg.InsightLimit)
	if err != nil {
		return errorResult(err), nil, nil
	}

	snap, fetchErr := s.src.Get(ctx, facility)
	if fetchErr != nil {
		log.Warn().Err(fetchErr).Str("facility", facility).Msg("get_report: serving empty snapshot")
	}

	start := time.Now()
	rep, err := reports.Build(kind, snap, params)
	if err != nil {
		return errorResult(err), nil, nil
	}
	telemetry.ObserveReport(string(kind), "mcp", start)

	var text string
	if args.Format == "markdown" {
		text = visuals.Markdown(rep, s.cfg.MermaidCharts)
	} else {
		text = formatResult(rep)
	}
	if fetchErr != nil {
		text = fmt.Sprintf("WARNING: the parking backend could not be reached (%v). The report below is empty.\n\n%s", fetchErr, text)
	}
	return textResult(text), nil, nil
}

func (s *Server) handleRefresh(ctx context.Context, _ *mcp.CallToolRequest, args refreshArgs) (*mcp.CallToolResult, any, error) {
	facility, err := s.facility(args.FacilityID)
	if err != nil {
		return errorResult(err), nil, nil
	}
	snap, err := s.src.Refresh(ctx, facility)
	if err != nil {
		return errorResult(fmt.Errorf("refresh failed: %w", err)), nil, nil
	}
	return textResult(formatResult(refreshSummary{
		FacilityID:    facility,
		Sessions:      len(snap.Sessions),
		Payments:      len(snap.Payments),
		Subscriptions: len(snap.Subscriptions),
		Shifts:        len(snap.Shifts),
		DroppedRows:   snap.Dropped.Total(),
	})), nil, nil
}

func (s *Server) facility(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	if s.cfg.DefaultFacility != "" {
		return s.cfg.DefaultFacility, nil
	}
	return "", fmt.Errorf("facility_id is required (no FACILITY_ID configured)")
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(err error) *mcp.CallToolResult {
	res := textResult(err.Error())
	res.IsError = true
	return res
}

func formatResult(data any) string {
	out, _ := json.MarshalIndent(data, "", "  ")
	return string(out)
}
