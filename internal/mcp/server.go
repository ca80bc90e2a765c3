package mcp

import (
	"context"
	"time"

	"parking-analytics/internal/parking"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// SnapshotSource serves per-facility snapshots.
type SnapshotSource interface {
	Get(ctx context.Context, facilityID string) (parking.Snapshot, error)
	Refresh(ctx context.Context, facilityID string) (parking.Snapshot, error)
}

// Config holds the tool server settings.
type Config struct {
	Version         string
	DefaultFacility string
	Location        *time.Location
	InsightLimit    int
	MermaidCharts   bool
}

// Server exposes the report engine as MCP tools.
type Server struct {
	src SnapshotSource
	cfg Config
	srv *mcp.Server
	now func() time.Time
}

// NewServer creates a new MCP server with every tool registered.
func NewServer(src SnapshotSource, cfg Config) *Server {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	s := &Server{
		src: src,
		cfg: cfg,
		now: time.Now,
		srv: mcp.NewServer(&mcp.Implementation{
			Name:    "parking-analytics",
			Version: cfg.Version,
		}, nil),
	}
	s.registerTools()
	return s
}

// Serve runs the server over stdio until the client disconnects or ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().Str("version", s.cfg.Version).Msg("MCP server listening on stdio")
	return s.srv.Run(ctx, &mcp.StdioTransport{})
}

// Connect attaches the server to an arbitrary transport.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.srv.Connect(ctx, t, nil)
}
