// Package mcp exposes the analyzer over the Model Context Protocol so a
// conversational client can triage heart-rate archives without shelling out
// to the CLI. Tool results are pretty-printed JSON text content.
package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// Defaults seed tool arguments the client leaves unset. They come from the
// process environment so MCP runs and CLI runs agree on baseline behavior.
type Defaults struct {
	ThresholdBPM  float64
	MaxGapSeconds float64
	WindowMonths  int
	CachePath     string // empty disables the sample cache
}

// Server holds the state for the MCP tool surface.
type Server struct {
	version  string
	defaults Defaults
}

// NewServer creates a new MCP server.
func NewServer(version string, defaults Defaults) *Server {
	return &Server{version: version, defaults: defaults}
}

// Run serves MCP over stdio until the client disconnects or ctx is canceled.
// Logging must already be routed to stderr; stdout belongs to the protocol.
func (s *Server) Run(ctx context.Context) error {
	srv := s.build()
	log.Info().Str("version", s.version).Msg("MCP server listening on stdio")
	return srv.Run(ctx, &sdk.StdioTransport{})
}

// build assembles the SDK server with every tool registered. Split from Run
// so tests can drive the tool set over an in-memory transport.
func (s *Server) build() *sdk.Server {
	srv := sdk.NewServer(&sdk.Implementation{Name: "hrtriage", Version: s.version}, &sdk.ServerOptions{
		Instructions: "Analyze heart-rate export archives for elevated incidents. " +
			"Point the tools at a directory of .csv or .fit exports; " +
			"probe_schema first if you are unsure what a directory contains.",
	})
	sdk.AddTool(srv, analyzeTool(), s.handleAnalyze)
	sdk.AddTool(srv, breakdownTool(), s.handleBreakdown)
	sdk.AddTool(srv, probeTool(), s.handleProbe)
	return srv
}
