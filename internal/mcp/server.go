// Package mcp provides the MCP (Model Context Protocol) server implementation.
//
// This package exposes droidpilot's task pipeline and the underlying device
// as tools that can be called by AI agents via the MCP protocol.
package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/droidpilot/cli/internal/adb"
	"github.com/droidpilot/cli/internal/assets"
	"github.com/droidpilot/cli/internal/classify"
	"github.com/droidpilot/cli/internal/locate"
	"github.com/droidpilot/cli/internal/registry"
	"github.com/droidpilot/cli/internal/runner"
)

// Server wraps the MCP server with droidpilot-specific functionality.
type Server struct {
	mcpServer  *mcp.Server
	dev        adb.Device
	loc        *locate.Locator
	assets     *assets.Store
	runner     *runner.Runner
	reg        *registry.Registry
	classifier *classify.Classifier
	version    string
}

// Options carries the wired subsystems the server exposes as tools.
type Options struct {
	Device     adb.Device
	Locator    *locate.Locator
	Assets     *assets.Store
	Runner     *runner.Runner
	Registry   *registry.Registry
	Classifier *classify.Classifier
}

// NewServer creates a new droidpilot MCP server.
//
// Parameters:
//   - version: The CLI version string
//   - opts: The wired subsystems
//
// Returns:
//   - *Server: A new server instance
func NewServer(version string, opts Options) *Server {
	s := &Server{
		dev:        opts.Device,
		loc:        opts.Locator,
		assets:     opts.Assets,
		runner:     opts.Runner,
		reg:        opts.Registry,
		classifier: opts.Classifier,
		version:    version,
	}

	s.mcpServer = mcp.NewServer(
		&mcp.Implementation{
			Name:    "droidpilot",
			Version: version,
		},
		nil,
	)

	s.registerTaskTools()
	s.registerDeviceTools()

	return s
}

// Run starts the MCP server over stdio.
//
// Parameters:
//   - ctx: Context for cancellation
//
// Returns:
//   - error: Any error that occurred during execution
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
