// Package mcp exposes the device session to agents as MCP tools, over stdio or
// streamable HTTP.
package mcp

import (
	"context"
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urmzd/ipcom/pkg/device"
)

const instructions = `Controls an IPCom home automation controller. Outputs are addressed by
module number and output number (1-8). Values range from 0 (off) to 255 (fully on);
dimmer outputs accept intermediate levels. Call list_modules first to learn the
names and kinds of outputs. Shutter outputs come in down/up pairs and setting one
stops its partner.`

// Server exposes the IPCom session as MCP tools
type Server struct {
	mcpServer  *server.MCPServer
	controller device.Controller
	http       *server.StreamableHTTPServer
}

// NewServer creates a new MCP server over a controller
func NewServer(controller device.Controller, version string) *Server {
	s := &Server{controller: controller}

	s.mcpServer = server.NewMCPServer(
		"ipcom",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions(instructions),
		server.WithRecovery(),
	)

	s.registerTools()

	return s
}

// ServeStdio serves on stdin/stdout until stdin closes
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Handler returns a streamable HTTP handler for mounting in another server
func (s *Server) Handler() http.Handler {
	if s.http == nil {
		s.http = server.NewStreamableHTTPServer(s.mcpServer)
	}
	return s.http
}

// ServeHTTP listens on addr and serves streamable HTTP at /mcp until Shutdown
func (s *Server) ServeHTTP(addr string) error {
	s.Handler()
	return s.http.Start(addr)
}

// Shutdown stops a server started with ServeHTTP
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
