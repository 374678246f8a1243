package mcp

import (
	"log/slog"

	"github.com/claude/mapty/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Dispatcher serializes calls onto the session controller. *session.Actor
// implements it.
type Dispatcher interface {
	Do(fn func(c *session.Controller) error) error
}

// New creates an MCP server with all tools and resources registered. Tool
// calls are events on the same controller the HTTP API drives.
func New(actor Dispatcher, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("Mapty", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Mapty workout log. List, log, focus and delete running and cycling workouts pinned to map coordinates. The map must have a position before workouts can be logged."),
	)

	h := &handlers{actor: actor, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolListWorkouts, Handler: h.listWorkouts},
		server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
		server.ServerTool{Tool: toolLogWorkout, Handler: h.logWorkout},
		server.ServerTool{Tool: toolDeleteWorkout, Handler: h.deleteWorkout},
		server.ServerTool{Tool: toolFocusWorkout, Handler: h.focusWorkout},
	)

	s.AddResources(
		server.ServerResource{Resource: resWorkouts, Handler: h.workouts},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	actor Dispatcher
	log   *slog.Logger
}

var resWorkouts = mcp.NewResource(
	"mapty://workouts",
	"Workouts",
	mcp.WithResourceDescription("Every logged workout in the order it was added, with derived pace or speed"),
	mcp.WithMIMEType("application/json"),
)
