package mcp

import (
	"context"
	"encoding/json"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) workouts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	var ws []models.Workout
	h.actor.Do(func(c *session.Controller) error {
		ws = c.Workouts()
		return nil
	})
	if ws == nil {
		ws = []models.Workout{}
	}

	data, err := json.Marshal(ws)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
