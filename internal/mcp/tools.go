package mcp

import (
	"context"
	"errors"
	"slices"
	"strconv"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/persist"
	"github.com/claude/mapty/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List logged workouts in insertion order. Each has id, coords, distance (km), duration (min), and cadence+pace for running or elevation gain+speed for cycling."),
	mcp.WithString("type", mcp.Description("Only return this activity type"), mcp.Enum("running", "cycling")),
	mcp.WithNumber("limit", mcp.Description("Return at most this many workouts")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get one workout by id."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout id")),
)

var toolLogWorkout = mcp.NewTool("log_workout",
	mcp.WithDescription("Log a workout at a map position. Does not touch the form open in the browser. Values must be positive numbers."),
	mcp.WithString("type", mcp.Required(), mcp.Description("Activity type"), mcp.Enum("running", "cycling")),
	mcp.WithNumber("lat", mcp.Required(), mcp.Description("Latitude of the workout")),
	mcp.WithNumber("lng", mcp.Required(), mcp.Description("Longitude of the workout")),
	mcp.WithNumber("distance", mcp.Required(), mcp.Description("Distance in km")),
	mcp.WithNumber("duration", mcp.Required(), mcp.Description("Duration in minutes")),
	mcp.WithNumber("cadence", mcp.Description("Steps per minute. Required for running.")),
	mcp.WithNumber("elevation", mcp.Description("Elevation gain in meters. Required for cycling.")),
)

var toolDeleteWorkout = mcp.NewTool("delete_workout",
	mcp.WithDescription("Delete one workout by id, or every workout when all is true."),
	mcp.WithString("id", mcp.Description("Workout id")),
	mcp.WithBoolean("all", mcp.Description("Delete every workout")),
)

var toolFocusWorkout = mcp.NewTool("focus_workout",
	mcp.WithDescription("Pan the map to a workout's position."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout id")),
)

// --- Tool handlers ---

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var ws []models.Workout
	h.actor.Do(func(c *session.Controller) error {
		ws = c.Workouts()
		return nil
	})

	if kind := req.GetString("type", ""); kind != "" {
		ws = slices.DeleteFunc(ws, func(w models.Workout) bool { return string(w.Kind) != kind })
	}
	if limit := req.GetInt("limit", 0); limit > 0 && limit < len(ws) {
		ws = ws[:limit]
	}
	if ws == nil {
		ws = []models.Workout{}
	}
	return jsonResult(ws)
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	var w models.Workout
	err = h.actor.Do(func(c *session.Controller) error {
		var err error
		w, err = c.Find(id)
		return err
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(w)
}

func (h *handlers) logWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError("type parameter is required"), nil
	}
	lat, err := req.RequireFloat("lat")
	if err != nil {
		return mcp.NewToolResultError("lat parameter is required"), nil
	}
	lng, err := req.RequireFloat("lng")
	if err != nil {
		return mcp.NewToolResultError("lng parameter is required"), nil
	}

	in := models.Input{
		Kind:      kind,
		Distance:  formatArg(req, "distance"),
		Duration:  formatArg(req, "duration"),
		Cadence:   formatArg(req, "cadence"),
		Elevation: formatArg(req, "elevation"),
	}

	var w models.Workout
	err = h.actor.Do(func(c *session.Controller) error {
		var err error
		w, err = c.Log(ctx, models.Coords{lat, lng}, in)
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, persist.ErrPersistenceUnavailable):
		h.log.Warn("mcp log_workout: not persisted", "id", w.ID, "error", err)
		return jsonResult(map[string]any{"workout": w, "warning": session.MsgSaveFailed})
	default:
		return mcp.NewToolResultError(toolError(err)), nil
	}
	return jsonResult(w)
}

func (h *handlers) deleteWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	all := req.GetBool("all", false)
	if id == "" && !all {
		return mcp.NewToolResultError("id or all is required"), nil
	}

	err := h.actor.Do(func(c *session.Controller) error {
		if all {
			return c.DeleteAll(ctx)
		}
		return c.Delete(ctx, id)
	})
	switch {
	case err == nil:
	case errors.Is(err, persist.ErrPersistenceUnavailable):
		h.log.Warn("mcp delete_workout: not persisted", "error", err)
		return mcp.NewToolResultText("deleted, but " + session.MsgSaveFailed), nil
	default:
		return mcp.NewToolResultError(toolError(err)), nil
	}

	if all {
		return mcp.NewToolResultText("deleted all workouts"), nil
	}
	return mcp.NewToolResultText("deleted " + id), nil
}

func (h *handlers) focusWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	var w models.Workout
	err = h.actor.Do(func(c *session.Controller) error {
		var err error
		w, err = c.MoveTo(id)
		return err
	})
	if err != nil {
		return mcp.NewToolResultError(toolError(err)), nil
	}
	return jsonResult(map[string]any{"id": w.ID, "coords": w.Coords})
}

// formatArg renders a numeric argument the way a form field would hold it.
// Absent arguments become the empty string.
func formatArg(req mcp.CallToolRequest, key string) string {
	v, ok := req.GetArguments()[key]
	if !ok || v == nil {
		return ""
	}
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case string:
		return n
	}
	return "NaN"
}

func toolError(err error) string {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return session.MsgInvalidInput + " (" + err.Error() + ")"
	}
	return err.Error()
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
