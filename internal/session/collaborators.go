package session

import (
	"context"

	"github.com/claude/mapty/internal/models"
)

// Geolocator reports the device position once.
type Geolocator interface {
	CurrentPosition(ctx context.Context) (models.Coords, error)
}

// GeolocatorFunc adapts a function to Geolocator.
type GeolocatorFunc func(ctx context.Context) (models.Coords, error)

func (f GeolocatorFunc) CurrentPosition(ctx context.Context) (models.Coords, error) {
	return f(ctx)
}

// PopupOptions style the popup bound to a workout marker.
type PopupOptions struct {
	MaxWidth     int    `json:"maxWidth"`
	MinWidth     int    `json:"minWidth"`
	AutoClose    bool   `json:"autoClose"`
	CloseOnClick bool   `json:"closeOnClick"`
	ClassName    string `json:"className"`
}

// PanOptions control the map animation when moving to a workout.
type PanOptions struct {
	Animate bool `json:"animate"`
	// Duration is in seconds.
	Duration float64 `json:"duration"`
}

// Map is the interactive map widget. Click events are delivered to the
// controller through MapClicked.
type Map interface {
	Initialize(center models.Coords, zoom int)
	AddMarker(at models.Coords, popup string, opts PopupOptions)
	PanTo(at models.Coords, opts PanOptions)
	ClearMarkers()
}

// View is the sidebar: the workout form and the rendered list.
type View interface {
	RenderWorkoutSummary(w models.Workout)
	ShowForm()
	HideForm()
	// SetActivityKind marks which activity-specific field the form requires.
	SetActivityKind(k models.Kind)
	// Reset drops every rendered list entry ahead of a full re-render.
	Reset()
	Alert(msg string)
}

func popupOptions(k models.Kind) PopupOptions {
	return PopupOptions{
		MaxWidth:     250,
		MinWidth:     100,
		AutoClose:    false,
		CloseOnClick: false,
		ClassName:    string(k) + "-popup",
	}
}

var panOptions = PanOptions{Animate: true, Duration: 1}
