package server

import (
	"slices"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/session"
)

// Marker is a workout pin as the page should draw it.
type Marker struct {
	Coords  models.Coords        `json:"coords"`
	Popup   string               `json:"popup"`
	Options session.PopupOptions `json:"options"`
}

// Entry is one rendered list item.
type Entry struct {
	ID      string         `json:"id"`
	Summary string         `json:"summary"`
	Workout models.Workout `json:"workout"`
}

// Focus is the last move-to-location request.
type Focus struct {
	Coords  models.Coords      `json:"coords"`
	Options session.PanOptions `json:"options"`
}

// renderModel implements session.Map and session.View by recording what the
// browser should display. The page polls it through GET /api/v1/session.
type renderModel struct {
	Center    *models.Coords `json:"center,omitempty"`
	Zoom      int            `json:"zoom,omitempty"`
	Markers   []Marker       `json:"markers"`
	Entries   []Entry        `json:"workouts"`
	FormOpen  bool           `json:"formOpen"`
	FormKind  models.Kind    `json:"formKind"`
	Focus     *Focus         `json:"focus,omitempty"`
	LastAlert string         `json:"alert,omitempty"`
	AlertSeq  uint64         `json:"alertSeq"`
}

func newRenderModel() *renderModel {
	return &renderModel{
		Markers:  []Marker{},
		Entries:  []Entry{},
		FormKind: models.KindRunning,
	}
}

func (r *renderModel) Initialize(center models.Coords, zoom int) {
	r.Center = &center
	r.Zoom = zoom
}

func (r *renderModel) AddMarker(at models.Coords, popup string, opts session.PopupOptions) {
	r.Markers = append(r.Markers, Marker{Coords: at, Popup: popup, Options: opts})
}

func (r *renderModel) PanTo(at models.Coords, opts session.PanOptions) {
	r.Focus = &Focus{Coords: at, Options: opts}
}

func (r *renderModel) ClearMarkers() {
	r.Markers = []Marker{}
}

func (r *renderModel) RenderWorkoutSummary(w models.Workout) {
	r.Entries = append(r.Entries, Entry{ID: w.ID, Summary: w.Summary(), Workout: w})
}

func (r *renderModel) ShowForm() { r.FormOpen = true }
func (r *renderModel) HideForm() { r.FormOpen = false }

func (r *renderModel) SetActivityKind(k models.Kind) { r.FormKind = k }

func (r *renderModel) Reset() {
	r.Entries = []Entry{}
	r.Focus = nil
}

// Alert records msg for the page. AlertSeq increases with every alert, so a
// repeated message is still a new alert.
func (r *renderModel) Alert(msg string) {
	r.LastAlert = msg
	r.AlertSeq++
}

// clearAlert drops the previous event's alert. AlertSeq is kept.
func (r *renderModel) clearAlert() { r.LastAlert = "" }

// snapshot copies the model so it can be encoded outside the controller lock.
func (r *renderModel) snapshot() renderModel {
	out := *r
	out.Markers = slices.Clone(r.Markers)
	out.Entries = slices.Clone(r.Entries)
	return out
}
