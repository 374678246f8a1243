// Package session mediates between user events and the workout list: it
// validates submissions, keeps the store and its persisted snapshot in step,
// and tells the map and view what to draw.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/store"
)

// User-facing messages passed to View.Alert.
const (
	MsgLocationDenied = "Please Allow Location Permission..."
	MsgInvalidInput   = "Inputs have to be positive numbers!"
	MsgSaveFailed     = "Could not save your workouts. They are kept for this session; try syncing again."
)

var (
	ErrGeolocationDenied = errors.New("geolocation unavailable")
	ErrNotReady          = errors.New("map not ready: waiting for position")
	ErrFormHidden        = errors.New("no pending map click")
)

// State is the controller's position in the session lifecycle.
type State int

const (
	AwaitingPosition State = iota
	FormHidden
	FormVisible
)

func (s State) String() string {
	switch s {
	case AwaitingPosition:
		return "awaiting_position"
	case FormHidden:
		return "form_hidden"
	case FormVisible:
		return "form_visible"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Persister saves and restores the full workout list.
type Persister interface {
	Save(ctx context.Context, ws []models.Workout) error
	Load(ctx context.Context) ([]models.Workout, error)
	Wipe(ctx context.Context) error
}

// Options configure a Controller. Zero values get defaults.
type Options struct {
	Zoom      int
	Validator *models.Validator
	Log       *slog.Logger
}

// Controller owns the session's workout store. Every method runs to completion
// and the controller is not safe for concurrent use; callers that receive
// events on several goroutines must serialize them.
type Controller struct {
	store     *store.Store
	persist   Persister
	validator *models.Validator
	mapw      Map
	view      View
	log       *slog.Logger
	zoom      int

	state   State
	center  models.Coords
	pending models.Coords
	kind    models.Kind
	unsaved bool
}

// New creates a controller in the AwaitingPosition state with an empty store.
func New(p Persister, m Map, v View, opts Options) *Controller {
	if opts.Zoom == 0 {
		opts.Zoom = 13
	}
	if opts.Validator == nil {
		opts.Validator = models.NewValidator()
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &Controller{
		store:     store.New(),
		persist:   p,
		validator: opts.Validator,
		mapw:      m,
		view:      v,
		log:       opts.Log,
		zoom:      opts.Zoom,
		kind:      models.KindRunning,
	}
}

// Locate asks geo for the current position and dispatches the result to
// PositionAcquired or PositionFailed.
func (c *Controller) Locate(ctx context.Context, geo Geolocator) error {
	at, err := geo.CurrentPosition(ctx)
	if err != nil {
		c.PositionFailed(err)
		return fmt.Errorf("%w: %w", ErrGeolocationDenied, err)
	}
	return c.PositionAcquired(ctx, at)
}

// PositionFailed warns the user. The controller keeps waiting for a position.
func (c *Controller) PositionFailed(err error) {
	c.log.Warn("geolocation failed", "error", err)
	c.view.Alert(MsgLocationDenied)
}

// PositionAcquired centers the map, restores the persisted workouts and
// renders them in their stored order. Only the first call has an effect.
func (c *Controller) PositionAcquired(ctx context.Context, at models.Coords) error {
	if c.state != AwaitingPosition {
		c.log.Debug("position already acquired", "lat", at.Lat(), "lng", at.Lng())
		return nil
	}

	c.center = at
	c.mapw.Initialize(at, c.zoom)

	ws, err := c.persist.Load(ctx)
	if err != nil {
		c.log.Warn("restoring workouts failed, starting empty", "error", err)
	}
	c.store.Replace(ws)
	c.renderAll()

	c.state = FormHidden
	c.log.Info("map ready", "lat", at.Lat(), "lng", at.Lng(), "workouts", c.store.Len())
	return nil
}

// MapClicked records the click position for the next submission and opens
// the form. A later click before submitting replaces the position.
func (c *Controller) MapClicked(at models.Coords) error {
	if c.state == AwaitingPosition {
		return ErrNotReady
	}
	c.pending = at
	c.state = FormVisible
	c.view.ShowForm()
	return nil
}

// ToggleKind switches which activity-specific field the form requires.
func (c *Controller) ToggleKind(kind string) error {
	k, err := models.ParseKind(kind)
	if err != nil {
		return err
	}
	c.kind = k
	c.view.SetActivityKind(k)
	return nil
}

// Submit validates the form values against the pending click. On a validation
// failure the user is alerted, the form stays open and nothing is stored.
// On success the record is stored, persisted, drawn and the form closes. If
// only persisting fails, the record is still kept and drawn, the user is
// warned, and the returned error wraps the persistence failure.
func (c *Controller) Submit(ctx context.Context, in models.Input) (models.Workout, error) {
	if c.state != FormVisible {
		return models.Workout{}, ErrFormHidden
	}
	if in.Kind == "" {
		in.Kind = string(c.kind)
	}
	in.Coords = c.pending

	w, err := c.validator.Build(in)
	if err != nil {
		c.log.Info("rejected workout input", "error", err)
		c.view.Alert(MsgInvalidInput)
		return models.Workout{}, err
	}

	saveErr := c.add(ctx, w)
	c.view.HideForm()
	c.pending = models.Coords{}
	c.state = FormHidden
	return w, saveErr
}

// Log records a workout at the given position without going through the form.
// The form, its pending click and the selected kind are left alone, and a
// validation failure is returned without alerting the user.
func (c *Controller) Log(ctx context.Context, at models.Coords, in models.Input) (models.Workout, error) {
	if c.state == AwaitingPosition {
		return models.Workout{}, ErrNotReady
	}
	in.Coords = at

	w, err := c.validator.Build(in)
	if err != nil {
		c.log.Info("rejected logged workout", "error", err)
		return models.Workout{}, err
	}
	return w, c.add(ctx, w)
}

// MoveTo pans the map to the workout's position.
func (c *Controller) MoveTo(id string) (models.Workout, error) {
	if c.state == AwaitingPosition {
		return models.Workout{}, ErrNotReady
	}
	w, err := c.store.FindByID(id)
	if err != nil {
		return models.Workout{}, err
	}
	c.mapw.PanTo(w.Coords, panOptions)
	return w, nil
}

// Delete removes one workout, re-persists the rest and redraws the list.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if c.state == AwaitingPosition {
		return ErrNotReady
	}
	if err := c.store.RemoveByID(id); err != nil {
		return err
	}
	err := c.save(ctx)
	c.refresh()
	c.log.Info("workout deleted", "id", id)
	return err
}

// DeleteAll clears the store, wipes the persisted snapshot and redraws.
func (c *Controller) DeleteAll(ctx context.Context) error {
	if c.state == AwaitingPosition {
		return ErrNotReady
	}
	n := c.store.Len()
	c.store.Clear()

	var err error
	if err = c.persist.Wipe(ctx); err != nil {
		c.unsaved = true
		c.log.Error("wiping workouts failed", "error", err)
		c.view.Alert(MsgSaveFailed)
	} else {
		c.unsaved = false
	}
	c.refresh()
	c.log.Info("all workouts deleted", "count", n)
	return err
}

// RetrySave persists the current list again after an earlier failure.
func (c *Controller) RetrySave(ctx context.Context) error {
	if c.state == AwaitingPosition {
		return ErrNotReady
	}
	return c.save(ctx)
}

// State returns the current lifecycle state.
func (c *Controller) State() State { return c.state }

// Center returns the position the map was initialized at.
func (c *Controller) Center() models.Coords { return c.center }

// Zoom returns the initial map zoom level.
func (c *Controller) Zoom() int { return c.zoom }

// Kind returns the activity kind currently selected in the form.
func (c *Controller) Kind() models.Kind { return c.kind }

// Pending returns the click position awaiting a submission.
func (c *Controller) Pending() (models.Coords, bool) {
	return c.pending, c.state == FormVisible
}

// Unsaved reports whether the last write to persistence failed.
func (c *Controller) Unsaved() bool { return c.unsaved }

// Workouts returns the stored workouts in insertion order.
func (c *Controller) Workouts() []models.Workout { return c.store.All() }

// Find looks a workout up by id.
func (c *Controller) Find(id string) (models.Workout, error) { return c.store.FindByID(id) }

// add stores, persists and draws w. A persistence failure is returned but the
// record is kept.
func (c *Controller) add(ctx context.Context, w models.Workout) error {
	c.store.Add(w)
	err := c.save(ctx)
	c.draw(w)
	c.log.Info("workout added", "id", w.ID, "kind", w.Kind, "distance_km", w.DistanceKm)
	return err
}

func (c *Controller) save(ctx context.Context) error {
	if err := c.persist.Save(ctx, c.store.All()); err != nil {
		c.unsaved = true
		c.log.Error("saving workouts failed", "error", err)
		c.view.Alert(MsgSaveFailed)
		return err
	}
	c.unsaved = false
	return nil
}

func (c *Controller) draw(w models.Workout) {
	c.mapw.AddMarker(w.Coords, popupText(w), popupOptions(w.Kind))
	c.view.RenderWorkoutSummary(w)
}

func (c *Controller) renderAll() {
	for _, w := range c.store.All() {
		c.draw(w)
	}
}

// refresh redraws the whole list and every marker from the store.
func (c *Controller) refresh() {
	c.view.Reset()
	c.mapw.ClearMarkers()
	c.renderAll()
}

func popupText(w models.Workout) string {
	icon := "🏃‍♂️"
	if w.Kind == models.KindCycling {
		icon = "🚴‍♀️"
	}
	return icon + " " + w.Description
}
