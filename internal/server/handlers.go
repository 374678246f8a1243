package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/persist"
	"github.com/claude/mapty/internal/session"
	"github.com/claude/mapty/internal/store"
	"github.com/go-chi/chi/v5"
)

type coordsRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (c coordsRequest) coords() (models.Coords, bool) {
	if c.Lat == nil || c.Lng == nil {
		return models.Coords{}, false
	}
	return models.Coords{*c.Lat, *c.Lng}, true
}

// formValue accepts a JSON string or number so that raw form fields and
// typed clients both work. Validation happens in the controller.
type formValue string

func (v *formValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = formValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = formValue(n.String())
	return nil
}

type submitRequest struct {
	Type      string    `json:"type"`
	Distance  formValue `json:"distance"`
	Duration  formValue `json:"duration"`
	Cadence   formValue `json:"cadence"`
	Elevation formValue `json:"elevation"`
}

type sessionResponse struct {
	State   string         `json:"state"`
	Pending *models.Coords `json:"pending,omitempty"`
	Unsaved bool           `json:"unsaved"`
	renderModel
}

// sessionState must be called with the controller held.
func (s *Server) sessionState(c *session.Controller) sessionResponse {
	resp := sessionResponse{
		State:       c.State().String(),
		Unsaved:     c.Unsaved(),
		renderModel: s.view.snapshot(),
	}
	if at, ok := c.Pending(); ok {
		resp.Pending = &at
	}
	return resp
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	var resp sessionResponse
	s.actor.Do(func(c *session.Controller) error {
		resp = s.sessionState(c)
		return nil
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	var req coordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	at, ok := req.coords()
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat and lng are required"})
		return
	}

	err := s.dispatch("position", func(c *session.Controller) error {
		return c.PositionAcquired(r.Context(), at)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.handleSession(w, r)
}

func (s *Server) handlePositionError(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	// The body is optional.
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Message == "" {
		req.Message = "position unavailable"
	}

	s.dispatch("position_error", func(c *session.Controller) error {
		c.PositionFailed(errors.New(req.Message))
		return nil
	})
	writeJSON(w, http.StatusOK, map[string]string{"alert": session.MsgLocationDenied})
}

func (s *Server) handleMapClick(w http.ResponseWriter, r *http.Request) {
	var req coordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	at, ok := req.coords()
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat and lng are required"})
		return
	}

	err := s.dispatch("map_click", func(c *session.Controller) error {
		return c.MapClicked(at)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pending": at})
}

func (s *Server) handleFormKind(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	err := s.dispatch("form_kind", func(c *session.Controller) error {
		return c.ToggleKind(req.Kind)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"kind": req.Kind})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	var workout models.Workout
	err := s.dispatch("submit", func(c *session.Controller) error {
		var err error
		workout, err = c.Submit(r.Context(), models.Input{
			Kind:      req.Type,
			Distance:  string(req.Distance),
			Duration:  string(req.Duration),
			Cadence:   string(req.Cadence),
			Elevation: string(req.Elevation),
		})
		return err
	})
	if err != nil && !errors.Is(err, persist.ErrPersistenceUnavailable) {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, withWarning(map[string]any{"workout": workout}, err))
}

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	var workouts []models.Workout
	s.actor.Do(func(c *session.Controller) error {
		workouts = c.Workouts()
		return nil
	})
	if kind := r.URL.Query().Get("type"); kind != "" {
		workouts = slices.DeleteFunc(workouts, func(w models.Workout) bool { return string(w.Kind) != kind })
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n >= 0 && n < len(workouts) {
			workouts = workouts[:n]
		}
	}
	if workouts == nil {
		workouts = []models.Workout{}
	}
	writeJSON(w, http.StatusOK, workouts)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var workout models.Workout
	err := s.actor.Do(func(c *session.Controller) error {
		var err error
		workout, err = c.Find(id)
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workout)
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var workout models.Workout
	err := s.dispatch("focus", func(c *session.Controller) error {
		var err error
		workout, err = c.MoveTo(id)
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"coords": workout.Coords})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.dispatch("delete", func(c *session.Controller) error {
		return c.Delete(r.Context(), id)
	})
	if err != nil && !errors.Is(err, persist.ErrPersistenceUnavailable) {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withWarning(map[string]any{"deleted": id}, err))
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	err := s.dispatch("delete_all", func(c *session.Controller) error {
		return c.DeleteAll(r.Context())
	})
	if err != nil && !errors.Is(err, persist.ErrPersistenceUnavailable) {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withWarning(map[string]any{"deleted": "all"}, err))
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var count int
	err := s.dispatch("sync", func(c *session.Controller) error {
		count = len(c.Workouts())
		return c.RetrySave(r.Context())
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"saved": count})
}

// writeError maps controller errors to status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": err.Error(),
			"field": ve.Field,
			"alert": session.MsgInvalidInput,
		})
	case errors.Is(err, models.ErrUnknownKind):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
	case errors.Is(err, session.ErrNotReady), errors.Is(err, session.ErrFormHidden):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, persist.ErrPersistenceUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		s.log.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// withWarning adds the persistence warning to a successful response body.
func withWarning(body map[string]any, err error) map[string]any {
	if err != nil {
		body["warning"] = session.MsgSaveFailed
	}
	return body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
