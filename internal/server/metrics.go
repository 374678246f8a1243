package server

import (
	"errors"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/persist"
	"github.com/claude/mapty/internal/session"
	"github.com/claude/mapty/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	eventCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "session",
		Name:      "events_total",
		Help:      "Session events from HTTP and MCP, by event and outcome.",
	}, []string{"event", "outcome"})
	workoutsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapty",
		Subsystem: "session",
		Name:      "workouts",
		Help:      "Workouts currently held by the session.",
	})
	unsavedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapty",
		Subsystem: "persistence",
		Name:      "unsaved",
		Help:      "1 while the last write to the blob store has failed.",
	})
)

func init() {
	prometheus.MustRegister(eventCounter, workoutsGauge, unsavedGauge)
}

// dispatch runs fn on the controller, pushes the resulting session to
// connected streams, refreshes the gauges and counts the event. The session
// only reports an alert raised by the latest event.
func (s *Server) dispatch(event string, fn func(c *session.Controller) error) error {
	err := s.actor.Do(func(c *session.Controller) error {
		s.view.clearAlert()
		err := fn(c)
		s.publish(c)
		workoutsGauge.Set(float64(len(c.Workouts())))
		if c.Unsaved() {
			unsavedGauge.Set(1)
		} else {
			unsavedGauge.Set(0)
		}
		return err
	})
	eventCounter.WithLabelValues(event, outcome(err)).Inc()
	return err
}

func outcome(err error) string {
	var ve *models.ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, persist.ErrPersistenceUnavailable):
		return "unsaved"
	case errors.As(err, &ve),
		errors.Is(err, models.ErrUnknownKind),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, session.ErrNotReady),
		errors.Is(err, session.ErrFormHidden):
		return "rejected"
	}
	return "error"
}
