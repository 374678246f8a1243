package models

import (
	"fmt"
	"time"
)

// Kind is the activity tag of a workout record.
type Kind string

const (
	KindRunning Kind = "running"
	KindCycling Kind = "cycling"
)

// ParseKind maps a form or wire value to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindRunning, KindCycling:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Title returns the capitalised kind name used in descriptions.
func (k Kind) Title() string {
	switch k {
	case KindRunning:
		return "Running"
	case KindCycling:
		return "Cycling"
	}
	return string(k)
}

// Coords is a [latitude, longitude] pair. It marshals as a two-element JSON array.
type Coords [2]float64

func (c Coords) Lat() float64 { return c[0] }
func (c Coords) Lng() float64 { return c[1] }

// Workout is a single logged activity. Records are data-only: the activity
// metric and its derived value are stored fields, filled for the record's Kind
// and nil for the other one.
type Workout struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	Coords      Coords    `json:"coords"`
	DistanceKm  float64   `json:"distanceKm"`
	DurationMin float64   `json:"durationMin"`
	ClickCount  int       `json:"clickCount"`
	Kind        Kind      `json:"kind"`
	Description string    `json:"description,omitempty"`

	// Running
	CadenceSpm   *float64 `json:"cadenceSpm,omitempty"`
	PaceMinPerKm *float64 `json:"paceMinPerKm,omitempty"`

	// Cycling
	ElevationGainM *float64 `json:"elevationGainM,omitempty"`
	SpeedKmPerH    *float64 `json:"speedKmPerH,omitempty"`
}

// Pace returns min/km divided out of duration and distance.
func Pace(durationMin, distanceKm float64) float64 {
	return durationMin / distanceKm
}

// Speed returns km/h from distance and a duration in minutes.
func Speed(distanceKm, durationMin float64) float64 {
	return distanceKm / (durationMin / 60)
}

// Describe builds the "Running on April 14" style label.
func Describe(k Kind, at time.Time) string {
	return fmt.Sprintf("%s on %s %d", k.Title(), at.Month(), at.Day())
}

// Restore validates the kind tag of a stored record and fills any derived
// value or description that the stored form is missing. It never calls back
// into anything but the record's own fields.
func Restore(w Workout) (Workout, error) {
	if w.ID == "" {
		return Workout{}, fmt.Errorf("restoring workout: empty id")
	}
	if _, err := ParseKind(string(w.Kind)); err != nil {
		return Workout{}, fmt.Errorf("restoring workout %s: %w", w.ID, err)
	}

	switch w.Kind {
	case KindRunning:
		if w.CadenceSpm == nil {
			return Workout{}, fmt.Errorf("restoring workout %s: running record without cadence", w.ID)
		}
		if w.PaceMinPerKm == nil && w.DistanceKm > 0 {
			w.PaceMinPerKm = ptr(Pace(w.DurationMin, w.DistanceKm))
		}
		w.ElevationGainM, w.SpeedKmPerH = nil, nil
	case KindCycling:
		if w.ElevationGainM == nil {
			return Workout{}, fmt.Errorf("restoring workout %s: cycling record without elevation", w.ID)
		}
		if w.SpeedKmPerH == nil && w.DurationMin > 0 {
			w.SpeedKmPerH = ptr(Speed(w.DistanceKm, w.DurationMin))
		}
		w.CadenceSpm, w.PaceMinPerKm = nil, nil
	}

	if w.Description == "" {
		w.Description = Describe(w.Kind, w.CreatedAt)
	}
	return w, nil
}

// Metric returns the activity-specific input value and its unit label.
func (w Workout) Metric() (float64, string) {
	if w.Kind == KindCycling && w.ElevationGainM != nil {
		return *w.ElevationGainM, "m"
	}
	if w.CadenceSpm != nil {
		return *w.CadenceSpm, "spm"
	}
	return 0, ""
}

// Derived returns the stored derived value and its unit label.
func (w Workout) Derived() (float64, string) {
	if w.Kind == KindCycling && w.SpeedKmPerH != nil {
		return *w.SpeedKmPerH, "km/h"
	}
	if w.PaceMinPerKm != nil {
		return *w.PaceMinPerKm, "min/km"
	}
	return 0, ""
}

// Summary renders the one-line list entry for a record from stored fields only.
func (w Workout) Summary() string {
	metric, metricUnit := w.Metric()
	derived, derivedUnit := w.Derived()
	return fmt.Sprintf("%s: %g km, %g min, %.1f %s, %g %s",
		w.Description, w.DistanceKm, w.DurationMin, derived, derivedUnit, metric, metricUnit)
}

func ptr(v float64) *float64 { return &v }
