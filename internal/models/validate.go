package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidNumber    = errors.New("invalid number")
	ErrNonPositiveValue = errors.New("value must be positive")
	ErrUnknownKind      = errors.New("unknown workout kind")
)

// ValidationError names the form field that failed and the raw value it held.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Input holds the raw form values of a workout submission.
type Input struct {
	Kind      string
	Coords    Coords
	Distance  string
	Duration  string
	Cadence   string
	Elevation string
}

// IDFunc produces a record id for a creation time.
type IDFunc func(time.Time) string

// TimestampID takes the last ten digits of the millisecond clock. Two records
// created in the same millisecond collide.
func TimestampID(t time.Time) string {
	s := strconv.FormatInt(t.UnixMilli(), 10)
	if len(s) > 10 {
		s = s[len(s)-10:]
	}
	return s
}

// UUIDv7 returns a time-ordered UUID.
func UUIDv7(time.Time) string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Validator turns form input into workout records.
type Validator struct {
	NewID IDFunc
	Now   func() time.Time

	// StrictMetrics also requires cadence and elevation gain to be positive.
	// Off by default: only distance and duration are sign-checked.
	StrictMetrics bool
}

// NewValidator returns a Validator with the timestamp id scheme and wall clock.
func NewValidator() *Validator {
	return &Validator{NewID: TimestampID, Now: time.Now}
}

// Build validates in and constructs the record. The returned error wraps
// ErrInvalidNumber, ErrNonPositiveValue or ErrUnknownKind.
func (v *Validator) Build(in Input) (Workout, error) {
	kind, err := ParseKind(in.Kind)
	if err != nil {
		return Workout{}, &ValidationError{Field: "type", Value: in.Kind, Err: ErrUnknownKind}
	}

	distance, err := finite("distance", in.Distance)
	if err != nil {
		return Workout{}, err
	}
	duration, err := finite("duration", in.Duration)
	if err != nil {
		return Workout{}, err
	}

	metricField, metricRaw := "cadence", in.Cadence
	if kind == KindCycling {
		metricField, metricRaw = "elevation", in.Elevation
	}
	metric, err := finite(metricField, metricRaw)
	if err != nil {
		return Workout{}, err
	}

	if err := positive("distance", in.Distance, distance); err != nil {
		return Workout{}, err
	}
	if err := positive("duration", in.Duration, duration); err != nil {
		return Workout{}, err
	}
	if v.StrictMetrics {
		if err := positive(metricField, metricRaw, metric); err != nil {
			return Workout{}, err
		}
	}

	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	newID := TimestampID
	if v.NewID != nil {
		newID = v.NewID
	}

	created := now()
	w := Workout{
		ID:          newID(created),
		CreatedAt:   created,
		Coords:      in.Coords,
		DistanceKm:  distance,
		DurationMin: duration,
		Kind:        kind,
		Description: Describe(kind, created),
	}
	switch kind {
	case KindRunning:
		w.CadenceSpm = ptr(metric)
		w.PaceMinPerKm = ptr(Pace(duration, distance))
	case KindCycling:
		w.ElevationGainM = ptr(metric)
		w.SpeedKmPerH = ptr(Speed(distance, duration))
	}
	return w, nil
}

// finite coerces a form value the way the browser's unary plus does for
// decimal input: blank means 0.
func finite(field, raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &ValidationError{Field: field, Value: raw, Err: ErrInvalidNumber}
	}
	return f, nil
}

func positive(field, raw string, f float64) error {
	if f <= 0 {
		return &ValidationError{Field: field, Value: raw, Err: ErrNonPositiveValue}
	}
	return nil
}
