// Package store holds the in-session, insertion-ordered workout list.
package store

import (
	"errors"
	"slices"

	"github.com/claude/mapty/internal/models"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("workout not found")

// Store is an ordered sequence of workout records. Insertion order is display
// order and persistence order; the store never reorders. Not safe for
// concurrent use: it belongs to a single controller.
type Store struct {
	workouts []models.Workout
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Add appends w. Ids are not checked for duplicates.
func (s *Store) Add(w models.Workout) {
	s.workouts = append(s.workouts, w)
}

// FindByID returns the first record with the given id.
func (s *Store) FindByID(id string) (models.Workout, error) {
	if i := s.index(id); i >= 0 {
		return s.workouts[i], nil
	}
	return models.Workout{}, ErrNotFound
}

// RemoveByID deletes the first record with the given id. The store is left
// unchanged when nothing matches.
func (s *Store) RemoveByID(id string) error {
	i := s.index(id)
	if i < 0 {
		return ErrNotFound
	}
	s.workouts = slices.Delete(s.workouts, i, i+1)
	return nil
}

// All returns a copy of the records in insertion order.
func (s *Store) All() []models.Workout {
	return slices.Clone(s.workouts)
}

// Replace swaps the whole sequence, used when hydrating from persistence.
func (s *Store) Replace(ws []models.Workout) {
	s.workouts = slices.Clone(ws)
}

// Clear empties the store.
func (s *Store) Clear() {
	s.workouts = nil
}

// Len reports the number of records.
func (s *Store) Len() int {
	return len(s.workouts)
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.workouts, func(w models.Workout) bool { return w.ID == id })
}
