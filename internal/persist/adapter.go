// Package persist snapshots the workout list to a single blob and restores it.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/storage"
)

var (
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	ErrPersistenceCorrupt     = errors.New("persisted workouts corrupt")
)

// Adapter writes the full ordered workout list under one key. It keeps no
// references into the caller's store.
type Adapter struct {
	Blobs storage.BlobStore
	Key   string
}

// New returns an Adapter for key on blobs.
func New(blobs storage.BlobStore, key string) *Adapter {
	return &Adapter{Blobs: blobs, Key: key}
}

// Save overwrites the snapshot with ws. An empty list is stored as "[]".
func (a *Adapter) Save(ctx context.Context, ws []models.Workout) error {
	if ws == nil {
		ws = []models.Workout{}
	}
	data, err := json.Marshal(ws)
	if err != nil {
		return fmt.Errorf("encoding workouts: %w", err)
	}
	if err := a.Blobs.Set(ctx, a.Key, string(data)); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}
	return nil
}

// Load reads the snapshot. It fails closed: whatever goes wrong, the returned
// slice is empty (never partial) and the error says why, wrapping
// ErrPersistenceUnavailable or ErrPersistenceCorrupt. A missing key is not an
// error.
func (a *Adapter) Load(ctx context.Context) ([]models.Workout, error) {
	raw, ok, err := a.Blobs.Get(ctx, a.Key)
	if err != nil {
		return []models.Workout{}, fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}
	if !ok {
		return []models.Workout{}, nil
	}

	var stored []models.Workout
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return []models.Workout{}, fmt.Errorf("%w: %w", ErrPersistenceCorrupt, err)
	}

	out := make([]models.Workout, 0, len(stored))
	for i, w := range stored {
		restored, err := models.Restore(w)
		if err != nil {
			return []models.Workout{}, fmt.Errorf("%w: record %d: %w", ErrPersistenceCorrupt, i, err)
		}
		out = append(out, restored)
	}
	return out, nil
}

// Wipe removes the key entirely.
func (a *Adapter) Wipe(ctx context.Context) error {
	if err := a.Blobs.Remove(ctx, a.Key); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}
	return nil
}
