package persist

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/storage"
)

func sampleWorkouts(t *testing.T) []models.Workout {
	t.Helper()
	clock := time.Date(2026, time.March, 3, 7, 0, 0, 0, time.UTC)
	v := &models.Validator{
		NewID: models.TimestampID,
		Now: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
	}
	var out []models.Workout
	for _, in := range []models.Input{
		{Kind: "running", Coords: models.Coords{38.7, -9.1}, Distance: "5", Duration: "25", Cadence: "180"},
		{Kind: "cycling", Coords: models.Coords{38.8, -9.2}, Distance: "20", Duration: "60", Elevation: "150"},
		{Kind: "running", Coords: models.Coords{38.9, -9.3}, Distance: "10.5", Duration: "52.3", Cadence: "-1"},
	} {
		w, err := v.Build(in)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, w)
	}
	return out
}

// TestRoundTrip verifies load(save(S)) returns S field for field, in order.
func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := New(storage.NewMemory(), "workouts")
	want := sampleWorkouts(t)

	if err := a.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := a.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

// TestRoundTripSQLite runs the round trip through a real SQLite file and a
// fresh adapter, as a new session would.
func TestRoundTripSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mapty.db")
	want := sampleWorkouts(t)

	db, err := storage.OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := New(db, "workouts").Save(ctx, want); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = storage.OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	got, err := New(db, "workouts").Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("loaded %d workouts, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Kind != want[i].Kind || !got[i].CreatedAt.Equal(want[i].CreatedAt) {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

// TestLoadAbsent verifies a missing key loads as an empty list without error.
func TestLoadAbsent(t *testing.T) {
	got, err := New(storage.NewMemory(), "workouts").Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Load() = %v, want empty non-nil slice", got)
	}
}

// TestLoadCorrupt verifies unparsable or invalid snapshots fail closed.
func TestLoadCorrupt(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":      "{{{",
		"wrong shape":   `{"id":"1"}`,
		"unknown kind":  `[{"id":"1","kind":"rowing","distanceKm":1,"durationMin":1}]`,
		"missing field": `[{"id":"1","kind":"running","distanceKm":1,"durationMin":1}]`,
	} {
		t.Run(name, func(t *testing.T) {
			mem := storage.NewMemory()
			if err := mem.Set(context.Background(), "workouts", raw); err != nil {
				t.Fatal(err)
			}
			got, err := New(mem, "workouts").Load(context.Background())
			if !errors.Is(err, ErrPersistenceCorrupt) {
				t.Errorf("err = %v, want ErrPersistenceCorrupt", err)
			}
			if len(got) != 0 {
				t.Errorf("got %d workouts from corrupt blob", len(got))
			}
		})
	}
}

// TestLoadUnavailable verifies a failing store yields an empty list and a
// wrapped ErrPersistenceUnavailable.
func TestLoadUnavailable(t *testing.T) {
	mem := storage.NewMemory()
	mem.Fail = errors.New("disk gone")
	a := New(mem, "workouts")

	got, err := a.Load(context.Background())
	if !errors.Is(err, ErrPersistenceUnavailable) {
		t.Errorf("Load err = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d workouts", len(got))
	}
	if err := a.Save(context.Background(), nil); !errors.Is(err, ErrPersistenceUnavailable) {
		t.Errorf("Save err = %v", err)
	}
	if err := a.Wipe(context.Background()); !errors.Is(err, ErrPersistenceUnavailable) {
		t.Errorf("Wipe err = %v", err)
	}
}

// TestLoadLegacyRecord verifies a record stored without derived values or
// description is rebuilt from its stored fields.
func TestLoadLegacyRecord(t *testing.T) {
	mem := storage.NewMemory()
	raw := `[{"id":"0000000001","createdAt":"2026-04-14T09:30:00Z","coords":[1,2],"distanceKm":5,"durationMin":25,"clickCount":0,"kind":"running","cadenceSpm":180}]`
	if err := mem.Set(context.Background(), "workouts", raw); err != nil {
		t.Fatal(err)
	}
	got, err := New(mem, "workouts").Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].PaceMinPerKm == nil || *got[0].PaceMinPerKm != 5 {
		t.Fatalf("got %+v", got)
	}
	if got[0].Description != "Running on April 14" {
		t.Errorf("description = %q", got[0].Description)
	}
}

// TestSaveOverwrites verifies each save is a full snapshot, and an empty list
// round-trips as empty.
func TestSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	a := New(mem, "workouts")
	ws := sampleWorkouts(t)

	if err := a.Save(ctx, ws); err != nil {
		t.Fatal(err)
	}
	if err := a.Save(ctx, ws[:1]); err != nil {
		t.Fatal(err)
	}
	got, _ := a.Load(ctx)
	if len(got) != 1 || got[0].ID != ws[0].ID {
		t.Errorf("after overwrite got %v", got)
	}

	if err := a.Save(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if raw, _, _ := mem.Get(ctx, "workouts"); raw != "[]" {
		t.Errorf("empty save stored %q, want []", raw)
	}
}

// TestWipe verifies delete-all removes the key so the next load is empty.
func TestWipe(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	a := New(mem, "workouts")
	if err := a.Save(ctx, sampleWorkouts(t)); err != nil {
		t.Fatal(err)
	}
	if err := a.Wipe(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := mem.Get(ctx, "workouts"); ok {
		t.Error("key present after Wipe")
	}
	got, err := a.Load(ctx)
	if err != nil || len(got) != 0 {
		t.Errorf("Load after Wipe = %v, %v", got, err)
	}
}
