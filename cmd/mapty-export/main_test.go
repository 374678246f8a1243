package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/persist"
	"github.com/claude/mapty/internal/server"
	"github.com/claude/mapty/internal/session"
	"github.com/claude/mapty/internal/storage"
)

// seed writes two workouts to a fresh SQLite file and returns a config path
// pointing at it.
func seed(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "mapty.db")

	blobs, err := storage.OpenSQLite(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer blobs.Close()

	seq := int64(0)
	v := &models.Validator{
		NewID: models.TimestampID,
		Now: func() time.Time {
			seq++
			return time.UnixMilli(1776159000000 + seq).UTC()
		},
	}
	var ws []models.Workout
	for _, in := range []models.Input{
		{Kind: "running", Coords: models.Coords{38.7, -9.1}, Distance: "5", Duration: "25", Cadence: "180"},
		{Kind: "cycling", Coords: models.Coords{38.8, -9.2}, Distance: "20", Duration: "60", Elevation: "150"},
	} {
		w, err := v.Build(in)
		if err != nil {
			t.Fatal(err)
		}
		ws = append(ws, w)
	}
	if err := persist.New(blobs, "workouts").Save(context.Background(), ws); err != nil {
		t.Fatal(err)
	}

	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := "storage:\n  driver: sqlite\n  sqlite:\n    path: " + dbPath + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

var discard = slog.New(slog.DiscardHandler)

// TestRunJSON verifies the snapshot is printed as a JSON array in order.
func TestRunJSON(t *testing.T) {
	cfgPath := seed(t)
	var out bytes.Buffer
	if err := run(options{configPath: cfgPath, format: "json"}, &out, discard); err != nil {
		t.Fatalf("run: %v", err)
	}

	var ws []models.Workout
	if err := json.Unmarshal(out.Bytes(), &ws); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ws) != 2 || ws[0].Kind != models.KindRunning || ws[1].Kind != models.KindCycling {
		t.Errorf("workouts = %+v", ws)
	}
}

// TestRunSummary verifies one line per workout.
func TestRunSummary(t *testing.T) {
	cfgPath := seed(t)
	var out bytes.Buffer
	if err := run(options{configPath: cfgPath, format: "summary"}, &out, discard); err != nil {
		t.Fatalf("run: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "6159000001  Running on April 14") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Cycling on April 14") {
		t.Errorf("line 1 = %q", lines[1])
	}
}

// TestRunWipe verifies -wipe removes the snapshot and a later export is empty.
func TestRunWipe(t *testing.T) {
	cfgPath := seed(t)
	if err := run(options{configPath: cfgPath, format: "json", wipe: true}, &bytes.Buffer{}, discard); err != nil {
		t.Fatalf("wipe: %v", err)
	}

	var out bytes.Buffer
	if err := run(options{configPath: cfgPath, format: "json"}, &out, discard); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "[]" {
		t.Errorf("after wipe = %q, want []", got)
	}
}

// TestRunErrors covers an unknown format and a missing config file.
func TestRunErrors(t *testing.T) {
	if err := run(options{configPath: "config.yaml", format: "xml"}, &bytes.Buffer{}, discard); err == nil {
		t.Error("expected error for unknown format")
	}
	if err := run(options{configPath: filepath.Join(t.TempDir(), "missing.yaml"), format: "json"}, &bytes.Buffer{}, discard); err == nil {
		t.Error("expected error for missing config")
	}
	if err := run(options{format: "json", sync: true}, &bytes.Buffer{}, discard); err == nil {
		t.Error("expected error for -sync without -server")
	}
}

// TestRunRemote exports from a running server after asking it to re-save.
func TestRunRemote(t *testing.T) {
	mem := storage.NewMemory()
	srv := server.New(persist.New(mem, "workouts"), session.Options{}, "k", discard)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	err := srv.Actor().Do(func(c *session.Controller) error {
		if err := c.PositionAcquired(context.Background(), models.Coords{38.7, -9.1}); err != nil {
			return err
		}
		if err := c.MapClicked(models.Coords{38.71, -9.12}); err != nil {
			return err
		}
		_, err := c.Submit(context.Background(), models.Input{Kind: "running", Distance: "5", Duration: "25", Cadence: "180"})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	mem.Remove(context.Background(), "workouts")

	var out bytes.Buffer
	if err := run(options{format: "summary", serverURL: ts.URL, apiKey: "k", sync: true}, &out, discard); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Running on") {
		t.Errorf("output = %q", out.String())
	}
	if _, ok, _ := mem.Get(context.Background(), "workouts"); !ok {
		t.Error("sync did not re-save the snapshot")
	}

	if err := run(options{format: "json", serverURL: ts.URL, wipe: true}, &bytes.Buffer{}, discard); err == nil {
		t.Error("expected error for -wipe with -server")
	}
}
