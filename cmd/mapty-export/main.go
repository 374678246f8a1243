// Command mapty-export prints the persisted workout snapshot, or wipes it.
//
//	mapty-export -config config.yaml
//	mapty-export -format summary
//	mapty-export -wipe
//	mapty-export -server http://mapty:8080 -sync
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/claude/mapty/internal/client"
	"github.com/claude/mapty/internal/config"
	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/persist"
	"github.com/claude/mapty/internal/storage"
)

type options struct {
	configPath string
	format     string
	wipe       bool
	serverURL  string
	apiKey     string
	sync       bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "config.yaml", "path to config file")
	flag.StringVar(&opts.format, "format", "json", "output format: json or summary")
	flag.BoolVar(&opts.wipe, "wipe", false, "delete every persisted workout")
	flag.StringVar(&opts.serverURL, "server", "", "read from a running server instead of storage (e.g. http://mapty:8080)")
	flag.StringVar(&opts.apiKey, "api-key", os.Getenv("MAPTY_AUTH_API_KEY"), "API key for -server")
	flag.BoolVar(&opts.sync, "sync", false, "with -server, ask the server to persist its workouts again first")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := run(opts, os.Stdout, log); err != nil {
		log.Error("export failed", "error", err)
		os.Exit(1)
	}
}

func run(opts options, out io.Writer, log *slog.Logger) error {
	if opts.format != "json" && opts.format != "summary" {
		return fmt.Errorf("unknown format %q", opts.format)
	}
	if opts.serverURL != "" {
		return runRemote(opts, out, log)
	}
	if opts.sync {
		return fmt.Errorf("-sync requires -server")
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	blobs, err := storage.Open(ctx, cfg.Storage, "migrations")
	if err != nil {
		return fmt.Errorf("opening %s storage: %w", cfg.Storage.Driver, err)
	}
	defer blobs.Close()

	adapter := persist.New(blobs, cfg.Storage.Key)

	if opts.wipe {
		if err := adapter.Wipe(ctx); err != nil {
			return err
		}
		log.Info("workouts wiped", "driver", cfg.Storage.Driver, "key", cfg.Storage.Key)
		return nil
	}

	ws, err := adapter.Load(ctx)
	if err != nil {
		return err
	}
	log.Info("workouts loaded", "count", len(ws))
	return write(out, opts.format, ws)
}

func runRemote(opts options, out io.Writer, log *slog.Logger) error {
	if opts.wipe {
		return fmt.Errorf("-wipe works on storage only; use DELETE /api/v1/workouts on a running server")
	}
	c := client.New(opts.serverURL, opts.apiKey)

	if opts.sync {
		n, err := c.Sync()
		if err != nil {
			return err
		}
		log.Info("server re-saved workouts", "count", n)
	}

	ws, err := c.Workouts()
	if err != nil {
		return err
	}
	log.Info("workouts fetched", "server", opts.serverURL, "count", len(ws))
	return write(out, opts.format, ws)
}

func write(out io.Writer, format string, ws []models.Workout) error {
	if format == "summary" {
		for _, w := range ws {
			if _, err := fmt.Fprintf(out, "%s  %s\n", w.ID, w.Summary()); err != nil {
				return err
			}
		}
		return nil
	}
	if ws == nil {
		ws = []models.Workout{}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(ws)
}
