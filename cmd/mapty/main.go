package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/mapty/internal/config"
	"github.com/claude/mapty/internal/mcp"
	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/persist"
	"github.com/claude/mapty/internal/server"
	"github.com/claude/mapty/internal/session"
	"github.com/claude/mapty/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	webDir := flag.String("web", "", "directory with the map page (index.html); empty serves the API only")
	migrateOnly := flag.Bool("migrate-only", false, "run postgres migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("Mapty starting", "version", Version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if *migrateOnly {
		if cfg.Storage.Driver != config.DriverPostgres {
			log.Info("migrate-only: nothing to migrate", "driver", cfg.Storage.Driver)
			return
		}
		if err := storage.RunMigrations(cfg.Storage.Postgres.DSN(), "migrations"); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied, exiting")
		return
	}

	ctx := context.Background()
	blobs, err := storage.Open(ctx, cfg.Storage, "migrations")
	if err != nil {
		log.Error("failed to open storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer blobs.Close()
	log.Info("storage ready", "driver", cfg.Storage.Driver, "key", cfg.Storage.Key)

	srv := server.New(persist.New(blobs, cfg.Storage.Key), session.Options{
		Zoom:      cfg.Map.Zoom,
		Validator: validator(cfg.Workouts),
	}, cfg.Auth.APIKey, log)

	mcpSrv := mcp.New(srv.Events("mcp"), Version, log)
	srv.Mount("/mcp", mcpserver.NewStreamableHTTPServer(mcpSrv))

	if *webDir != "" {
		srv.SetFrontend(os.DirFS(*webDir))
	}

	// Without a browser the map never gets a position; use the configured one.
	if cfg.Map.HasFallback() {
		at := models.Coords{*cfg.Map.Latitude, *cfg.Map.Longitude}
		geo := session.GeolocatorFunc(func(context.Context) (models.Coords, error) { return at, nil })
		if err := srv.Events("startup")(func(c *session.Controller) error { return c.Locate(ctx, geo) }); err != nil {
			log.Error("fallback position failed", "error", err)
			os.Exit(1)
		}
	}

	// Listen on the tailnet or on plain TCP.
	var listener net.Listener

	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr)
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

func validator(cfg config.WorkoutsConfig) *models.Validator {
	v := models.NewValidator()
	if cfg.IDScheme == config.IDSchemeUUID {
		v.NewID = models.UUIDv7
	}
	v.StrictMetrics = cfg.StrictMetrics
	return v
}
