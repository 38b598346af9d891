// Package main is the entry point of the student trajectory archive API.
//
// The server keeps one collection of student records in memory, persists it
// after every change and serves the editing, pending-subject and course
// report endpoints over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/archivo-trayectoria/trayectoria/config"
	"github.com/archivo-trayectoria/trayectoria/internal/application/command"
	"github.com/archivo-trayectoria/trayectoria/internal/application/query"
	"github.com/archivo-trayectoria/trayectoria/internal/bootstrap"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
	"github.com/archivo-trayectoria/trayectoria/internal/infrastructure/export/xlsx"
	"github.com/archivo-trayectoria/trayectoria/internal/infrastructure/importer"
	httpserver "github.com/archivo-trayectoria/trayectoria/internal/interface/http"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION & LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := bootstrap.NewLogger(cfg.Observability, os.Stdout)
	log.Info("starting trajectory archive",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"store", cfg.Store.Backend,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. STORE, INTERPRETER, ARCHIVE
	// ─────────────────────────────────────────────────────────────────────────
	rt, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing connections...")
		rt.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	a := rt.Archive
	ids := trajectory.UUIDGenerator{}

	var interpreter command.Interpreter
	if rt.Interpreter != nil {
		interpreter = rt.Interpreter
	}

	deps := httpserver.Dependencies{
		CreateStudent:  command.NewCreateStudentHandler(a, ids, log),
		UpdateSubject:  command.NewUpdateSubjectHandler(a),
		UpdateHeader:   command.NewUpdateHeaderHandler(a),
		DeleteStudent:  command.NewDeleteStudentHandler(a, log),
		ImportStudents: command.NewImportStudentsHandler(a, importer.NewRosterParser(), ids, log),
		Interpret:      command.NewInterpretHandler(a, interpreter, ids, log),

		ListStudents: query.NewListStudentsHandler(a),
		GetStudent:   query.NewGetStudentHandler(a),
		GetPending:   query.NewGetPendingHandler(a),
		ListCourses:  query.NewListCoursesHandler(a),
		CourseReport: query.NewGetCourseReportHandler(a),

		Schema:        rt.Schema,
		Exporter:      xlsx.NewCourseReportExporter(),
		Features:      cfg.Features,
		Logger:        bootstrap.NewHTTPLogger(cfg.Observability, os.Stdout),
		HealthChecker: rt.HealthChecker(),
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	if cfg.HTTP.ReadTimeout > 0 {
		httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	}
	if cfg.HTTP.WriteTimeout > 0 {
		httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	}
	if cfg.HTTP.IdleTimeout > 0 {
		httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	}
	if cfg.HTTP.MaxBodyBytes > 0 {
		httpConfig.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	}
	if len(cfg.HTTP.AllowedOrigins) > 0 {
		httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	}
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	httpConfig.APIKeys = cfg.HTTP.APIKeys
	httpConfig.Version = cfg.App.Version

	server := httpserver.NewServer(httpConfig, deps)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", "address", server.Address())
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 5. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("service error", "error", err)
		return err
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}
