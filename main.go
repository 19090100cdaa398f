package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/joonaspessi/site/content"
	"github.com/joonaspessi/site/internal/config"
	"github.com/joonaspessi/site/internal/metrics"
	"github.com/joonaspessi/site/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("site stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)
	gin.SetMode(cfg.Server.Mode)

	docs, err := store.Load(contentFS(cfg.Site.ContentDir))
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	logger.Info("documents loaded", "count", docs.Len(), "dir", cfg.Site.ContentDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx, cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterCollectors(reg)

	if !cfg.SMTP.Configured() {
		logger.Warn("SMTP credentials not configured; contact form submissions will fail")
	}
	if cfg.Admin.UsesDefaults() {
		logger.Warn("using the default admin password; set ADMIN_PASSWORD")
	}

	srv, err := newServer(cfg, logger, docs, db, newSMTPMailer(cfg.SMTP), reg)
	if err != nil {
		return err
	}
	router, err := srv.router()
	if err != nil {
		return err
	}
	if gin.Mode() == gin.DebugMode {
		logger.Debug("admin token (dev only)", "token", srv.adminToken)
	}

	go srv.cleanupLoop(ctx)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", httpServer.Addr, "mode", gin.Mode())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	srv.pending.Wait()
	return nil
}

// contentFS returns the documents to serve: a directory on disk when one is
// configured, the embedded set otherwise.
func contentFS(dir string) fs.FS {
	if dir != "" {
		return os.DirFS(dir)
	}
	return content.FS
}
