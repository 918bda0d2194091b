package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/reencoder/config"
	HTTPAdapter "github.com/bnema/reencoder/internal/adapter/http"
	"github.com/bnema/reencoder/internal/adapter/probe/ffprobe"
	"github.com/bnema/reencoder/internal/adapter/storage/localfs"
	sqlitestore "github.com/bnema/reencoder/internal/adapter/storage/sqlite"
	"github.com/bnema/reencoder/internal/infrastructure/logger"
	"github.com/bnema/reencoder/internal/port"
	"github.com/bnema/reencoder/internal/service"
)

func main() {
	pathFlag := flag.String("path", "", "library directory to scan on startup")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Error.Printf("failed to load config: %v", err)
		os.Exit(1)
	}
	logger.Configure(cfg.LogLevel, os.Stdout)

	logger.Info.Printf("starting reencoder on %s, source codec=%s", cfg.ListenAddr(), cfg.SourceCodec)

	if _, err := exec.LookPath(cfg.FFprobePath); err != nil {
		logger.Warn.Printf("ffprobe not found at %q, every probe will fail: %v", cfg.FFprobePath, err)
	}

	var ledger port.Ledger
	if cfg.DataDir != "" {
		store, err := sqlitestore.NewStore(cfg.DataDir)
		if err != nil {
			logger.Error.Printf("failed to open ledger: %v", err)
			os.Exit(1)
		}
		defer func() { _ = store.Close() }()
		ledger = store
		logger.Info.Printf("ledger enabled in %s", cfg.DataDir)
	}

	classifier := ffprobe.NewClassifier(cfg.FFprobePath, cfg.ProbeTimeout)
	installer := localfs.NewInstaller(cfg.StagingDir)
	eventBus := service.NewEventBus()

	dispatch := service.NewDispatchService(
		service.NewScanner(classifier, cfg.SourceCodec),
		installer,
		ledger,
		eventBus,
		cfg.StrictSubmit,
	)
	defer dispatch.Close()

	root, err := startupRoot(*pathFlag, cfg.LibraryRoot, stdinIsTTY(), promptForRoot)
	if err != nil {
		logger.Warn.Printf("root prompt failed: %v", err)
	}
	if root != "" {
		if _, err := dispatch.TriggerScan(context.Background(), root); err != nil {
			logger.Error.Printf("initial scan of %s not started: %v", logger.SanitizePath(root), err)
		}
	} else {
		logger.Info.Printf("no library root given, waiting for POST /scan")
	}

	server := HTTPAdapter.NewServer(dispatch, eventBus, cfg.MaxUploadBytes(), cfg.VerifyUploads)

	addr := cfg.ListenAddr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info.Printf("received %s, shutting down", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error.Printf("http shutdown error: %v", err)
		}
		dispatch.Close()

		logger.Info.Printf("shutdown complete")
	}()

	logger.Info.Printf("server listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error.Printf("server failed: %v", err)
		os.Exit(1)
	}
	<-done
}
