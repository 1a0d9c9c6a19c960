package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clipdesk/clipdesk-agent/internal/api"
	"github.com/clipdesk/clipdesk-agent/internal/capture"
	"github.com/clipdesk/clipdesk-agent/internal/config"
	"github.com/clipdesk/clipdesk-agent/internal/db"
	"github.com/clipdesk/clipdesk-agent/internal/export"
	"github.com/clipdesk/clipdesk-agent/internal/library"
	"github.com/clipdesk/clipdesk-agent/internal/logging"
	"github.com/clipdesk/clipdesk-agent/internal/media"
	"github.com/clipdesk/clipdesk-agent/internal/metrics"
	"github.com/clipdesk/clipdesk-agent/internal/playback"
	"github.com/clipdesk/clipdesk-agent/internal/transcribe"
	"github.com/clipdesk/clipdesk-agent/internal/ui"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	for _, dir := range []string{cfg.DataDir(), cfg.RecordingsDir(), cfg.TempDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting clipdesk agent", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := library.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                   CLIPDESK AGENT v" + config.Version + "                    ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	executor, err := media.Locate(cfg.FFmpegDir(), logger)
	if err != nil {
		logger.Warn("ffmpeg not found, capture and export will fail until it is installed", "error", err)
		executor = media.NewExecutor("ffmpeg", "ffprobe", logger)
	}

	m := metrics.New()

	captureManager := capture.NewManager(capture.Config{
		Launcher:     capture.NewFFmpegLauncher(executor.FFmpegPath(), logging.WithComponent(logger, "capture")),
		ScreenDevice: cfg.ScreenDevice(),
		Logger:       logging.WithComponent(logger, "capture"),
		Repo:         repo,
		Metrics:      m,
	})

	exporter := export.NewDriver(executor, repo, m, logging.WithComponent(logger, "export"))

	streamer := playback.NewStreamer(repo, logging.WithComponent(logger, "playback"))

	var transcriber api.TranscriptionService
	var progress api.ProgressSource
	if cfg.OpenAIKey() != "" {
		tlog := logging.WithComponent(logger, "transcribe")
		client := transcribe.NewClient(cfg.OpenAIBaseURL(), cfg.OpenAIKey(), tlog)
		hub := transcribe.NewHub(transcribe.NewLogNotifier(tlog))
		transcriber = transcribe.NewPipeline(executor, client, repo, hub, m, cfg.TempDir(), tlog)
		progress = hub
	} else {
		logger.Info("transcription disabled (no API key configured)")
	}

	apiServer := api.NewServer(api.ServerConfig{
		Port:          cfg.Port(),
		RecordingsDir: cfg.RecordingsDir(),
		TempDir:       cfg.TempDir(),
		Capture:       captureManager,
		Exporter:      exporter,
		Media:         executor,
		Transcriber:   transcriber,
		Progress:      progress,
		Streamer:      streamer,
		Repository:    repo,
		Metrics:       m.Handler(),
		Logger:        logging.WithComponent(logger, "api"),
		StartTime:     startTime,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Capture: captureManager,
			Logger:  logging.WithComponent(logger, "ui"),
			OnStop: func() {
				stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer stopCancel()
				if _, err := captureManager.Stop(stopCtx); err != nil {
					logger.Error("failed to stop recording from tray", "error", err)
				}
			},
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")

	if captureManager.Status().Active {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if _, err := captureManager.Stop(stopCtx); err != nil {
			logger.Error("failed to stop active recording during shutdown", "error", err)
		}
		stopCancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureAuthToken(repo library.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
