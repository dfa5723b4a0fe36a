package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartjogger/internal/config"
	"smartjogger/internal/draw"
	"smartjogger/internal/logging"
	"smartjogger/internal/processor"
	"smartjogger/internal/session"
	"smartjogger/internal/storage"
	"smartjogger/internal/web"
	"smartjogger/internal/worker"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	closeLogs, err := logging.Init(cfg.LogLevel, cfg.LogPath)
	if err != nil {
		log.Fatalf("init logging: %v", err)
	}
	defer closeLogs()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *storage.Store
	if cfg.DatabasePath != "" {
		store, err = storage.Open(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer store.Close()

		if err := store.InitSchema(ctx); err != nil {
			log.Fatalf("init schema: %v", err)
		}
	}

	srcs, err := buildSources(cfg, store)
	if err != nil {
		log.Fatalf("position source: %v", err)
	}
	defer srcs.Close()

	canvas := draw.NewRaster(cfg.CanvasWidth, cfg.CanvasHeight)
	board := web.NewBoard()

	sessCfg := session.DefaultConfig(float64(cfg.CanvasWidth), float64(cfg.CanvasHeight))
	sessCfg.StopAfter = time.Duration(cfg.StopThresholdMS) * time.Millisecond
	deps := session.Deps{
		Positions: srcs.Positions,
		Network:   srcs.Network,
		Canvas:    canvas,
		Display:   session.Displays{board, session.LogDisplay{}},
	}
	if store != nil {
		deps.Recorder = &storage.Recorder{Store: store}
	}
	sess := session.New(sessCfg, deps)
	slog.Info("starting session", "session", sess.ID(), "position_source", cfg.PositionSource, "network_source", cfg.NetworkSource, "recording", store != nil)

	webServer, err := web.NewServer(sess, board, canvas, store)
	if err != nil {
		log.Fatalf("load templates: %v", err)
	}
	if srcs.Push != nil {
		webServer.Handle("/positions", srcs.Push)
	}

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      webServer,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	sessionDone := make(chan struct{})
	go func() {
		sess.Run(ctx)
		close(sessionDone)
	}()

	if store != nil {
		queueWorker := &worker.Worker{
			Store: store,
			Processor: &processor.RunStatsProcessor{
				Store:        store,
				GapThreshold: sessCfg.StopAfter,
			},
		}
		go runWorker(ctx, queueWorker, time.Duration(cfg.WorkerPollIntervalMS)*time.Millisecond)
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	<-sessionDone
}

func runWorker(ctx context.Context, queueWorker *worker.Worker, idleDelay time.Duration) {
	if idleDelay <= 0 {
		idleDelay = 2 * time.Second
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		processed, err := queueWorker.ProcessNext(ctx)
		if err != nil {
			slog.Error("worker error", "error", err)
		}
		if !processed {
			select {
			case <-ctx.Done():
				return
			case <-time.After(idleDelay):
			}
		}
	}
}
