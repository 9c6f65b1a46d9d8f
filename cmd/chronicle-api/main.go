package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	httpadapter "github.com/lindalindashu/novel-agent/internal/adapters/http"
	"github.com/lindalindashu/novel-agent/internal/bootstrap"
	"github.com/lindalindashu/novel-agent/internal/config"
	"github.com/lindalindashu/novel-agent/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	logger := observability.Setup(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting chronicle api",
		"mode", cfg.Mode,
		"llm_provider", cfg.LLM.Provider,
		"storage_backend", cfg.Storage.Backend,
	)

	svc, closeFn, err := bootstrap.NewDiaryService(ctx, cfg)
	if err != nil {
		logger.Error("error initializing diary service", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeFn(); err != nil {
			logger.Warn("error closing resources", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpadapter.NewServer(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("chronicle api listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited properly")
}
