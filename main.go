package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/linesmerrill/change-order-api/api/handlers"
	"github.com/linesmerrill/change-order-api/config"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// a missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	conf, err := config.New()
	if err != nil {
		log.Fatal(err)
	}

	a := handlers.App{Config: *conf}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//initialize database and router
	if err := a.Initialize(ctx); err != nil {
		zap.S().Fatalw("failed to initialize", "error", err)
	}
	if err := a.Scheduler.Start(conf.SessionStatsSchedule); err != nil {
		zap.S().Fatalw("failed to start scheduler", "error", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%v", conf.Port),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.S().Warnw("http shutdown", "error", err)
		}
		if err := a.Close(shutdownCtx); err != nil {
			zap.S().Warnw("store disconnect", "error", err)
		}
	}()

	zap.S().Infow("change-order-api is up and running",
		"port", conf.Port,
		"url", conf.BaseURL,
		"store", conf.StoreDriver,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zap.S().Fatalw("http server stopped", "error", err)
	}
	<-done
	zap.S().Info("change-order-api stopped")
}
