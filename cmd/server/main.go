package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/as00paf/kpoker/internal/auth"
	"github.com/as00paf/kpoker/internal/config"
	"github.com/as00paf/kpoker/internal/db"
	"github.com/as00paf/kpoker/internal/history"
	"github.com/as00paf/kpoker/internal/server"
)

func main() {
	cfg := config.LoadConfig()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	database, err := db.New(cfg.DBConfig, &auth.User{})
	if err != nil {
		logrus.WithError(err).Fatal("opening database")
	}

	historyPub, err := history.New(cfg.RedisConfig)
	if err != nil {
		logrus.WithError(err).Warn("hand history disabled")
	}
	defer historyPub.Close()

	authSvc := auth.NewService(database.DB, cfg.JWTSecret)
	srv := server.NewServer(cfg, authSvc, historyPub)

	httpServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: srv.Router(),
	}

	go func() {
		logrus.WithField("port", cfg.ServerPort).Info("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server stopped")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logrus.Info("shutting down")
	srv.Registry().CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
}
