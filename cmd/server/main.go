package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/globalbank/globalbank-be/internal/auth"
	"github.com/globalbank/globalbank-be/internal/bank"
	"github.com/globalbank/globalbank-be/internal/config"
	"github.com/globalbank/globalbank-be/internal/mining"
	"github.com/globalbank/globalbank-be/internal/notify"
	"github.com/globalbank/globalbank-be/internal/server"
	"github.com/globalbank/globalbank-be/internal/storage"
	"github.com/globalbank/globalbank-be/internal/storage/file"
	"github.com/globalbank/globalbank-be/internal/storage/postgres"
)

func main() {
	loadLocalEnv()
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("init store")
	}
	defer store.Close()

	bankSvc := bank.New(store, notify.NewLogNotifier(), cfg.MiningInterval)
	if err := bankSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminName, cfg.AdminPassword); err != nil {
		log.WithError(err).Fatal("seed admin account")
	}

	miner := mining.New(bankSvc, cfg.MiningInterval)
	settings, err := bankSvc.Settings(ctx)
	if err != nil {
		log.WithError(err).Fatal("read settings")
	}
	if settings.MiningEnabled {
		miner.Start()
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	srv := server.New(cfg, bankSvc, miner, tokens)

	go func() {
		log.WithField("addr", cfg.HTTPAddress()).Info("Global Bank backend listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	miner.Stop()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.WithError(err).Error("graceful shutdown error")
	}
}

func openStore(ctx context.Context, cfg config.Config) (storage.DocumentStore, error) {
	if cfg.DatabaseURL != "" {
		log.Info("using postgres document store")
		return postgres.New(ctx, cfg.DatabaseURL)
	}
	log.WithField("path", cfg.DataFile).Info("using file document store")
	return file.New(cfg.DataFile)
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found; relying on existing environment")
	}
}
