package main

import (
	"context"
	"flag"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/credential"
	"antigravity2api-go/internal/logging"
	"antigravity2api-go/internal/memory"
	"antigravity2api-go/internal/monitoring/tracing"
	"antigravity2api-go/internal/oauth"
	"antigravity2api-go/internal/quota"
	"antigravity2api-go/internal/server"
	"antigravity2api-go/internal/signature"
	"antigravity2api-go/internal/storage"
	"antigravity2api-go/internal/upstream"
)

// Version is injected via -ldflags at build time.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg := config.LoadWithFile(*configPath)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if err := logging.Setup(cfg); err != nil {
		log.WithError(err).Fatal("failed to configure logging")
	}
	logging.InstallStreamHook()
	logging.GetLogHub().Start()
	defer logging.GetLogHub().Stop()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Infof("starting antigravity2api-go %s", Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	traceShutdown, err := tracing.Init(ctx)
	if err != nil {
		log.WithError(err).Warn("tracing disabled")
	}
	if traceShutdown != nil {
		defer func() {
			if err := traceShutdown(context.Background()); err != nil {
				log.WithError(err).Warn("tracing shutdown failed")
			}
		}()
	}

	backend, err := storage.FromConfig(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to build storage backend")
	}
	if err := backend.Initialize(ctx); err != nil {
		log.WithError(err).Fatal("failed to initialize storage backend")
	}
	defer backend.Close()

	store := credential.NewStore(backend)
	if err := store.Load(ctx); err != nil {
		log.WithError(err).Fatal("failed to load credentials")
	}
	if cfg.Storage.Backend == "file" {
		accountsPath := filepath.Join(cfg.Storage.DataDir, "accounts.json")
		if err := store.Watch(ctx, accountsPath); err != nil {
			log.WithError(err).Warn("accounts hot-reload disabled")
		}
	}

	refresher := oauth.NewManager(cfg.OAuth.ClientID, cfg.OAuth.ClientSecret)
	projects := oauth.NewProjectDetector(cfg.Upstream.BaseURL)
	pool := credential.NewPool(store, refresher, projects, credential.RotationConfig{
		Strategy:             cfg.Rotation.Strategy,
		RequestCountPerToken: cfg.Rotation.RequestCountPerToken,
	}, cfg.Rotation.SkipProjectDiscovery)

	quotas := quota.NewCache(backend)
	if err := quotas.Load(ctx); err != nil {
		log.WithError(err).Warn("quota cache starts empty")
	}
	quotas.StartSweeper()
	defer quotas.Stop()

	signatures := signature.NewCache()

	regulator := memory.New(cfg.Memory.HighMemoryMB)
	regulator.Subscribe(quotas.Cleanup)
	regulator.Subscribe(signatures.Cleanup)
	regulator.Start()
	defer regulator.Stop()

	engine := server.BuildEngine(server.Dependencies{
		Config:     cfg,
		Store:      store,
		Pool:       pool,
		Quotas:     quotas,
		Signatures: signatures,
		Requester:  upstream.NewRequester(cfg),
		Regulator:  regulator,
	})

	if err := server.New(cfg, engine).Run(ctx); err != nil {
		log.WithError(err).Fatal("server exited")
	}
	log.Info("bye")
}
