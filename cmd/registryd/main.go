package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/npmregistry/registryd/internal/api"
	"github.com/npmregistry/registryd/internal/auth"
	"github.com/npmregistry/registryd/internal/cache"
	"github.com/npmregistry/registryd/internal/config"
	"github.com/npmregistry/registryd/internal/engine"
	"github.com/npmregistry/registryd/internal/logging"
	"github.com/npmregistry/registryd/internal/publish"
	"github.com/npmregistry/registryd/internal/store"
	"github.com/npmregistry/registryd/internal/upstream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logging.New(cfg)

	db, err := sqlx.Open("sqlite3", cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()

	if err := store.Migrate(db); err != nil {
		log.WithError(err).Error("run migrations")
		os.Exit(2)
	}

	users := store.NewUserStore(db)
	tokens := store.NewTokenStore(db)
	orgs := store.NewOrganizationStore(db)
	owners := store.NewOwnerStore(db)
	packages := store.NewPackageStore(db)
	versions := store.NewVersionStore(db)
	files := store.NewFileStore(db)
	tags := store.NewTagStore(db)
	metaRows := store.NewMetadataCacheStore(db)
	cacheStats := store.NewCacheStatsStore(db)
	analytics := store.NewAnalyticsStore(packages, versions, files, metaRows, cacheStats)

	metadataCache := cache.NewMetadataCache(cfg.CacheDir, metaRows, cfg.CacheTTL())
	tarballCache := cache.NewTarballCache(cfg.CacheDir, files, cacheStats)

	upstreamClient := upstream.New(
		cfg.UpstreamRegistry,
		cfg.ConnectTimeout,
		cfg.ReadTimeout,
		cfg.TarballTimeout,
		cfg.UpstreamRetries,
		log,
	)

	eng := &engine.Engine{
		Packages:      packages,
		Versions:      versions,
		Files:         files,
		Tags:          tags,
		MetadataCache: metadataCache,
		TarballCache:  tarballCache,
		Upstream:      upstreamClient,
		UpstreamBase:  cfg.UpstreamRegistry,
		Log:           log,
	}

	publishSvc := &publish.Service{
		Packages:      packages,
		Versions:      versions,
		Owners:        owners,
		Orgs:          orgs,
		Tags:          tags,
		TarballCache:  tarballCache,
		MetadataCache: metadataCache,
	}

	authSvc := auth.NewService(users, tokens, cfg.TokenTTL)

	handlers := &api.Handlers{
		Engine:        eng,
		Publish:       publishSvc,
		Auth:          authSvc,
		Upstream:      upstreamClient,
		Packages:      packages,
		Analytics:     analytics,
		CacheStats:    cacheStats,
		TarballCache:  tarballCache,
		MetadataCache: metadataCache,
	}

	router := api.New(handlers, corsOrigins())

	srv := &http.Server{
		Addr:         cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	stopStats := make(chan struct{})
	go flushCacheStatsPeriodically(tarballCache, log, stopStats)

	go func() {
		log.WithField("addr", srv.Addr).Info("registryd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	close(stopStats)

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func flushCacheStatsPeriodically(tc *cache.TarballCache, log *logrus.Logger, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := tc.FlushStats(); err != nil {
				log.WithError(err).Warn("flush cache stats")
			}
		case <-stop:
			return
		}
	}
}

func corsOrigins() []string {
	if v := os.Getenv("ADMIN_CORS_ORIGINS"); v != "" {
		return []string{v}
	}
	return []string{"http://localhost:5173"}
}
