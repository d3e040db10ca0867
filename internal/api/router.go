// Package api wires the gin router: the npm-compatible registry surface
// under /registry and the JSON admin API under /api/v1 that the dashboard
// frontend consumes.
package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/npmregistry/registryd/internal/auth"
	"github.com/npmregistry/registryd/internal/cache"
	"github.com/npmregistry/registryd/internal/engine"
	"github.com/npmregistry/registryd/internal/publish"
	"github.com/npmregistry/registryd/internal/store"
	"github.com/npmregistry/registryd/internal/upstream"
)

type Handlers struct {
	Engine        *engine.Engine
	Publish       *publish.Service
	Auth          *auth.Service
	Upstream      *upstream.Client
	Packages      *store.PackageStore
	Analytics     *store.AnalyticsStore
	CacheStats    *store.CacheStatsStore
	TarballCache  *cache.TarballCache
	MetadataCache *cache.MetadataCache
}

// New builds the full gin.Engine. corsOrigins configures gin-contrib/cors
// for the admin API the dashboard talks to; npm itself never needs CORS.
//
// Everything under /registry/*pkgpath is dispatched manually in
// RegistryRoot rather than through further gin route patterns: npm's own
// "/-/user/...", "/-/whoami", and plain package paths all share a prefix
// that a scoped package name (@scope/name) could otherwise collide with,
// so one catch-all plus an in-code switch is the only unambiguous way to
// route them.
func New(h *Handlers, corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	registry := r.Group("/registry")
	registry.Any("/*pkgpath", OptionalAuth(h.Auth), h.RegistryRoot)

	apiV1 := r.Group("/api/v1")
	apiV1.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	apiV1.GET("/health", h.Health)
	apiV1.GET("/analytics", h.AnalyticsSummary)
	apiV1.GET("/packages", h.ListPackages)
	apiV1.GET("/packages/:name", h.PackageDetail)
	apiV1.GET("/cache/stats", h.CacheStatsHandler)
	apiV1.GET("/cache/health", h.CacheHealth)
	apiV1.DELETE("/cache", h.ClearCache)

	return r
}
