package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/npmregistry/registryd/internal/apierr"
	"github.com/npmregistry/registryd/internal/store"
)

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) AnalyticsSummary(c *gin.Context) {
	summary, err := h.Analytics.Summary(10)
	if err != nil {
		renderError(c, apierr.Storage("compute analytics summary", err))
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handlers) ListPackages(c *gin.Context) {
	limit, offset := 50, 0
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		offset = v
	}

	pkgs, err := h.Packages.Search(c.Query("q"), limit, offset)
	if err != nil {
		renderError(c, apierr.Storage("search packages", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": pkgs})
}

func (h *Handlers) PackageDetail(c *gin.Context) {
	pkg, err := h.Packages.GetByName(c.Param("name"))
	if err == store.ErrNotFound {
		renderError(c, apierr.NotFound("package not found"))
		return
	}
	if err != nil {
		renderError(c, apierr.Storage("look up package", err))
		return
	}
	c.JSON(http.StatusOK, pkg)
}

func (h *Handlers) CacheStatsHandler(c *gin.Context) {
	durable, err := h.CacheStats.Get()
	if err != nil {
		renderError(c, apierr.Storage("load cache stats", err))
		return
	}
	hit, miss := h.TarballCache.Stats()
	c.JSON(http.StatusOK, gin.H{
		"durable":           durable,
		"since_process_start": gin.H{"hit": hit, "miss": miss},
	})
}

func (h *Handlers) CacheHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) ClearCache(c *gin.Context) {
	if err := h.TarballCache.ClearAll(); err != nil {
		renderError(c, apierr.Storage("clear tarball cache", err))
		return
	}
	if err := h.MetadataCache.ClearAll(); err != nil {
		renderError(c, apierr.Storage("clear metadata cache", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
