package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/npmregistry/registryd/internal/apierr"
)

func schemeOf(c *gin.Context) string {
	if c.Request.TLS != nil {
		return "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}

// RegistryRoot is the single entry point for everything under
// /registry/*pkgpath. It first peels off npm's reserved "-/" paths
// (adduser, whoami, token revocation, audit passthrough), then falls
// through to package document/tarball/publish handling.
func (h *Handlers) RegistryRoot(c *gin.Context) {
	rest := strings.TrimPrefix(c.Param("pkgpath"), "/")
	method := c.Request.Method

	switch {
	case rest == "-/whoami":
		if method != http.MethodGet {
			c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
			return
		}
		h.requireAuthThen(c, h.WhoAmI)
		return

	case strings.HasPrefix(rest, "-/user/token/"):
		if method != http.MethodDelete {
			c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
			return
		}
		c.Params = append(c.Params, gin.Param{Key: "token", Value: strings.TrimPrefix(rest, "-/user/token/")})
		h.DeleteToken(c)
		return

	case strings.HasPrefix(rest, "-/user/"):
		if method != http.MethodPut {
			c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
			return
		}
		c.Params = append(c.Params, gin.Param{Key: "rest", Value: strings.TrimPrefix(rest, "-/user")})
		h.AddUser(c)
		return

	case rest == "-/npm/v1/security/advisories/bulk", rest == "-/npm/v1/security/audits/quick":
		if method != http.MethodPost {
			c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
			return
		}
		h.AuditBulk(c, "/"+rest)
		return
	}

	switch method {
	case http.MethodGet, http.MethodHead:
		h.getPackageOrTarball(c, rest)
	case http.MethodPut:
		h.requireAuthThen(c, func(c *gin.Context) { h.putVersion(c) })
	default:
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	}
}

func (h *Handlers) requireAuthThen(c *gin.Context, next gin.HandlerFunc) {
	if currentUser(c) == nil {
		renderError(c, apierr.Unauthorized("authentication required"))
		return
	}
	next(c)
}

func (h *Handlers) getPackageOrTarball(c *gin.Context, rest string) {
	name, version, filename, err := parsePkgPath(rest)
	if err != nil {
		renderError(c, err)
		return
	}

	if filename != "" {
		h.serveTarball(c, name, filename)
		return
	}

	ctx := c.Request.Context()
	host, scheme := c.Request.Host, schemeOf(c)

	if version != "" {
		manifest, err := h.Engine.GetVersionManifest(ctx, name, version, host, scheme)
		if err != nil {
			renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, manifest)
		return
	}

	doc, err := h.Engine.GetPackageDocument(ctx, name, host, scheme)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Handlers) serveTarball(c *gin.Context, name, filename string) {
	rc, pf, err := h.Engine.GetTarball(c.Request.Context(), name, filename)
	if err != nil {
		renderError(c, err)
		return
	}
	defer rc.Close()

	contentType := "application/octet-stream"
	if pf.ContentType != nil && *pf.ContentType != "" {
		contentType = *pf.ContentType
	}
	c.Header("Content-Length", strconv.FormatInt(pf.SizeBytes, 10))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if c.Request.Method == http.MethodHead {
		return
	}
	_, _ = io.Copy(c.Writer, rc)
}

func (h *Handlers) putVersion(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		renderError(c, apierr.Unauthorized("authentication required to publish"))
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		renderError(c, apierr.Validation("could not read request body"))
		return
	}

	result, err := h.Publish.Publish(body, user.ID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
