package api

import (
	"bytes"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/npmregistry/registryd/internal/apierr"
)

// AuditBulk is a byte-for-byte passthrough of npm's security audit
// endpoints (advisories/bulk and audits/quick): this registry has no
// vulnerability database of its own.
func (h *Handlers) AuditBulk(c *gin.Context, upstreamPath string) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		renderError(c, apierr.Validation("could not read request body"))
		return
	}

	resp, err := h.Upstream.AuditBulk(c.Request.Context(), upstreamPath, bytes.NewReader(body))
	if err != nil {
		renderError(c, apierr.Upstream(err.Error()))
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		renderError(c, apierr.Upstream(err.Error()))
		return
	}
	c.Data(resp.Status, "application/json", respBody)
}
