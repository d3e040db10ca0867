package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/npmregistry/registryd/internal/apierr"
)

// renderError writes err as the JSON shape npm clients and the admin
// dashboard both expect: {"error": "..."}.
func renderError(c *gin.Context, err error) {
	if ae, ok := apierr.As(err); ok {
		c.JSON(ae.Status(), gin.H{"error": ae.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
