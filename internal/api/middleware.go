package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/npmregistry/registryd/internal/auth"
	"github.com/npmregistry/registryd/internal/models"
)

const contextUserKey = "user"

// bearerToken extracts the token from "Authorization: Bearer <token>" or
// npm's older bare-token "Authorization: <token>" form.
func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(h, "Bearer "); ok {
		return rest
	}
	return h
}

// OptionalAuth resolves the bearer token if present but never aborts;
// handlers that serve both public and private data check c.Get themselves.
func OptionalAuth(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if user, err := svc.WhoAmI(token); err == nil {
				c.Set(contextUserKey, user)
			}
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
