package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/npmregistry/registryd/internal/apierr"
)

type addUserRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// AddUser backs npm's `adduser`/`login`: the same PUT doubles as
// registration for an unknown username and login for an existing one. The
// route is a wildcard because the username rides after a literal
// "org.couchdb.user:" prefix in the path, not as its own segment.
func (h *Handlers) AddUser(c *gin.Context) {
	rest := strings.TrimPrefix(c.Param("rest"), "/")
	if !strings.HasPrefix(rest, "org.couchdb.user:") {
		renderError(c, apierr.Validation("unrecognized user path"))
		return
	}

	var req addUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, apierr.Validation("malformed adduser request"))
		return
	}
	if req.Name == "" {
		req.Name = strings.TrimPrefix(rest, "org.couchdb.user:")
	}

	token, _, err := h.Auth.Login(req.Name, req.Password)
	if err != nil {
		if _, rerr := h.Auth.Register(req.Name, req.Email, req.Password); rerr != nil {
			renderError(c, rerr)
			return
		}
		token, _, err = h.Auth.Login(req.Name, req.Password)
		if err != nil {
			renderError(c, err)
			return
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"ok":    true,
		"id":    "org.couchdb.user:" + req.Name,
		"rev":   "1-0",
		"token": token.Token,
	})
}

func (h *Handlers) WhoAmI(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		renderError(c, apierr.Unauthorized("authentication required"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": user.Username})
}

func (h *Handlers) DeleteToken(c *gin.Context) {
	if err := h.Auth.Logout(c.Param("token")); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
