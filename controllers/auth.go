package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Me returns the principal resolved from the bearer token.
func Me(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": p})
}
