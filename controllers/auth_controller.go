package controllers

import (
	"crypto/subtle"
	"net/http"
	"os"

	"github.com/zhangshuo1991/ai-food/utils"

	"github.com/gin-gonic/gin"
)

type LoginInput struct {
	Password string `json:"password" binding:"required"`
}

// Login authenticates the single owner of this ledger against APP_PASSWORD.
// Multi-user accounts are out of scope for a personal food log.
func Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expected := os.Getenv("APP_PASSWORD")
	if expected == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server misconfigured: APP_PASSWORD not set"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(input.Password), []byte(expected)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid password"})
		return
	}

	token, err := utils.GenerateJWT("owner")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
