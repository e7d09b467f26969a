// Mock methods required in Candycast tests are all here.

package test

import (
	"Candycast/pkg/middlewares"
	"os"

	"github.com/gin-gonic/gin"
)

// MockRouter builds a fresh gin engine wired the way the real server is,
// minus logging. Each test package composes its own handlers on top.
func MockRouter() *gin.Engine {
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "" {
		ginMode = gin.TestMode
	}
	gin.SetMode(ginMode)
	router := gin.New()
	// CORS middleware which allows request from all origin
	router.Use(middlewares.CORSMiddleware())
	return router
}
