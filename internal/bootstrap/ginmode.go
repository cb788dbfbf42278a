package bootstrap

import "github.com/gin-gonic/gin"

// SetGinMode switches to release mode in production, which also hides
// error details from responses.
func SetGinMode(env string) {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
}
