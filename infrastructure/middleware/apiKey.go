package middlewares

import (
	"crypto/subtle"

	apperrors "idgate.io/application/appErrors"
	"idgate.io/infrastructure/env"
	"github.com/gin-gonic/gin"
)

// APIKeyMiddleware guards protected routes with the static X-API-Key scheme.
// When no keys are configured every request passes (local development).
func APIKeyMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		validKeys := env.Current().ValidAPIKeys
		if len(validKeys) == 0 {
			ctx.Next()
			return
		}
		provided := ctx.Request.Header.Get("X-API-Key")
		if provided == "" {
			apperrors.AuthenticationError(ctx, "missing X-API-Key header")
			return
		}
		for _, key := range validKeys {
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) == 1 {
				ctx.Next()
				return
			}
		}
		apperrors.AuthenticationError(ctx, "invalid API key")
	}
}
