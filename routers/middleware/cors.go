package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	u "github.com/steamtrust/backend/utils"
)

// CORSMiddleware adds CORS headers to responses. Origins outside
// allowedHosts get "null"; a "*" entry allows every origin.
func CORSMiddleware(allowedHosts []string) gin.HandlerFunc {
	allowAll := u.ContainsString(allowedHosts, "*") || len(allowedHosts) == 0

	return func(ctx *gin.Context) {
		allowedOrigin := "*"
		if !allowAll {
			allowedOrigin = getCORSOrigin(ctx.GetHeader("Origin"), allowedHosts)
		}

		ctx.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		ctx.Writer.Header().Set("Access-Control-Max-Age", "86400")
		ctx.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, PATCH, DELETE")
		ctx.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Accept-Language, Authorization, X-Webhook-Provider")
		ctx.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		ctx.Writer.Header().Set("Cache-Control", "no-cache")
		if allowedOrigin != "*" {
			ctx.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			ctx.Writer.Header().Add("Vary", "Origin")
		}

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusOK)
			return
		}
		ctx.Next()
	}
}

// getCORSOrigin echoes requestOrigin when its domain is whitelisted
func getCORSOrigin(requestOrigin string, allowedHosts []string) string {
	if requestOrigin == "" {
		return "null"
	}

	requestDomain, err := u.ExtractDomainFromOrigin(requestOrigin)
	if err != nil || requestDomain == "" {
		return "null"
	}

	if u.IsDomainAllowed(requestDomain, allowedHosts) {
		return requestOrigin
	}
	return "null"
}
