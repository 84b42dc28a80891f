package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/steamtrust/backend/types"
	u "github.com/steamtrust/backend/utils"
	"github.com/steamtrust/backend/utils/token"
)

// JWTMiddleware admits requests that carry a valid admin bearer token
func JWTMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || strings.TrimSpace(tokenString) == "" {
			u.ErrorResponse(c, types.ErrUnauthorized())
			c.Abort()
			return
		}

		claims, err := token.ValidateJWT(strings.TrimSpace(tokenString), secret)
		if err != nil {
			u.ErrorResponse(c, types.ErrUnauthorized())
			c.Abort()
			return
		}

		c.Set("admin", claims.Subject)
		c.Next()
	}
}

// LanguageMiddleware picks the response language from Accept-Language
func LanguageMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := types.LangEN
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(c.GetHeader("Accept-Language"))), types.LangRU) {
			lang = types.LangRU
		}
		c.Set("lang", lang)
		c.Next()
	}
}
