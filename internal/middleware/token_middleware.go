package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/spotsapp/spots-api/pkg/auth"
)

// TokenHeader is the header the mobile clients send the identity token in.
const TokenHeader = "token"

// CaptureToken copies the caller's token header into the request context, where
// resolvers read it with auth.TokenFromContext. The value is stored raw; checking
// it is left to each operation, since some only decode it and others verify it.
func CaptureToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(TokenHeader)
		if raw == "" {
			raw = c.GetHeader("Authorization")
		}
		if raw != "" {
			c.Request = c.Request.WithContext(auth.WithToken(c.Request.Context(), raw))
		}
		c.Next()
	}
}
