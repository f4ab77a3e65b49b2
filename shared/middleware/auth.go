package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/Elzini/tenant-gateway/shared/utils"
)

// AuthMiddleware guards the administrative surface with a signed bearer
// token. Token issuance lives outside this system; the guard only verifies
// an HS256 signature and expiry.
type AuthMiddleware struct {
	secret []byte
}

// NewAuthMiddleware creates the guard. An empty secret disables it, which is
// only acceptable for local development; production deployments must set
// ADMIN_JWT_SECRET.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	if secret == "" {
		logrus.Warn("ADMIN_JWT_SECRET not set, admin surface is unauthenticated")
	}
	return &AuthMiddleware{secret: []byte(secret)}
}

// RequireAdmin validates the Authorization header on admin routes.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(m.secret) == 0 {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			utils.UnauthorizedResponse(c, "Missing bearer token")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		claims := jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return m.secret, nil
		})
		if err != nil || !token.Valid {
			utils.UnauthorizedResponse(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("admin_subject", claims.Subject)
		c.Next()
	}
}
