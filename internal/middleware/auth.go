package middleware

import (
	"net/http"
	"strings"

	"github.com/isaqueitalo/restaurante-1.0/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ActorKey = "actor"

// OperatorClaims are the claims read from tokens issued by the restaurant's
// login service. Only the username is used, as the actor of till operations.
type OperatorClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTAuth verifies the HS256 Bearer token and stores the operator name under
// ActorKey. Tokens are never issued here.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("authentication required"))
			return
		}

		claims := &OperatorClaims{}
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("invalid or expired token"))
			return
		}

		actor := claims.Username
		if actor == "" {
			actor = claims.Subject
		}
		c.Set(ActorKey, actor)
		c.Next()
	}
}

// GetActor returns the operator name set by JWTAuth, or "" when the route is
// not authenticated. The services fall back to the default operator.
func GetActor(c *gin.Context) string {
	return c.GetString(ActorKey)
}
