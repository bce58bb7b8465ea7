package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"party_server/internal/domain"
)

const identityKey = "identity"

// IdentityResolver maps a bearer token to an identity, nil when invalid.
type IdentityResolver interface {
	Resolve(token string) *domain.Identity
}

// Auth requires a valid bearer token and stores the identity in the context.
func Auth(ids IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			token = c.Query("token")
		}
		id := ids.Resolve(token)
		if id == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(identityKey, id)
		c.Set("user_id", id.UserID)
		c.Next()
	}
}

func IdentityFrom(c *gin.Context) *domain.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*domain.Identity)
	return id
}
