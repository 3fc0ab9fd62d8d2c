package api

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/greaterodd/odd-trackr/internal/models"
	"github.com/greaterodd/odd-trackr/internal/storage"
)

const (
	userKey     = "user"
	tokenPrefix = "trk_"
)

// NewToken returns a fresh bearer token. Only its hash is ever stored.
func NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return tokenPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken is the lookup key stored in users.token_hash.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// AuthMiddleware resolves the bearer token to a user and stores it on the
// context for the handlers.
func AuthMiddleware(store storage.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			handleError(c, errUnauthorized)
			return
		}

		user, err := store.GetUserByTokenHash(c.Request.Context(), HashToken(token))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				handleError(c, errUnauthorized)
				return
			}
			handleError(c, err)
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) models.User {
	return c.MustGet(userKey).(models.User)
}
