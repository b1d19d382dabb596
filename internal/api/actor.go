package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/insurai/claimdesk/internal/apperr"
	"github.com/insurai/claimdesk/internal/directory"
	"github.com/insurai/claimdesk/internal/models"
	"gorm.io/gorm"
)

const (
	actorHeader = "X-User-ID"
	actorKey    = "actor"
)

// resolveActor loads the user named by the X-User-ID header. Requests
// without the header pass through anonymously; an unknown or malformed id
// is rejected.
func resolveActor(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(actorHeader)
		if raw == "" {
			c.Next()
			return
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid " + actorHeader + " header"})
			return
		}
		user, err := directory.GetUser(db.WithContext(c.Request.Context()), uint(id))
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user " + raw})
				return
			}
			writeError(c, err)
			c.Abort()
			return
		}
		c.Set(actorKey, user)
		c.Next()
	}
}

// actor returns the acting user, answering 401 when there is none.
func actor(c *gin.Context) (*models.User, bool) {
	if v, ok := c.Get(actorKey); ok {
		if u, ok := v.(*models.User); ok {
			return u, true
		}
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": actorHeader + " header is required"})
	return nil, false
}

// requireRole returns the acting user if it holds one of roles, answering
// 401 or 403 otherwise.
func requireRole(c *gin.Context, roles ...models.Role) (*models.User, bool) {
	u, ok := actor(c)
	if !ok {
		return nil, false
	}
	for _, r := range roles {
		if u.Role == r {
			return u, true
		}
	}
	writeError(c, apperr.Forbidden("role %s may not perform this operation", u.Role))
	return nil, false
}

// writeError renders err as {"error": msg} with the status its kind maps
// to. Unclassified errors are logged and hidden behind a generic message.
func writeError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status == http.StatusInternalServerError {
		log.Printf("api: %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// paramID parses a positive numeric path parameter, answering 400 when it
// is malformed.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + ": " + c.Param(name)})
		return 0, false
	}
	return uint(id), true
}

// bindJSON decodes the request body, answering 400 on failure.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}
