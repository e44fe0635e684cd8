package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// VisitorCookie names the cookie that scopes per-browser data.
	VisitorCookie = "wedding_visitor"
	// ContextVisitorID is the gin context key holding the visitor id.
	ContextVisitorID = "visitor_id"

	visitorMaxAge = 180 * 24 * 60 * 60
)

// Visitor ensures each browser carries a visitor id cookie and exposes it under ContextVisitorID.
func Visitor() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(VisitorCookie)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(VisitorCookie, id, visitorMaxAge, "/", "", c.Request.TLS != nil, true)
		}
		c.Set(ContextVisitorID, id)
		c.Next()
	}
}

// VisitorID returns the visitor id set by Visitor, or "" outside it.
func VisitorID(c *gin.Context) string {
	return c.GetString(ContextVisitorID)
}
