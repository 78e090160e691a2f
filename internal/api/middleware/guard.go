package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/aicruiter/internal/authz"
	"github.com/yoockh/aicruiter/internal/utils"
)

// Guard aborts with 401 when the request's identity may not see view. It runs after
// JWTAuth or OptionalJWT.
func Guard(view authz.View) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := IdentityFrom(c)
		if !authz.Authorized(id, view) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":     utils.CodeUnauthorized,
				"message":  "sign in required",
				"redirect": authz.RedirectFor(view),
			})
			return
		}
		c.Next()
	}
}
