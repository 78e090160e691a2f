package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/aicruiter/internal/api/middleware"
	"github.com/yoockh/aicruiter/internal/authz"
	"github.com/yoockh/aicruiter/internal/utils"
)

type AuthHandler struct{}

func NewAuthHandler() *AuthHandler { return &AuthHandler{} }

type AuthCheckResponse struct {
	View       authz.View `json:"view"`
	Authorized bool       `json:"authorized"`
	Redirect   string     `json:"redirect,omitempty"`
}

// Check answers whether the caller may open ?view=. The page redirects when it may not.
func (h *AuthHandler) Check(c *gin.Context) {
	view, ok := authz.ParseView(c.Query("view"))
	if !ok {
		writeError(c, utils.E(utils.CodeInvalidArgument, "AuthHandler.Check", "unknown view", nil))
		return
	}

	id, _ := middleware.IdentityFrom(c)
	resp := AuthCheckResponse{View: view, Authorized: authz.Authorized(id, view)}
	if !resp.Authorized {
		resp.Redirect = authz.RedirectFor(view)
	}
	c.JSON(http.StatusOK, resp)
}
