package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/aicruiter/internal/services"
)

type ProfileHandler struct {
	svc services.UserService
}

func NewProfileHandler(svc services.UserService) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

// Me returns the caller's profile, creating it on first sign-in.
func (h *ProfileHandler) Me(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	u, err := h.svc.FindOrCreate(c.Request.Context(), *id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, u)
}
