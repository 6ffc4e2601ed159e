package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	queueEnabled bool
}

func NewHealthHandler(queueEnabled bool) *HealthHandler {
	return &HealthHandler{queueEnabled: queueEnabled}
}

func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"queueEnabled": h.queueEnabled,
	})
}
