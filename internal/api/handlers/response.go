package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"facelive-go/internal/state"
)

type ErrorResponse struct {
	Error string `json:"error" example:"invalid configuration value: camera size 0x480"`
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, state.ErrInvalidValue) {
		status = http.StatusBadRequest
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
