package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"facelive-go/internal/services/notify"
)

type NotificationHandler struct {
	center *notify.Center
}

func NewNotificationHandler(center *notify.Center) *NotificationHandler {
	return &NotificationHandler{center: center}
}

type NotificationsResponse struct {
	Notifications []notify.Notification `json:"notifications"`
	Total         int                   `json:"total"`
}

// @Summary Recent notifications
// @Description Camera, model load, backend and inference errors, newest last
// @Tags notifications
// @Produce json
// @Param limit query int false "Return at most this many of the newest entries"
// @Param kind query string false "Only entries of this kind"
// @Success 200 {object} NotificationsResponse
// @Failure 400 {object} ErrorResponse
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	history := h.center.History()

	if kind := c.Query("kind"); kind != "" {
		filtered := history[:0]
		for _, n := range history {
			if string(n.Kind) == kind {
				filtered = append(filtered, n)
			}
		}
		history = filtered
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		if limit < len(history) {
			history = history[len(history)-limit:]
		}
	}

	if history == nil {
		history = []notify.Notification{}
	}
	c.JSON(http.StatusOK, NotificationsResponse{Notifications: history, Total: len(history)})
}
