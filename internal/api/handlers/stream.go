package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"facelive-go/internal/services/publisher/mjpeg"
)

type StreamHandler struct {
	publisher *mjpeg.Publisher
}

func NewStreamHandler(publisher *mjpeg.Publisher) *StreamHandler {
	return &StreamHandler{publisher: publisher}
}

// @Summary Live view
// @Description Rendered frames with the landmark overlay and FPS readout as multipart/x-mixed-replace
// @Tags stream
// @Produce multipart/x-mixed-replace
// @Success 200
// @Router /stream.mjpeg [get]
func (h *StreamHandler) MJPEG(c *gin.Context) {
	h.publisher.StreamMJPEGHTTP(c.Writer, c.Request)
}

// @Summary Latest frame
// @Tags stream
// @Produce image/jpeg
// @Success 200
// @Failure 404 {object} ErrorResponse
// @Router /frame.jpg [get]
func (h *StreamHandler) Frame(c *gin.Context) {
	buf, ok := h.publisher.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no frame rendered yet"})
		return
	}
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Data(http.StatusOK, "image/jpeg", buf)
}
