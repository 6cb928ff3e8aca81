package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"facelive-go/internal/models"
	"facelive-go/internal/services/detector"
	"facelive-go/internal/services/loop"
	"facelive-go/internal/services/stats"
)

// LoopStatus is satisfied by *loop.Loop
type LoopStatus interface {
	Status() loop.Status
}

type StatsHandler struct {
	tracker  *stats.Tracker
	loop     LoopStatus
	camera   CameraStatus
	detector DetectorStatus
}

func NewStatsHandler(tracker *stats.Tracker, lp LoopStatus, camera CameraStatus, det DetectorStatus) *StatsHandler {
	return &StatsHandler{
		tracker:  tracker,
		loop:     lp,
		camera:   camera,
		detector: det,
	}
}

type FPSResponse struct {
	FPS     float64   `json:"fps" example:"42.5"`
	Max     float64   `json:"max" example:"120"`
	Samples int       `json:"samples" example:"38"`
	MeanMs  float64   `json:"mean_ms" example:"23.5"`
	At      time.Time `json:"at"`
}

type StatsResponse struct {
	FPS            *FPSResponse      `json:"fps"`
	PendingSamples int               `json:"pending_samples"`
	Loop           loop.Status       `json:"loop"`
	Camera         models.CameraInfo `json:"camera"`
	Detector       detector.Info     `json:"detector"`
}

// @Summary Inference statistics
// @Description Latest FPS report and the state of the camera, detector and frame loop. fps is null until the first report.
// @Tags stats
// @Produce json
// @Success 200 {object} StatsResponse
// @Router /stats [get]
func (h *StatsHandler) GetStats(c *gin.Context) {
	var resp StatsResponse
	if r, ok := h.tracker.Last(); ok {
		resp.FPS = &FPSResponse{
			FPS:     r.FPS,
			Max:     r.Max,
			Samples: r.Samples,
			MeanMs:  float64(r.Mean) / float64(time.Millisecond),
			At:      r.At,
		}
	}
	_, resp.PendingSamples = h.tracker.Pending()
	if h.loop != nil {
		resp.Loop = h.loop.Status()
	}
	if h.camera != nil {
		resp.Camera = h.camera.Info()
	}
	if h.detector != nil {
		resp.Detector = h.detector.Info()
	}
	c.JSON(http.StatusOK, resp)
}
