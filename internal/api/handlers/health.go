package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"facelive-go/internal/models"
	"facelive-go/internal/services/detector"
)

// CameraStatus is satisfied by *camera.Source
type CameraStatus interface {
	Info() models.CameraInfo
}

// DetectorStatus is satisfied by *detector.Manager
type DetectorStatus interface {
	Info() detector.Info
}

// Connectivity is satisfied by *messaging.Service
type Connectivity interface {
	IsConnected() bool
}

type HealthHandler struct {
	InstanceID string
	Version    string
	camera     CameraStatus
	detector   DetectorStatus
	nats       Connectivity
}

func NewHealthHandler(instanceID, version string, camera CameraStatus, det DetectorStatus, nats Connectivity) *HealthHandler {
	return &HealthHandler{
		InstanceID: instanceID,
		Version:    version,
		camera:     camera,
		detector:   det,
		nats:       nats,
	}
}

type HealthResponse struct {
	Status     string            `json:"status" example:"healthy"`
	InstanceID string            `json:"instance_id" example:"facelive-1"`
	Components map[string]string `json:"components"`
}

type InstanceInfoResponse struct {
	InstanceID   string   `json:"instance_id" example:"facelive-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Report camera, detector and messaging health. The service stays up while components fail, so the status is "degraded" rather than an error code.
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	components := map[string]string{}
	status := "healthy"

	if h.camera != nil {
		info := h.camera.Info()
		switch {
		case info.Ready:
			components["camera"] = "ready"
		case info.Acquired:
			components["camera"] = "starting"
		default:
			components["camera"] = "unavailable"
			status = "degraded"
		}
	}
	if h.detector != nil {
		info := h.detector.Info()
		components["detector"] = info.Status
		if info.Status != detector.StatusActive.String() {
			status = "degraded"
		}
	}
	if h.nats != nil {
		if h.nats.IsConnected() {
			components["nats"] = "connected"
		} else {
			components["nats"] = "disconnected"
		}
	} else {
		components["nats"] = "disabled"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:     status,
		InstanceID: h.InstanceID,
		Components: components,
	})
}

// @Summary Instance information
// @Description Get basic instance information and capabilities
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} InstanceInfoResponse
// @Router / [get]
func (h *HealthHandler) InstanceInfo(c *gin.Context) {
	c.JSON(http.StatusOK, InstanceInfoResponse{
		InstanceID: h.InstanceID,
		Status:     "running",
		Version:    h.Version,
		Capabilities: []string{
			"face_landmarks",
			"live_reconfiguration",
			"mjpeg_streaming",
			"fps_readout",
		},
	})
}
