package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"facelive-go/internal/logging"
	"facelive-go/internal/services/events"
	"facelive-go/internal/state"
)

// StateHandler exposes the configuration the frame loop follows. Writes
// only record the change; the loop applies it on its next tick.
type StateHandler struct {
	state    *state.State
	hub      *events.Hub
	models   func() []string
	backends []string
}

func NewStateHandler(st *state.State, hub *events.Hub, models func() []string, backends []string) *StateHandler {
	return &StateHandler{
		state:    st,
		hub:      hub,
		models:   models,
		backends: backends,
	}
}

type StateResponse struct {
	state.Snapshot
	Pending  []string `json:"pending"`
	Models   []string `json:"models"`
	Backends []string `json:"backends"`
}

type ApplyResponse struct {
	Changes []string       `json:"changes"`
	State   state.Snapshot `json:"state"`
}

type ModelRequest struct {
	Model string `json:"model" binding:"required" example:"yunet"`
}

type BackendRequest struct {
	Backend string `json:"backend" binding:"required" example:"opencv-cpu"`
}

// @Summary Get configuration
// @Description Current model, backend, flags, camera and overlay settings plus the changes not yet applied
// @Tags state
// @Produce json
// @Success 200 {object} StateResponse
// @Router /state [get]
func (h *StateHandler) GetState(c *gin.Context) {
	resp := StateResponse{
		Snapshot: h.state.Snapshot(),
		Pending:  h.state.Pending().Mask().Names(),
		Backends: h.backends,
	}
	if h.models != nil {
		resp.Models = h.models()
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Update configuration
// @Description Apply several changes at once. Invalid requests change nothing.
// @Tags state
// @Accept json
// @Produce json
// @Param request body state.ControlRequest true "Changes"
// @Success 200 {object} ApplyResponse
// @Failure 400 {object} ErrorResponse
// @Router /state [put]
func (h *StateHandler) UpdateState(c *gin.Context) {
	var req state.ControlRequest
	if !bind(c, &req) {
		return
	}
	h.apply(c, req)
}

// @Summary Select model
// @Tags state
// @Accept json
// @Produce json
// @Param request body ModelRequest true "Model"
// @Success 200 {object} ApplyResponse
// @Failure 400 {object} ErrorResponse
// @Router /state/model [put]
func (h *StateHandler) SetModel(c *gin.Context) {
	var req ModelRequest
	if !bind(c, &req) {
		return
	}
	h.apply(c, state.ControlRequest{Model: &req.Model})
}

// @Summary Select backend
// @Tags state
// @Accept json
// @Produce json
// @Param request body BackendRequest true "Backend"
// @Success 200 {object} ApplyResponse
// @Failure 400 {object} ErrorResponse
// @Router /state/backend [put]
func (h *StateHandler) SetBackend(c *gin.Context) {
	var req BackendRequest
	if !bind(c, &req) {
		return
	}
	h.apply(c, state.ControlRequest{Backend: &req.Backend})
}

// @Summary Set runtime flags
// @Description Merge runtime flags. A null value removes the flag.
// @Tags state
// @Accept json
// @Produce json
// @Param request body map[string]interface{} true "Flags"
// @Success 200 {object} ApplyResponse
// @Failure 400 {object} ErrorResponse
// @Router /state/flags [put]
func (h *StateHandler) SetFlags(c *gin.Context) {
	var flags map[string]any
	if !bind(c, &flags) {
		return
	}
	h.apply(c, state.ControlRequest{Flags: flags})
}

// @Summary Update camera
// @Tags state
// @Accept json
// @Produce json
// @Param request body state.CameraUpdate true "Camera"
// @Success 200 {object} ApplyResponse
// @Failure 400 {object} ErrorResponse
// @Router /state/camera [put]
func (h *StateHandler) SetCamera(c *gin.Context) {
	var req state.CameraUpdate
	if !bind(c, &req) {
		return
	}
	h.apply(c, state.ControlRequest{Camera: &req})
}

// @Summary Update overlay
// @Tags state
// @Accept json
// @Produce json
// @Param request body state.DisplayUpdate true "Overlay"
// @Success 200 {object} ApplyResponse
// @Failure 400 {object} ErrorResponse
// @Router /state/display [put]
func (h *StateHandler) SetDisplay(c *gin.Context) {
	var req state.DisplayUpdate
	if !bind(c, &req) {
		return
	}
	h.apply(c, state.ControlRequest{Display: &req})
}

// @Summary Update detection options
// @Tags state
// @Accept json
// @Produce json
// @Param request body state.DetectionUpdate true "Detection"
// @Success 200 {object} ApplyResponse
// @Failure 400 {object} ErrorResponse
// @Router /state/detection [put]
func (h *StateHandler) SetDetection(c *gin.Context) {
	var req state.DetectionUpdate
	if !bind(c, &req) {
		return
	}
	h.apply(c, state.ControlRequest{Detection: &req})
}

func (h *StateHandler) apply(c *gin.Context, req state.ControlRequest) {
	changes, err := h.state.Apply(req)
	if err != nil {
		logging.Warn(c).Err(err).Msg("Configuration rejected")
		respondError(c, err)
		return
	}

	snap := h.state.Snapshot()
	resp := ApplyResponse{Changes: changes.Names(), State: snap}
	if h.hub != nil {
		h.hub.Publish(events.TypeConfig, resp)
	}
	logging.Info(c).Strs("changes", resp.Changes).Msg("Configuration updated")
	c.JSON(http.StatusOK, resp)
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		logging.Warn(c).Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return false
	}
	return true
}
