package api

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.InstanceInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	st := s.router.Group("/state")
	{
		st.GET("", s.stateHandler.GetState)
		st.PUT("", s.stateHandler.UpdateState)
		st.PUT("/model", s.stateHandler.SetModel)
		st.PUT("/backend", s.stateHandler.SetBackend)
		st.PUT("/flags", s.stateHandler.SetFlags)
		st.PUT("/camera", s.stateHandler.SetCamera)
		st.PUT("/display", s.stateHandler.SetDisplay)
		st.PUT("/detection", s.stateHandler.SetDetection)
	}

	s.router.GET("/stats", s.statsHandler.GetStats)
	s.router.GET("/notifications", s.notificationHandler.List)

	s.router.GET("/stream.mjpeg", s.streamHandler.MJPEG)
	s.router.GET("/frame.jpg", s.streamHandler.Frame)
	s.router.GET("/ws/events", s.eventsHandler.Stream)

	s.router.GET("/metrics", gin.WrapH(s.container.Metrics.Handler()))

	system := s.router.Group("/system")
	{
		system.GET("/stats", s.systemHandler.GetStats)
	}
}
