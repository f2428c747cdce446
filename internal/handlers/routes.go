package handlers

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })

	api := r.Group("/api")
	{
		api.POST("/play", s.AuthOptional(), s.Play)

		api.POST("/admin/session", s.AdminKeyRequired(), s.CreateSession)
		api.GET("/admin/ws", func(c *gin.Context) {
			s.HandleWS(c.Writer, c.Request)
		})

		admin := api.Group("/admin", s.AdminRequired())
		admin.GET("/metrics", s.GetMetrics)
		admin.GET("/reward_failures", s.ListRewardFailures)
	}
	return r
}
