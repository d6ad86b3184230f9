package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/forPelevin/sportsight/internal/api/static"
)

func NewRouter(h *Handler, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.Use(recovery(log), accessLog(log))

	r.POST("/upload", h.Upload)
	r.POST("/run", h.Run)
	r.GET("/results", h.Results)
	r.GET("/clips/:name", h.Clip)
	r.HEAD("/clips/:name", h.Clip)

	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/static/")
	})
	r.StaticFS("/static", http.FS(static.EmbeddedFiles))
	return r
}
