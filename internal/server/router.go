package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (s *Server) corsConfig() cors.Config {
	conf := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(s.conf.CorsOrigins) == 0 {
		conf.AllowAllOrigins = true
		conf.AllowCredentials = false
	} else {
		conf.AllowOrigins = s.conf.CorsOrigins
	}
	return conf
}

func (s *Server) SetUpRouter() *gin.Engine {
	router := gin.New()
	router.Use(RequestId())
	router.Use(Logger())
	router.Use(gin.Recovery())
	router.Use(cors.New(s.corsConfig()))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "ok",
		})
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	v1 := router.Group("/v1")
	v1.Use(NeedAuth(s.conf.JwtSecret))
	s.SetUpV1Router(v1)

	return router
}

func (s *Server) SetUpV1Router(v1 *gin.RouterGroup) {
	v1.POST("/files", s.handleCreateFile)

	v1.GET("/video-sources", s.handleListVideoSources)
	v1.POST("/video-sources", s.handleCreateVideoSource)
	{
		video := v1.Group("/video-sources/:video_id")
		video.Use(SetVideoSourceToContext())
		video.PATCH("", s.handleUpdateVideoSource)
		video.DELETE("", s.handleDeleteVideoSource)
		video.GET("/inferences", s.handleListVideoInferences)
		video.POST("/tasks/infer", s.handleInferVideoSource)
		video.GET("/tasks/infer", s.handleGetVideoInferTask)
	}

	v1.GET("/camera-sources", s.handleListCameraSources)
	v1.POST("/camera-sources", s.handleCreateCameraSource)
	{
		camera := v1.Group("/camera-sources/:camera_id")
		camera.Use(SetCameraSourceToContext())
		camera.PATCH("", s.handleUpdateCameraSource)
		camera.DELETE("", s.handleDeleteCameraSource)
		camera.GET("/inferences", s.handleListCameraInferences)
		camera.POST("/tasks/infer", s.handleInferCameraSource)
		camera.GET("/tasks/infer", s.handleGetCameraInferTask)
	}
}
