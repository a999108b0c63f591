package api

import (
	"github.com/gin-gonic/gin"

	"plate_reader/internal/api/handler"
	"plate_reader/internal/api/middleware"
	"plate_reader/internal/domain"
	"plate_reader/internal/service"
)

func SetupRouter(as *service.AuthService, authMw *middleware.AuthMiddleware, ctrl handler.CaptureController,
	ss *service.SettingsService, ds *service.DetectionService, wsManager *handler.WebSocketManager) *gin.Engine {
	r := gin.Default()

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// live events for the operator console
	wsHandler := handler.NewWebSocketHandler(wsManager)
	r.GET("/ws", wsHandler.HandleWebSocket)

	authHandler := handler.NewAuthHandler(as)
	r.POST("/auth/login", authHandler.Login)

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		captureH := handler.NewCaptureHandler(ctrl, ss)
		exportH := handler.NewExportHandler(ctrl)
		captureRoutes := v1.Group("/capture")
		captureRoutes.Use(authMw.AuthorizeRole(domain.RoleAdmin, domain.RoleOperator))
		{
			captureRoutes.POST("/start", captureH.Start)
			captureRoutes.POST("/stop", captureH.Stop)
			captureRoutes.POST("/trigger", captureH.Trigger)
			captureRoutes.POST("/force-reset", captureH.ForceReset)
			captureRoutes.PUT("/mode", captureH.SetMode)
			captureRoutes.GET("/status", captureH.Status)
			captureRoutes.GET("/history", captureH.History)
			captureRoutes.GET("/frame", captureH.Frame)
			captureRoutes.GET("/export/json", exportH.ExportJSON)
			captureRoutes.GET("/export/csv", exportH.ExportCSV)
		}

		settingsH := handler.NewSettingsHandler(ss)
		settingsRoutes := v1.Group("/settings")
		{
			settingsRoutes.GET("", settingsH.Get)
			settingsRoutes.PUT("", settingsH.Update)
			settingsRoutes.POST("/reset", settingsH.Reset)
		}

		detectionH := handler.NewDetectionHandler(ds)
		detectionRoutes := v1.Group("/detections")
		{
			detectionRoutes.GET("", detectionH.FindDetections)
			detectionRoutes.GET("/stats", detectionH.GetStats)
			detectionRoutes.GET("/:id", detectionH.GetDetection)
			detectionRoutes.GET("/:id/image", detectionH.GetDetectionImage)
			detectionRoutes.DELETE("/:id", authMw.AuthorizeRole(domain.RoleAdmin), detectionH.DeleteDetection)
		}
	}
	return r
}
