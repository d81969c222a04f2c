package routes

import (
	"github.com/zhangshuo1991/ai-food/controllers"
	"github.com/zhangshuo1991/ai-food/middlewares"

	"github.com/gin-gonic/gin"
)

func SetupRouter(lc *controllers.LedgerController, rc *controllers.RealtimeController) *gin.Engine {
	r := gin.Default()

	// Public auth routes
	auth := r.Group("/auth")
	{
		auth.POST("/login", controllers.Login)
	}

	// Protected ledger routes
	api := r.Group("/api")
	api.Use(middlewares.AuthMiddleware())
	{
		api.GET("/records", lc.ListRecords)
		api.POST("/records/analyze", lc.AnalyzeImage)
		api.POST("/records/manual", lc.ManualEntry)
		api.DELETE("/records/:id", lc.DeleteRecord)

		api.GET("/summary/today", lc.TodaySummary)
		api.GET("/history", lc.History)
		api.POST("/report", lc.GenerateReport)

		api.GET("/ws", rc.EventsWS)
	}

	return r
}
