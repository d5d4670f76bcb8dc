package routes

import (
	"net/http"

	"github.com/vamshi726/food-scan-ai/controllers"
	"github.com/vamshi726/food-scan-ai/middlewares"
	"github.com/vamshi726/food-scan-ai/services"

	"github.com/gin-gonic/gin"
)

func SetupRouter(hub *services.RealtimeHub) *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public auth routes
	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)
		auth.POST("/forgot-password", controllers.ForgotPassword)
		auth.POST("/reset-password", controllers.ResetPassword)
	}

	// Protected user routes
	user := r.Group("/user")
	user.Use(middlewares.AuthMiddleware())
	{
		user.GET("/profile", controllers.GetProfile)
		user.PUT("/profile", controllers.UpdateProfile)
		user.GET("/preferences", controllers.GetPreferences)
		user.PUT("/preferences", controllers.UpdatePreferences)
	}

	// Scan pipeline
	scan := r.Group("/scan")
	scan.Use(middlewares.AuthMiddleware())
	{
		scan.POST("/analyze", controllers.AnalyzeProduct)
		scan.GET("/history", controllers.ScanHistory)
	}

	// NutriCoach chat
	coach := r.Group("/coach")
	coach.Use(middlewares.AuthMiddleware())
	{
		coach.POST("/chat", controllers.CoachChat)
		coach.GET("/history", controllers.CoachHistory)
	}

	// Realtime scan events
	ws := r.Group("/ws")
	ws.Use(middlewares.AuthMiddleware())
	{
		ws.GET("", controllers.ServeWS(hub))
	}

	return r
}
