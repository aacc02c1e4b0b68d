// Package routes wires the HTTP endpoints onto the gin router.
package routes

import (
	"github.com/gin-gonic/gin"

	"marketpulse/controllers"
)

// SetupRoutes registers all API routes.
func SetupRoutes(router *gin.Engine, api *controllers.APIController) {
	group := router.Group("/api")
	{
		group.GET("", api.GetIndex)
		group.GET("/dashboard", api.GetDashboard)
		group.GET("/stocks", api.GetStocks)
		group.GET("/screener/presets", api.GetPresets)
		group.GET("/snapshots", api.GetSnapshots)
		group.POST("/collect-data", api.CollectData)
	}
}
