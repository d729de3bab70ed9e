package httpapi

import (
	"github.com/gin-gonic/gin"
)

func SetupRouter(giveawayHandler *GiveawayHandler) *gin.Engine {
	r := gin.Default()

	api := r.Group("/api/giveaway")
	{
		api.POST("/join", giveawayHandler.Join)
		api.GET("/status", giveawayHandler.Status)
		api.POST("/execute", giveawayHandler.Execute)
		api.POST("/cycles", giveawayHandler.SeedCycle)
		api.POST("/cycles/lock", giveawayHandler.LockCycle)
	}

	return r
}
