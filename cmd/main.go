package main

import (
	"github.com/vamshi726/food-scan-ai/config"
	"github.com/vamshi726/food-scan-ai/routes"
	"github.com/vamshi726/food-scan-ai/services"
	"github.com/vamshi726/food-scan-ai/utils"
)

func main() {
	config.InitDB()
	utils.InitS3()
	utils.InitMailer()

	hub := services.NewRealtimeHub()
	services.InitScanEventDeps(config.DB, hub)

	r := routes.SetupRouter(hub)
	r.Run(":8080")
}
