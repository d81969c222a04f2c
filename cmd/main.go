package main

import (
	"context"
	"net/http"

	"github.com/zhangshuo1991/ai-food/config"
	"github.com/zhangshuo1991/ai-food/controllers"
	"github.com/zhangshuo1991/ai-food/logger"
	"github.com/zhangshuo1991/ai-food/routes"
	"github.com/zhangshuo1991/ai-food/services"
	"github.com/zhangshuo1991/ai-food/utils"

	"github.com/rs/cors"
)

func main() {
	logger.Init()
	config.Load()

	ctx := context.Background()

	var store services.RecordStore
	db, err := config.InitDB()
	if err != nil {
		logger.Error("record store unavailable, starting with empty ledger", "error", err)
		store = services.NewUnavailableStore(err)
	} else {
		store = services.NewGormRecordStore(db)
	}

	vision := services.NewVisionService()
	ledger := services.NewLedgerService(store, vision)
	if err := ledger.Initialize(ctx); err != nil {
		logger.Error("ledger load failed, continuing with empty ledger", "error", err)
	}
	if config.GetEnv("SEED_DEMO_DATA", "false") == "true" {
		if err := ledger.SeedDemoData(ctx); err != nil {
			logger.Warn("demo seed failed", "error", err)
		}
	}

	images, err := utils.NewImageStore(ctx)
	if err != nil {
		logger.Warn("S3 photo offload disabled", "error", err)
	}

	hub := services.NewEventHub()
	lc := controllers.NewLedgerController(ledger, hub, images)
	rc := controllers.NewRealtimeController(hub)

	r := routes.SetupRouter(lc, rc)

	addr := ":" + config.GetEnv("PORT", "8080")
	logger.Info("server starting", "addr", addr)
	if err := http.ListenAndServe(addr, cors.AllowAll().Handler(r)); err != nil {
		logger.Error("server stopped", "error", err)
	}
}
