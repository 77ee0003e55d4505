package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tank-duel/internal/api"
	"tank-duel/internal/config"
	"tank-duel/internal/relay"

	"github.com/joho/godotenv"
)

func main() {
	loadEnv()

	log.Println("🎮 ================================")
	log.Println("🎮  TANK DUEL - RELAY")
	log.Println("🎮 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	relayCfg := appConfig.Relay

	log.Printf("🎮 Config: port %d, %d send buffer, %d sockets per IP",
		relayCfg.Port, relayCfg.SendBuffer, relay.SlotCount+relayCfg.ReconnectAllowance)
	if relayCfg.FramesPerSec > 0 {
		log.Printf("🎮 Frame budget: %.0f/s per connection (burst %d)", relayCfg.FramesPerSec, relayCfg.FrameBurst)
	}
	if len(relayCfg.AllowedOrigins) > 0 {
		log.Printf("🌐 Allowed origins: %v", relayCfg.AllowedOrigins)
	}

	// Start debug server
	if !relayCfg.DisableDebug {
		debugCfg := api.DefaultObservabilityConfig()
		debugCfg.ListenAddr = relayCfg.DebugAddr
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	server := api.NewServer(relayCfg)

	errc := make(chan error, 1)
	go func() {
		errc <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Relay ready! Press Ctrl+C to stop.")

	select {
	case <-quit:
	case err := <-errc:
		if err != nil {
			log.Fatalf("Failed to start relay: %v", err)
		}
	}

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Shutdown: %v", err)
	}
	log.Println("👋 Goodbye!")
}

// loadEnv reads .env from the parent directory, then the current one
func loadEnv() {
	if err := godotenv.Load("../.env"); err != nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}
}
