package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"tank-duel/internal/api"
	"tank-duel/internal/bot"
	"tank-duel/internal/client"
	"tank-duel/internal/config"
	"tank-duel/internal/game"
	"tank-duel/internal/render"
	"tank-duel/internal/session"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	loadEnv()

	appConfig := config.Load()
	clientCfg := appConfig.Client

	sessionID := uuid.New().String()
	callsign := petname.Generate(2, "-")

	log.Println("🎮 ================================")
	log.Println("🎮  TANK DUEL - CLIENT")
	log.Printf("🎮  Callsign: %s", callsign)
	log.Println("🎮 ================================")
	log.Printf("🆔 Session: %s", sessionID)
	log.Printf("🎮 Config: %d TPS, relay %s, reconnect every %s", clientCfg.TickRate, clientCfg.RelayURL, clientCfg.ReconnectDelay)

	// Combat trace
	events := game.NewEventLog(sessionID)
	if err := events.Start(clientCfg.EventLogPath); err != nil {
		log.Printf("⚠️ Event log disabled: %v", err)
		events = nil
	} else if clientCfg.EventLogPath != "" {
		log.Printf("📝 Event log: %s", clientCfg.EventLogPath)
	}

	var controller session.Controller = session.Idle{}
	if clientCfg.BotEnabled {
		arena := game.Vec(appConfig.Arena.Width, appConfig.Arena.Height)
		controller = bot.New(bot.DefaultConfig(), arena, nil)
		log.Println("🤖 Bot input enabled")
	} else {
		log.Println("💤 Bot disabled, tank will idle")
	}

	transport := client.New(clientCfg, callsign)
	sess, err := session.New(session.Options{
		Config:     appConfig,
		Sender:     transport,
		Controller: controller,
		Metrics:    api.SessionMetrics{},
		EventLog:   events,
		Name:       callsign,
	})
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}

	renderer := render.NewRenderer(appConfig.Combat.TankRadius, appConfig.Combat.BulletRadius)
	renderer.MaxHealth = appConfig.Combat.MaxHealth

	// Optional metrics + live arena view
	if clientCfg.DebugAddr != "" {
		debugCfg := api.DefaultObservabilityConfig()
		debugCfg.ListenAddr = clientCfg.DebugAddr
		debugCfg.Handlers = map[string]http.Handler{
			"/snapshot.png": snapshotHandler(renderer, sess.Simulation().Snapshots()),
		}
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := transport.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("⚠️ Transport stopped: %v", err)
		}
	}()
	if events != nil {
		go reportEventLog(ctx, events)
	}

	log.Println("✅ Client ready! Press Ctrl+C to stop.")
	if err := sess.Run(ctx, transport.Inbound()); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("⚠️ Session stopped: %v", err)
	}

	log.Println("🛑 Shutting down...")
	if events != nil {
		events.Stop()
	}

	local := sess.Simulation().Local
	log.Printf("🏁 Final: score %d, deaths %d", local.Score, local.Deaths)

	if clientCfg.SnapshotPath != "" {
		if err := renderer.SavePNG(clientCfg.SnapshotPath, sess.Simulation().Snapshot()); err != nil {
			log.Printf("⚠️ Snapshot failed: %v", err)
		} else {
			log.Printf("🖼️ Arena snapshot saved to %s", clientCfg.SnapshotPath)
		}
	}
	log.Println("👋 Goodbye!")
}

func snapshotHandler(renderer *render.Renderer, store *game.SnapshotStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := store.Load()
		if snap == nil {
			http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		if err := renderer.WritePNG(w, snap); err != nil {
			log.Printf("⚠️ Snapshot render: %v", err)
		}
	})
}

// reportEventLog mirrors the trace counters into Prometheus
func reportEventLog(ctx context.Context, events *game.EventLog) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			api.UpdateEventLogStats(events.GetTotalCount(), events.GetDroppedCount())
		}
	}
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
