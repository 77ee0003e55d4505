// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for arena, physics, combat and network settings.
//
// IMPORTANT: When changing balance values, only modify this file.
// Both the relay and the client reference these values.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// ARENA CONFIGURATION
// =============================================================================

// ArenaConfig holds the logical arena size shared by both endpoints.
type ArenaConfig struct {
	Width  float64 // Logical arena width in units
	Height float64 // Logical arena height in units
}

// DefaultArena returns the fixed 1000x800 arena.
func DefaultArena() ArenaConfig {
	return ArenaConfig{
		Width:  1000,
		Height: 800,
	}
}

// =============================================================================
// PHYSICS CONFIGURATION
// =============================================================================

// PhysicsConfig holds the integration constants for tanks and projectiles.
type PhysicsConfig struct {
	Acceleration  float64 // Thrust in units/s^2 along the heading
	MaxSpeed      float64 // Speed cap in units/s
	RotationSpeed float64 // Degrees per second
	Friction      float64 // Velocity multiplier applied every step (< 1)
	BulletSpeed   float64 // Projectile speed in units/s
}

// DefaultPhysics returns the tuned physics constants.
func DefaultPhysics() PhysicsConfig {
	return PhysicsConfig{
		Acceleration:  300,
		MaxSpeed:      400,
		RotationSpeed: 360,
		Friction:      0.96,
		BulletSpeed:   700,
	}
}

// =============================================================================
// COMBAT CONFIGURATION
// =============================================================================

// CombatConfig holds tank and projectile balance parameters.
type CombatConfig struct {
	TankRadius         float64       // Tank collision radius
	BulletRadius       float64       // Projectile collision radius
	MaxHealth          int           // Health on spawn
	Damage             int           // Health removed per projectile hit
	InvincibleDuration float64       // Seconds of damage immunity after respawn
	ShootCooldown      float64       // Seconds between shots
	BulletLifetime     float64       // Seconds before an unspent projectile expires
	MaxProjectiles     int           // Hard cap on live projectiles per tank
	SyncInterval       time.Duration // Keepalive full-state sync period
}

// DefaultCombat returns the default combat balance.
func DefaultCombat() CombatConfig {
	return CombatConfig{
		TankRadius:         10,
		BulletRadius:       3,
		MaxHealth:          100,
		Damage:             20,
		InvincibleDuration: 3,
		ShootCooldown:      0.2,
		BulletLifetime:     3,
		MaxProjectiles:     32,
		SyncInterval:       time.Second,
	}
}

// =============================================================================
// SPAWN CONFIGURATION
// =============================================================================

// SpawnConfig controls the respawn placement sampler.
type SpawnConfig struct {
	Margin      float64 // Minimum distance from arena edges
	MinDistance float64 // Minimum distance from the opponent
	MaxAttempts int     // Samples before falling back to the arena centre
}

// DefaultSpawn returns the fairness-sensitive spawn parameters.
// Do not tune these without updating the spawn tests.
func DefaultSpawn() SpawnConfig {
	return SpawnConfig{
		Margin:      100,
		MinDistance: 300,
		MaxAttempts: 50,
	}
}

// =============================================================================
// RELAY CONFIGURATION
// =============================================================================

// RelayConfig holds relay server settings.
type RelayConfig struct {
	Port           int
	FramesPerSec   float64 // Inbound frame budget per connection (0 = unlimited)
	FrameBurst     int     // Burst allowance for the frame budget
	SendBuffer     int     // Outbound frames buffered per connection
	DebugAddr      string  // Metrics/pprof listener (localhost only)
	DisableDebug   bool
	AllowedOrigins []string // WebSocket/CORS origins; empty allows any

	// HTTP admission
	PollRate           float64 // Requests per second per IP (status polls, upgrades)
	PollBurst          int
	ReconnectAllowance int // Sockets per IP beyond the two slots
}

// DefaultRelay returns the default relay configuration.
func DefaultRelay() RelayConfig {
	return RelayConfig{
		Port:       8098,
		SendBuffer: 256,
		DebugAddr:  "127.0.0.1:6060",

		PollRate:           5,
		PollBurst:          10,
		ReconnectAllowance: 2,
	}
}

// RelayFromEnv returns relay configuration with environment variable overrides.
func RelayFromEnv() RelayConfig {
	cfg := DefaultRelay()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if fr := getEnvFloat("RELAY_FRAME_RATE", -1); fr >= 0 {
		cfg.FramesPerSec = fr
	}
	if b := getEnvInt("RELAY_FRAME_BURST", 0); b > 0 {
		cfg.FrameBurst = b
	}
	if pr := getEnvFloat("RELAY_POLL_RATE", 0); pr > 0 {
		cfg.PollRate = pr
	}
	if pb := getEnvInt("RELAY_POLL_BURST", 0); pb > 0 {
		cfg.PollBurst = pb
	}
	if ra := getEnvInt("RELAY_RECONNECT_ALLOWANCE", -1); ra >= 0 {
		cfg.ReconnectAllowance = ra
	}
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.DebugAddr = addr
	}
	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.DisableDebug = true
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	return cfg
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds settings for a duel endpoint.
type ClientConfig struct {
	RelayURL       string
	TickRate       int           // Frames per second of the local simulation
	ReconnectDelay time.Duration // Fixed delay between reconnect attempts
	SendBuffer     int           // Outbound patches buffered before dropping
	EventLogPath   string        // Optional combat trace (JSONL), empty disables
	SnapshotPath   string        // Optional PNG written on shutdown
	DebugAddr      string        // Optional metrics listener, empty disables
	BotEnabled     bool          // Drive the local tank with the built-in bot
}

// DefaultClient returns the default client configuration.
func DefaultClient() ClientConfig {
	return ClientConfig{
		RelayURL:       "ws://localhost:8098/ws",
		TickRate:       60,
		ReconnectDelay: 3 * time.Second,
		SendBuffer:     256,
		BotEnabled:     true,
	}
}

// ClientFromEnv returns client configuration with environment variable overrides.
func ClientFromEnv() ClientConfig {
	cfg := DefaultClient()

	if u := os.Getenv("RELAY_URL"); u != "" {
		cfg.RelayURL = u
	}
	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	if d := getEnvDuration("RECONNECT_DELAY", 0); d > 0 {
		cfg.ReconnectDelay = d
	}
	cfg.EventLogPath = os.Getenv("EVENT_LOG_PATH")
	cfg.SnapshotPath = os.Getenv("SNAPSHOT_PATH")
	cfg.DebugAddr = os.Getenv("CLIENT_DEBUG_ADDR")
	if os.Getenv("BOT_ENABLED") == "false" {
		cfg.BotEnabled = false
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Arena   ArenaConfig
	Physics PhysicsConfig
	Combat  CombatConfig
	Spawn   SpawnConfig
	Relay   RelayConfig
	Client  ClientConfig
}

// Default returns the configuration without environment overrides.
// Tests use this to get deterministic values.
func Default() AppConfig {
	return AppConfig{
		Arena:   DefaultArena(),
		Physics: DefaultPhysics(),
		Combat:  DefaultCombat(),
		Spawn:   DefaultSpawn(),
		Relay:   DefaultRelay(),
		Client:  DefaultClient(),
	}
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	cfg := Default()
	cfg.Relay = RelayFromEnv()
	cfg.Client = ClientFromEnv()

	if d := getEnvDuration("SYNC_INTERVAL", 0); d > 0 {
		cfg.Combat.SyncInterval = d
	}

	return cfg
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getEnvDuration accepts Go duration strings ("3s", "500ms").
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
