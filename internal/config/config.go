// Package config reads the environment-level knobs enumerated in the
// coordination layer's external interface table. Every option honoured by
// the core is represented here with the documented default. The store
// location is a single REDIS_HOST address (host:port); there is no separate
// port setting.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every tunable the core roles consult. A role only reads the
// fields relevant to it; unused fields are harmless.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NatsAddress string
	NatsCluster string
	NatsClient  string
	NatsChannel string

	GatewayPort int
	HelloTimeout time.Duration

	PlayersPerGame    int
	MaxPullMultiplier int

	MatchMinSeconds int
	MatchMaxSeconds int

	MatchmakerIdle        time.Duration
	MatchmakerNoCapacity  time.Duration
	MatchmakerLockTTL     time.Duration

	SessionPollPeriod time.Duration
	SessionMaxSlots   int
	FinishLockTTL     time.Duration

	ReaperPeriod  time.Duration
	StaleDuration time.Duration
	PlayerTTL     time.Duration

	// SkipReapInGame resolves spec.md §9's open question: when true, the
	// reaper leaves game_id/session_id alone for players whose state is
	// IN_GAME even if their heartbeat is stale, instead of clobbering them.
	SkipReapInGame bool

	MinSessions int
	MaxSessions int

	ScaleUpThreshold   float64
	ScaleDownThreshold float64
	ScaleUpCooldown    time.Duration
	ScaleDownCooldown  time.Duration
	ScaleUpBatch       int
	ScaleDownBatch     int
	SlotsPerSession    int
	CapacityPollPeriod time.Duration
}

// Default returns the configuration with every default literal from the
// spec's configuration table applied.
func Default() Config {
	return Config{
		RedisAddr:   "127.0.0.1:6379",
		RedisDB:     0,
		NatsAddress: "127.0.0.1:4222",
		NatsCluster: "arena",
		NatsClient:  "arena",
		NatsChannel: "arena.events",

		GatewayPort:  8080,
		HelloTimeout: 10 * time.Second,

		PlayersPerGame:    100,
		MaxPullMultiplier: 4,

		MatchMinSeconds: 30,
		MatchMaxSeconds: 300,

		MatchmakerIdle:       250 * time.Millisecond,
		MatchmakerNoCapacity: 500 * time.Millisecond,
		MatchmakerLockTTL:    5 * time.Second,

		SessionPollPeriod: 500 * time.Millisecond,
		SessionMaxSlots:   5,
		FinishLockTTL:     5 * time.Second,

		ReaperPeriod:   5 * time.Second,
		StaleDuration:  30 * time.Second,
		PlayerTTL:      10 * time.Minute,
		SkipReapInGame: false,

		MinSessions: 1,
		MaxSessions: 10,

		ScaleUpThreshold:   0.8,
		ScaleDownThreshold: 0.3,
		ScaleUpCooldown:    30 * time.Second,
		ScaleDownCooldown:  5 * time.Minute,
		ScaleUpBatch:       5,
		ScaleDownBatch:     3,
		SlotsPerSession:    1,
		CapacityPollPeriod: 5 * time.Second,
	}
}

// FromEnv overlays environment variables onto the defaults, following the
// manual os.Getenv style the teacher uses for its own REDIS_PASSWORD
// handling rather than pulling in a config framework.
func FromEnv() Config {
	c := Default()

	c.RedisAddr = getString("REDIS_HOST", c.RedisAddr)
	c.RedisPassword = getString("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getInt("REDIS_DB", c.RedisDB)

	c.NatsAddress = getString("NATS_ADDRESS", c.NatsAddress)
	c.NatsCluster = getString("NATS_CLUSTER", c.NatsCluster)
	c.NatsClient = getString("NATS_CLIENT", c.NatsClient)
	c.NatsChannel = getString("NATS_CHANNEL", c.NatsChannel)

	c.GatewayPort = getInt("GATEWAY_PORT", c.GatewayPort)
	c.HelloTimeout = getDuration("HELLO_TIMEOUT_MS", c.HelloTimeout)

	c.PlayersPerGame = getInt("PLAYERS_PER_GAME", c.PlayersPerGame)
	c.MaxPullMultiplier = getInt("MAX_PULL_MULTIPLIER", c.MaxPullMultiplier)

	c.MatchMinSeconds = getInt("MATCH_MIN_SECONDS", c.MatchMinSeconds)
	c.MatchMaxSeconds = getInt("MATCH_MAX_SECONDS", c.MatchMaxSeconds)

	c.MatchmakerIdle = getDuration("MATCHMAKER_IDLE_MS", c.MatchmakerIdle)
	c.MatchmakerNoCapacity = getDuration("MATCHMAKER_NO_CAPACITY_MS", c.MatchmakerNoCapacity)
	c.MatchmakerLockTTL = getDuration("MATCHMAKER_LOCK_TTL_MS", c.MatchmakerLockTTL)

	c.SessionPollPeriod = getDuration("SESSION_POLL_MS", c.SessionPollPeriod)
	c.SessionMaxSlots = getInt("SESSION_MAX_SLOTS", c.SessionMaxSlots)
	c.FinishLockTTL = getDuration("FINISH_LOCK_TTL_MS", c.FinishLockTTL)

	c.ReaperPeriod = getDuration("REAPER_PERIOD_MS", c.ReaperPeriod)
	c.StaleDuration = getDuration("STALE_MS", c.StaleDuration)
	c.PlayerTTL = getDurationSeconds("PLAYER_TTL_S", c.PlayerTTL)
	c.SkipReapInGame = getBool("REAPER_SKIP_IN_GAME", c.SkipReapInGame)

	c.MinSessions = getInt("MIN_SESSIONS", c.MinSessions)
	c.MaxSessions = getInt("MAX_SESSIONS", c.MaxSessions)

	c.ScaleUpThreshold = getFloat("SCALE_UP_THRESHOLD", c.ScaleUpThreshold)
	c.ScaleDownThreshold = getFloat("SCALE_DOWN_THRESHOLD", c.ScaleDownThreshold)
	c.ScaleUpCooldown = getDuration("SCALE_UP_COOLDOWN_MS", c.ScaleUpCooldown)
	c.ScaleDownCooldown = getDuration("SCALE_DOWN_COOLDOWN_MS", c.ScaleDownCooldown)
	c.ScaleUpBatch = getInt("SCALE_UP_BATCH", c.ScaleUpBatch)
	c.ScaleDownBatch = getInt("SCALE_DOWN_BATCH", c.ScaleDownBatch)
	c.SlotsPerSession = getInt("SLOTS_PER_SESSION", c.SlotsPerSession)
	c.CapacityPollPeriod = getDuration("CAPACITY_POLL_MS", c.CapacityPollPeriod)

	return c
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return def
}

func getDurationSeconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return def
}
