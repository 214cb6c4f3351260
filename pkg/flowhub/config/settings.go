package config

import (
	"log/slog"
	"time"
)

// Settings holds the timing and logging thresholds of a hub and its flows.
// Zero durations and counts disable the matching check.
type Settings struct {
	// HeartbeatInterval is the period of HeartbeatEvent posts. Zero disables
	// the heartbeat.
	HeartbeatInterval time.Duration

	// SlowHandler is the execution time above which a handler is logged.
	SlowHandler      time.Duration
	SlowHandlerLevel slog.Level

	// SlowDispatch is the chain execution time above which a dispatch is
	// logged.
	SlowDispatch time.Duration

	// LongQueue is the queue length above which a queue flow logs.
	LongQueue      int
	LongQueueLevel slog.Level
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		HeartbeatInterval: 5 * time.Second,
		SlowHandler:       100 * time.Millisecond,
		SlowHandlerLevel:  slog.LevelWarn,
		SlowDispatch:      time.Second,
		LongQueue:         1000,
		LongQueueLevel:    slog.LevelWarn,
	}
}

// Keys read by SettingsFrom.
const (
	KeyHeartbeatInterval = "heartbeat_interval"
	KeySlowHandler       = "slow_handler"
	KeySlowHandlerLevel  = "slow_handler_level"
	KeySlowDispatch      = "slow_dispatch"
	KeyLongQueue         = "long_queue"
	KeyLongQueueLevel    = "long_queue_level"
)

// SettingsFrom reads settings from c, starting from DefaultSettings.
func SettingsFrom(c Config) Settings {
	d := DefaultSettings()
	return Settings{
		HeartbeatInterval: c.Duration(KeyHeartbeatInterval, d.HeartbeatInterval),
		SlowHandler:       c.Duration(KeySlowHandler, d.SlowHandler),
		SlowHandlerLevel:  c.Level(KeySlowHandlerLevel, d.SlowHandlerLevel),
		SlowDispatch:      c.Duration(KeySlowDispatch, d.SlowDispatch),
		LongQueue:         c.Int(KeyLongQueue, d.LongQueue),
		LongQueueLevel:    c.Level(KeyLongQueueLevel, d.LongQueueLevel),
	}
}
