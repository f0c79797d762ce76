package ai

import "sync/atomic"

// debugLoggingEnabled gates per-tick debug logs so hot loops skip building
// attributes when the level is above debug.
// Set via EnableDebugLogging() from main after parsing config.LogLevel.
var debugLoggingEnabled atomic.Bool

// EnableDebugLogging enables or disables per-tick debug logging.
func EnableDebugLogging(enabled bool) {
	debugLoggingEnabled.Store(enabled)
}

// IsDebugEnabled returns true if per-tick debug logging is enabled.
//
//	if ai.IsDebugEnabled() {
//	    slog.Debug("encampment tick", "hostiles", len(hostiles))
//	}
func IsDebugEnabled() bool {
	return debugLoggingEnabled.Load()
}
