package core

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// applyProcessOptionsEnv overrides opts in place from DAGENGINE_* env
// vars when present, a "defaults, then override" configuration pattern.
// Malformed values are ignored rather than treated as fatal, since
// these are optional tuning knobs, not required configuration.
func applyProcessOptionsEnv(opts *ProcessOptions) {
	if v, ok := envInt("DAGENGINE_CONCURRENCY"); ok {
		opts.Concurrency = v
	}
	if v, ok := envInt("DAGENGINE_MAX_RETRIES"); ok {
		opts.MaxRetries = v
	}
	if v, ok := envDuration("DAGENGINE_RETRY_DELAY"); ok {
		opts.RetryDelay = v
	}
	if v, ok := envDuration("DAGENGINE_TIMEOUT"); ok {
		opts.Timeout = v
	}
	if v, ok := envBool("DAGENGINE_CONTINUE_ON_ERROR"); ok {
		opts.ContinueOnError = v
	}
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// envDuration parses a plain millisecond count, matching the *Ms fields
// used throughout the plugin-facing API (spec §6.3).
func envDuration(key string) (time.Duration, bool) {
	ms, ok := envInt(key)
	if !ok {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

func envBool(key string) (bool, bool) {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch raw {
	case "":
		return false, false
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}
