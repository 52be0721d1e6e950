package helpers

import (
	"time"

	"github.com/rs/zerolog/log"
)

// DurationOr parses a duration string, returning fallback when it is malformed
// or not positive.
func DurationOr(durationStr string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(durationStr)
	if err != nil {
		// The global logger is used because this runs while the configuration is being read.
		log.Warn().Err(err).Str("durationStr", durationStr).Dur("fallback", fallback).Msg("Failed to parse duration string, using fallback")
		return fallback
	}
	if duration <= 0 {
		return fallback
	}
	return duration
}
