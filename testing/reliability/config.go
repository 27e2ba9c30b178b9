package reliability

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// ReliabilityConfig holds configuration for reliability testing.
type ReliabilityConfig struct {
	Level         string        `envconfig:"LEVEL"`                  // "basic" or "stress"
	Duration      time.Duration `envconfig:"DURATION" default:"30s"` // Test duration for stress tests
	MaxGoroutines int           `envconfig:"MAX_GOROUTINES" default:"100"`
	// Longest a single End may take while the export queue is saturated.
	MaxEndLatency time.Duration `envconfig:"MAX_END_LATENCY" default:"100ms"`
}

// getReliabilityConfig reads LEGTRACE_RELIABILITY_* environment variables.
// Malformed values fall back to the defaults.
func getReliabilityConfig() ReliabilityConfig {
	var config ReliabilityConfig
	if err := envconfig.Process("LEGTRACE_RELIABILITY", &config); err != nil {
		return ReliabilityConfig{
			Duration:      30 * time.Second,
			MaxGoroutines: 100,
			MaxEndLatency: 100 * time.Millisecond,
		}
	}
	return config
}
