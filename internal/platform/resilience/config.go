package resilience

import "time"

// CircuitBreakerConfig tunes one outbound dependency guard. A disabled
// breaker admits every call.
type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenMaxReq   int
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 5,
		OpenTimeout:      15 * time.Second,
		HalfOpenMaxReq:   2,
	}
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	defaults := DefaultCircuitBreakerConfig()
	if c.FailureThreshold < 1 {
		c.FailureThreshold = defaults.FailureThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = defaults.OpenTimeout
	}
	if c.HalfOpenMaxReq < 1 {
		c.HalfOpenMaxReq = defaults.HalfOpenMaxReq
	}
	return c
}
