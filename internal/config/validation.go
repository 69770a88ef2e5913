package config

import (
	"errors"
	"fmt"

	"github.com/LeJamon/txdiffusion/internal/logging"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks the configuration before any trial runs.
func Validate(c *Config) error {
	if err := validateNetwork(c); err != nil {
		return err
	}
	if err := validateProbes(c); err != nil {
		return err
	}
	if err := validateTiming(c); err != nil {
		return err
	}

	if c.TruncateAfter <= 0 {
		return invalid("truncate_after must be positive, got %d", c.TruncateAfter)
	}
	if c.Trials <= 0 {
		return invalid("trials must be positive, got %d", c.Trials)
	}
	if c.Workers < 0 {
		return invalid("workers cannot be negative, got %d", c.Workers)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return invalid("%v", err)
	}
	return nil
}

func validateNetwork(c *Config) error {
	if c.PeerCount <= 0 {
		return invalid("peer_count must be positive, got %d", c.PeerCount)
	}
	if c.OutgoingDegree <= 0 {
		return invalid("outgoing_degree must be positive, got %d", c.OutgoingDegree)
	}
	return nil
}

func validateProbes(c *Config) error {
	if c.ProbeFraction < 0 || c.ProbeFraction > 1 {
		return invalid("probe_fraction must be in [0, 1], got %g", c.ProbeFraction)
	}
	for _, p := range c.ProbePeers {
		if p < 0 || p >= c.PeerCount {
			return invalid("probe peer %d outside [0, %d)", p, c.PeerCount)
		}
	}
	if len(c.ProbeSet()) >= c.PeerCount {
		return invalid("probe set covers all %d peers; nothing left to observe", c.PeerCount)
	}
	return nil
}

func validateTiming(c *Config) error {
	if c.TimeCeiling <= 0 {
		return invalid("time_ceiling must be positive, got %v", c.TimeCeiling)
	}
	if c.OutgoingMean <= 0 {
		return invalid("outgoing_mean must be positive, got %v", c.OutgoingMean)
	}
	if c.IncomingMean <= 0 {
		return invalid("incoming_mean must be positive, got %v", c.IncomingMean)
	}
	return nil
}
