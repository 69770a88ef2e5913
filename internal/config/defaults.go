package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values, matching the reference experiment.
const (
	DefaultPeerCount      = 256
	DefaultOutgoingDegree = 8
	DefaultProbeFraction  = 0.5
	DefaultTimeCeiling    = 50 * time.Second
	DefaultOutgoingMean   = 2 * time.Second
	DefaultIncomingMean   = 5 * time.Second
	DefaultTruncateAfter  = 14
	DefaultTrials         = 256
	DefaultSeed           = 1
	DefaultLogLevel       = "info"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("peer_count", DefaultPeerCount)
	v.SetDefault("outgoing_degree", DefaultOutgoingDegree)
	v.SetDefault("double_spend", false)

	v.SetDefault("probe_fraction", DefaultProbeFraction)
	v.SetDefault("probe_peers", []int{})

	v.SetDefault("time_ceiling", DefaultTimeCeiling)
	v.SetDefault("outgoing_mean", DefaultOutgoingMean)
	v.SetDefault("incoming_mean", DefaultIncomingMean)

	v.SetDefault("truncate_after", DefaultTruncateAfter)

	v.SetDefault("trials", DefaultTrials)
	v.SetDefault("seed", DefaultSeed)
	v.SetDefault("workers", 0) // 0 means GOMAXPROCS

	v.SetDefault("results_dir", "")
	v.SetDefault("log_level", DefaultLogLevel)
}

// Default returns a configuration populated with defaults only.
func Default() *Config {
	return &Config{
		PeerCount:      DefaultPeerCount,
		OutgoingDegree: DefaultOutgoingDegree,
		ProbeFraction:  DefaultProbeFraction,
		TimeCeiling:    DefaultTimeCeiling,
		OutgoingMean:   DefaultOutgoingMean,
		IncomingMean:   DefaultIncomingMean,
		TruncateAfter:  DefaultTruncateAfter,
		Trials:         DefaultTrials,
		Seed:           DefaultSeed,
		LogLevel:       DefaultLogLevel,
	}
}
