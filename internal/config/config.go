package config

import (
	"math"
	"sort"
	"time"

	"github.com/LeJamon/txdiffusion/internal/topology"
)

// Config holds the parameters of a batch of diffusion trials.
type Config struct {
	// Network
	PeerCount      int  `toml:"peer_count" mapstructure:"peer_count"`
	OutgoingDegree int  `toml:"outgoing_degree" mapstructure:"outgoing_degree"`
	DoubleSpend    bool `toml:"double_spend" mapstructure:"double_spend"`

	// Adversary probes. ProbePeers wins over ProbeFraction when non-empty.
	ProbeFraction float64 `toml:"probe_fraction" mapstructure:"probe_fraction"`
	ProbePeers    []int   `toml:"probe_peers" mapstructure:"probe_peers"`

	// Timing
	TimeCeiling  time.Duration `toml:"time_ceiling" mapstructure:"time_ceiling"`
	OutgoingMean time.Duration `toml:"outgoing_mean" mapstructure:"outgoing_mean"`
	IncomingMean time.Duration `toml:"incoming_mean" mapstructure:"incoming_mean"`

	// Scoring
	TruncateAfter int `toml:"truncate_after" mapstructure:"truncate_after"`

	// Batch
	Trials  int   `toml:"trials" mapstructure:"trials"`
	Seed    int64 `toml:"seed" mapstructure:"seed"`
	Workers int   `toml:"workers" mapstructure:"workers"`

	ResultsDir string `toml:"results_dir" mapstructure:"results_dir"`
	LogLevel   string `toml:"log_level" mapstructure:"log_level"`

	configPath string
}

// ProbeSet returns the sorted, de-duplicated probe peers.
func (c *Config) ProbeSet() []topology.PeerID {
	if len(c.ProbePeers) > 0 {
		seen := make(map[int]struct{}, len(c.ProbePeers))
		out := make([]topology.PeerID, 0, len(c.ProbePeers))
		for _, p := range c.ProbePeers {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, topology.PeerID(p))
		}
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		return out
	}

	n := int(math.Floor(float64(c.PeerCount) * c.ProbeFraction))
	out := make([]topology.PeerID, n)
	for i := range out {
		out[i] = topology.PeerID(i)
	}
	return out
}

// GraphParams returns the topology parameters.
func (c *Config) GraphParams() topology.Params {
	return topology.Params{PeerCount: c.PeerCount, OutgoingDegree: c.OutgoingDegree}
}

// Persist reports whether results should be written to disk.
func (c *Config) Persist() bool {
	return c.ResultsDir != ""
}

// GetConfigPath returns the file the configuration was read from, if any.
func (c *Config) GetConfigPath() string {
	return c.configPath
}
