package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. DIFFSIM_PEER_COUNT.
const EnvPrefix = "DIFFSIM"

// flagKeys maps command-line flag names onto configuration keys.
var flagKeys = map[string]string{
	"peers":          "peer_count",
	"degree":         "outgoing_degree",
	"double-spend":   "double_spend",
	"probe-fraction": "probe_fraction",
	"probe":          "probe_peers",
	"ceiling":        "time_ceiling",
	"outgoing-mean":  "outgoing_mean",
	"incoming-mean":  "incoming_mean",
	"truncate-after": "truncate_after",
	"trials":         "trials",
	"seed":           "seed",
	"workers":        "workers",
	"results-dir":    "results_dir",
	"log-level":      "log_level",
}

// RegisterFlags declares the command-line overrides on fs. Defaults shown in
// help text are informational: unset flags never override other sources.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.Int("peers", DefaultPeerCount, "number of ordinary peers")
	fs.Int("degree", DefaultOutgoingDegree, "expected outgoing connections per peer")
	fs.Bool("double-spend", false, "treat every transaction as conflicting")
	fs.Float64("probe-fraction", DefaultProbeFraction, "fraction of peers probed by the adversary")
	fs.IntSlice("probe", nil, "explicit probe peer ids (overrides --probe-fraction)")
	fs.Duration("ceiling", DefaultTimeCeiling, "simulated time ceiling")
	fs.Duration("outgoing-mean", DefaultOutgoingMean, "mean delay when the sender opened the connection")
	fs.Duration("incoming-mean", DefaultIncomingMean, "mean delay otherwise")
	fs.Int("truncate-after", DefaultTruncateAfter, "score only the k earliest sightings")
	fs.Int("trials", DefaultTrials, "number of independent trials")
	fs.Int64("seed", DefaultSeed, "base seed; trial i uses seed+i")
	fs.Int("workers", 0, "parallel trials (0 = GOMAXPROCS)")
	fs.String("results-dir", "", "pebble directory for persisted results")
	fs.String("log-level", DefaultLogLevel, "log level (error, warn, info, debug)")
}

// Load resolves configuration from, in increasing priority:
// 1. Default values
// 2. The configuration file at path, if path is non-empty
// 3. Environment variables (DIFFSIM_ prefix)
// 4. Flags in flags that were explicitly set
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		if err := loadFile(v, path); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.configPath = path

	if err := Validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func loadFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", path)
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
	}
	return nil
}

// SaveExampleConfig writes a configuration file holding every default. The
// format follows the file extension.
func SaveExampleConfig(path string) error {
	v := viper.New()
	setDefaults(v)

	for _, key := range v.AllKeys() {
		val := v.Get(key)
		if d, ok := val.(interface{ String() string }); ok {
			// Durations are stored in their readable form.
			val = d.String()
		}
		v.Set(key, val)
	}

	v.SetConfigFile(path)
	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write example config: %w", err)
	}
	return nil
}
