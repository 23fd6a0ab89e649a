// Package engcfg loads one partition engine's configuration: the §6.4
// options (tempTableMemoryLimit, defaultDrBufferSize, flushInterval,
// maxCachedPools) plus the ambient knobs (log level, log rotation path,
// metrics listen address) that aren't part of the spec proper but that
// every real deployment of this engine needs.
//
// Follows a BuildFlagSet → BuildViper → BuildConfig call sequence, binding
// pflags, VOLTEE_-prefixed environment variables, and defaults through
// viper's own documented BindPFlags/SetEnvPrefix/AutomaticEnv convention.
package engcfg

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/VoltDB/voltdb-sub009/elog"
	"github.com/VoltDB/voltdb-sub009/engine"
)

// EnvPrefix is prepended (as VOLTEE_<KEY>) to every option name when viper
// resolves it from the environment.
const EnvPrefix = "voltee"

// Key names, also used verbatim as the long flag names; the environment form
// replaces dashes with underscores under the VOLTEE_ prefix.
const (
	KeyTempTableMemoryLimit = "temp-table-memory-limit"
	KeyDefaultDrBufferSize  = "default-dr-buffer-size"
	KeyFlushInterval        = "flush-interval"
	KeyMaxCachedPools       = "max-cached-pools"

	KeyLogLevel    = "log-level"
	KeyLogRotate   = "log-rotate"
	KeyLogJSON     = "log-json"
	KeyMetricsAddr = "metrics-addr"
)

// Config is the fully resolved set of options one engine instance, plus
// its ambient logging/metrics wiring, is constructed from.
type Config struct {
	Engine engine.Config

	LogLevel    slog.Level
	LogRotate   string
	LogJSON     bool
	MetricsAddr string
}

// BuildFlagSet declares every option as a pflag. Splitting it out from
// BuildViper lets a caller still print --help before any viper binding
// happens.
func BuildFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)

	fs.String(KeyTempTableMemoryLimit, "100MB", "large temp table cache budget, e.g. 100MB, 2GiB")
	fs.String(KeyDefaultDrBufferSize, "2MB", "default export/DR stream buffer capacity")
	fs.Duration(KeyFlushInterval, time.Second, "periodic stream flush interval")
	fs.Int(KeyMaxCachedPools, engine.DefaultConfig().MaxCachedPools, "undo log pool free-list capacity")

	fs.String(KeyLogLevel, "info", "log level: trace, debug, info, warn, error, crit")
	fs.String(KeyLogRotate, "", "rotate logs to this path instead of the terminal")
	fs.Bool(KeyLogJSON, false, "emit structured JSON log records")
	fs.String(KeyMetricsAddr, "", "address to serve /metrics on, empty disables it")

	return fs
}

// BuildViper binds fs, the environment (VOLTEE_ prefix), and defaults into
// one viper.Viper, then parses args against fs.
func BuildViper(fs *pflag.FlagSet, args []string) (*viper.Viper, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	return v, nil
}

// BuildConfig resolves a fully-typed Config from a bound viper.Viper,
// coercing the human-friendly byte-size strings via spf13/cast.
func BuildConfig(v *viper.Viper) (Config, error) {
	tempTableLimit, err := parseByteSize(v.Get(KeyTempTableMemoryLimit))
	if err != nil {
		return Config{}, fmt.Errorf("engcfg: %s: %w", KeyTempTableMemoryLimit, err)
	}
	drBufferSize, err := parseByteSize(v.Get(KeyDefaultDrBufferSize))
	if err != nil {
		return Config{}, fmt.Errorf("engcfg: %s: %w", KeyDefaultDrBufferSize, err)
	}

	level, err := parseLogLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return Config{}, fmt.Errorf("engcfg: %s: %w", KeyLogLevel, err)
	}

	return Config{
		Engine: engine.Config{
			TempTableMemoryLimit: tempTableLimit,
			DefaultDrBufferSize:  int(drBufferSize),
			FlushIntervalMs:      v.GetDuration(KeyFlushInterval).Milliseconds(),
			MaxCachedPools:       v.GetInt(KeyMaxCachedPools),
		},
		LogLevel:    level,
		LogRotate:   v.GetString(KeyLogRotate),
		LogJSON:     v.GetBool(KeyLogJSON),
		MetricsAddr: v.GetString(KeyMetricsAddr),
	}, nil
}

// byteSizeSuffixes maps a case-insensitive unit suffix to its byte
// multiplier, both the decimal (MB, GB) and binary (MiB, GiB) families.
var byteSizeSuffixes = map[string]int64{
	"b":   1,
	"kb":  1000,
	"mb":  1000 * 1000,
	"gb":  1000 * 1000 * 1000,
	"kib": 1024,
	"mib": 1024 * 1024,
	"gib": 1024 * 1024 * 1024,
}

// parseByteSize accepts whatever shape a config value arrived in (a plain
// number from a flag default, a human string like "2GiB" from the
// environment or a config file) and returns the byte count.
func parseByteSize(raw interface{}) (int64, error) {
	if n, ok := raw.(int64); ok {
		return n, nil
	}
	if n, ok := raw.(int); ok {
		return int64(n), nil
	}

	s := strings.TrimSpace(cast.ToString(raw))
	if s == "" {
		return 0, fmt.Errorf("empty size value")
	}

	cut := len(s)
	for cut > 0 && !(s[cut-1] >= '0' && s[cut-1] <= '9') {
		cut--
	}
	numPart, suffix := s[:cut], strings.ToLower(strings.TrimSpace(s[cut:]))

	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if suffix == "" {
		return n, nil
	}
	mult, ok := byteSizeSuffixes[suffix]
	if !ok {
		return 0, fmt.Errorf("unrecognized size suffix %q in %q", suffix, s)
	}
	return n * mult, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return elog.LevelTrace, nil
	case "debug":
		return elog.LevelDebug, nil
	case "info", "":
		return elog.LevelInfo, nil
	case "warn", "warning":
		return elog.LevelWarn, nil
	case "error":
		return elog.LevelError, nil
	case "crit", "critical":
		return elog.LevelCrit, nil
	default:
		return 0, fmt.Errorf("unrecognized log level %q", s)
	}
}
