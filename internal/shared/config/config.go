package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"gopkg.in/ini.v1"
	"proxy_harvester/internal/shared/types"
)

// DefaultFileName is looked up in the working directory; a missing file is not an error.
const DefaultFileName = "harvester.ini"

// ErrInvalid is returned when a loaded configuration cannot drive a run.
var ErrInvalid = errors.New("invalid configuration")

// Load 从默认值出发，叠加 ini 文件与环境变量，并校验结果。
func Load(fileName string) (*types.Config, error) {
	cfg := types.DefaultConfig()
	if err := LoadIni(cfg, fileName); err != nil {
		return nil, err
	}
	overrideFromEnvInt(&cfg.CheckConf.Concurrency, "HARVESTER_CONCURRENCY")
	overrideFromEnvInt(&cfg.CheckConf.TimeoutSeconds, "HARVESTER_TIMEOUT_SECONDS")
	overrideFromEnvString(&cfg.LogConf.Level, "HARVESTER_LOG_LEVEL")

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadIni overlays fileName onto cfg. Keys absent from the file keep their current value.
func LoadIni(cfg *types.Config, fileName string) error {
	iniFile, err := ini.LooseLoad(fileName)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", fileName, err)
	}
	if err := iniFile.MapTo(cfg); err != nil {
		return fmt.Errorf("failed to map %s: %w", fileName, err)
	}
	return nil
}

// Validate checks the values the engine and the fetcher rely on.
func Validate(cfg *types.Config) error {
	if cfg.CheckConf.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be >= 1, got %d", ErrInvalid, cfg.CheckConf.Concurrency)
	}
	if cfg.CheckConf.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: timeout_seconds must be > 0, got %d", ErrInvalid, cfg.CheckConf.TimeoutSeconds)
	}
	u, err := url.Parse(cfg.CheckConf.ProbeURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: probe_url %q is not an http(s) URL", ErrInvalid, cfg.CheckConf.ProbeURL)
	}
	switch cfg.CheckConf.TLSFingerprint {
	case "randomized", "go":
	default:
		return fmt.Errorf("%w: tls_fingerprint must be 'randomized' or 'go', got %q", ErrInvalid, cfg.CheckConf.TLSFingerprint)
	}
	if cfg.OutputConf.Dir == "" {
		return fmt.Errorf("%w: output dir is empty", ErrInvalid)
	}
	if cfg.OutputConf.BarWidth < 1 {
		cfg.OutputConf.BarWidth = 30
	}
	if cfg.OutputConf.LogStep < 1 {
		cfg.OutputConf.LogStep = 10
	}
	if cfg.SourcesConf.FetchTimeoutSeconds <= 0 {
		cfg.SourcesConf.FetchTimeoutSeconds = 10
	}
	return nil
}

func overrideFromEnvInt(target *int, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if intValue, err := strconv.Atoi(envValue); err == nil {
			*target = intValue
		}
	}
}

func overrideFromEnvString(target *string, envName string) {
	if envValue := os.Getenv(envName); envValue != "" {
		*target = envValue
	}
}
