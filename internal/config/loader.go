package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvConfigPath names the variable holding the YAML config path.
	EnvConfigPath = "GARAGE_CONFIG"
	envPrefix     = "GARAGE_"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if GARAGE_CONFIG is set
//  3. env (prefix GARAGE_)
func Load(_ context.Context) (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(EnvConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// GARAGE_GATE_QUEUE_SIZE -> gate_queue_size. Keys stay flat so nested
	// sections (rates, preferences, layout) come from the file only.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watch reloads the config whenever the file named by GARAGE_CONFIG changes
// and passes the result to onChange. A reload that fails to parse or validate
// is reported through the error argument. Watching stops when ctx is done.
func Watch(ctx context.Context, onChange func(*Config, error)) error {
	path := os.Getenv(EnvConfigPath)
	if path == "" {
		return ErrNoConfigFile
	}
	fp := file.Provider(path)
	err := fp.Watch(func(_ interface{}, err error) {
		if err != nil {
			onChange(nil, fmt.Errorf("%w: watch %s: %v", ErrLoadConfig, path, err))
			return
		}
		onChange(Load(ctx))
	})
	if err != nil {
		return fmt.Errorf("%w: watch %s: %v", ErrLoadConfig, path, err)
	}
	go func() {
		<-ctx.Done()
		_ = fp.Unwatch()
	}()
	return nil
}
