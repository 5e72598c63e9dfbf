package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/factory/pkg/dotdir"
)

// EnvPrefix prefixes every environment override, e.g. FACTORY_SERVER_LISTEN.
const EnvPrefix = "FACTORY"

// InitViper returns a viper instance layered, highest first, as
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. FACTORY_* environment variables
//  3. config.toml found through dotdir resolution
//  4. NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper decodes the effective configuration out of v.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	// AutomaticEnv only answers Get calls, so scalar keys are read back
	// explicitly to honour environment overrides.
	for _, key := range ValidConfigKeys() {
		if !v.IsSet(key) || listKeys[key] {
			continue
		}
		if err := configKeys[key].set(cfg, v.GetString(key)); err != nil {
			return nil, err
		}
	}
	if list := stringList(v, "providers.default"); len(list) > 0 {
		cfg.Providers.Default = list
	}
	if list := stringList(v, "events.brokers"); len(list) > 0 {
		cfg.Events.Brokers = list
	}

	applyDefaults(cfg)
	return cfg, nil
}

var listKeys = map[string]bool{
	"providers.default": true,
	"events.brokers":    true,
}

// stringList reads a list key that may arrive as a TOML array or as a
// comma separated environment value.
func stringList(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// setViperDefaults registers NewDefaultConfig() under dotted keys.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)
	for _, key := range ValidConfigKeys() {
		v.SetDefault(key, configKeys[key].get(d))
	}
	v.SetDefault("providers.default", d.Providers.Default)
	v.SetDefault("events.brokers", d.Events.Brokers)
}
