package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads cache options from a configuration file (any format viper
// understands: YAML, TOML, JSON), applies defaults, and validates. A missing
// file is not an error: the defaults are returned, matching the engine's
// policy that cache problems never break a build.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			cfg := Default()
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("name", DefaultName)
	v.SetDefault("hashAlgorithm", DefaultHashAlgo)
	v.SetDefault("store", DefaultStore)
	v.SetDefault("loglevel", "")
	v.SetDefault("idleTimeout", "10s")
	v.SetDefault("idleTimeoutForInitialStore", 0)
}

// durationDecodeHook accepts Go duration strings ("10s") and bare integers
// interpreted as milliseconds, the unit the host tool's options use.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch value := data.(type) {
		case string:
			if d, err := time.ParseDuration(value); err == nil {
				return d, nil
			}
			ms, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("config: invalid duration %q", value)
			}
			return time.Duration(ms) * time.Millisecond, nil
		case int, int32, int64, float64:
			ms := reflect.ValueOf(value).Convert(reflect.TypeOf(int64(0))).Int()
			return time.Duration(ms) * time.Millisecond, nil
		default:
			return data, nil
		}
	}
}
