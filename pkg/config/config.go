// Package config holds the on-disk configuration of the execution host.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/filecoin-project/go-state-types/network"
	"github.com/hashicorp/go-multierror"
	logging "github.com/ipfs/go-log/v2"
	"github.com/pkg/errors"

	"github.com/filecoin-project/venus-fvm/pkg/constants"
	"github.com/filecoin-project/venus-fvm/pkg/vm/gas"
	"github.com/filecoin-project/venus-fvm/pkg/vm/sandbox"
)

// Config is the top level configuration.
type Config struct {
	Execution *ExecutionConfig `toml:"execution"`
	Sandbox   *SandboxConfig   `toml:"sandbox"`
	Log       *LogConfig       `toml:"log"`
}

// ExecutionConfig controls how messages are applied.
type ExecutionConfig struct {
	NetworkVersion  uint   `toml:"networkVersion"`
	MaxCallDepth    uint32 `toml:"maxCallDepth"`
	DefaultGasLimit int64  `toml:"defaultGasLimit"`
	Tracing         bool   `toml:"tracing"`
}

func newDefaultExecutionConfig() *ExecutionConfig {
	return &ExecutionConfig{
		NetworkVersion:  uint(network.Version7),
		MaxCallDepth:    constants.DefaultMaxCallDepth,
		DefaultGasLimit: constants.DefaultGasLimit,
	}
}

// Pricelist returns the price table for the configured network version.
func (cfg *ExecutionConfig) Pricelist() gas.Pricelist {
	return gas.NewPricesSchedule().PricelistByVersion(network.Version(cfg.NetworkVersion))
}

// SandboxConfig controls the wasm engine. A negative ModuleCacheSize
// disables the compiled module cache. MemoryLimitPages caps the linear
// memory of every instance in 64KiB pages; 0 keeps the engine default.
type SandboxConfig struct {
	ModuleCacheSize  int    `toml:"moduleCacheSize"`
	Interpreter      bool   `toml:"interpreter"`
	MemoryLimitPages uint32 `toml:"memoryLimitPages"`
}

// maxMemoryPages is the 4GiB limit of 32-bit wasm memory.
const maxMemoryPages = 65536

// WasmConfig returns the engine settings for the section.
func (cfg *SandboxConfig) WasmConfig() sandbox.WasmConfig {
	return sandbox.WasmConfig{
		Interpreter:      cfg.Interpreter,
		ModuleCacheSize:  cfg.ModuleCacheSize,
		MemoryLimitPages: cfg.MemoryLimitPages,
	}
}

func newDefaultSandboxConfig() *SandboxConfig {
	size := 128
	if constants.NoModuleCache {
		size = -1
	}
	return &SandboxConfig{
		ModuleCacheSize: size,
	}
}

// LogConfig sets the level of the vm loggers.
type LogConfig struct {
	Level string `toml:"level"`
}

func newDefaultLogConfig() *LogConfig {
	return &LogConfig{
		Level: "info",
	}
}

// NewDefaultConfig returns a config object with all the fields filled out to
// their default values
func NewDefaultConfig() *Config {
	return &Config{
		Execution: newDefaultExecutionConfig(),
		Sandbox:   newDefaultSandboxConfig(),
		Log:       newDefaultLogConfig(),
	}
}

// Validate rejects values the host cannot run with, reporting every problem
// found.
func (cfg *Config) Validate() error {
	if cfg.Execution == nil || cfg.Sandbox == nil || cfg.Log == nil {
		return errors.New("config sections must not be empty")
	}
	var result *multierror.Error
	if cfg.Execution.MaxCallDepth == 0 {
		result = multierror.Append(result, errors.New("execution.maxCallDepth must be positive"))
	}
	if cfg.Execution.DefaultGasLimit <= 0 {
		result = multierror.Append(result, errors.New("execution.defaultGasLimit must be positive"))
	}
	if cfg.Sandbox.MemoryLimitPages > maxMemoryPages {
		result = multierror.Append(result, errors.Errorf("sandbox.memoryLimitPages must not exceed %d", maxMemoryPages))
	}
	if _, err := logging.LevelFromString(cfg.Log.Level); err != nil {
		result = multierror.Append(result, errors.Wrapf(err, "log.level %q", cfg.Log.Level))
	}
	return result.ErrorOrNil()
}

// loggers matches every logger of the execution host.
const loggers = `^(vm\..+|statetree|metrics|venus-fvm)$`

// ApplyLogLevel sets the configured level on every logger of the host.
func (cfg *Config) ApplyLogLevel() error {
	return logging.SetLogLevelRegex(loggers, cfg.Log.Level)
}

// WriteFile writes the config to the given filepath.
func (cfg *Config) WriteFile(file string) error {
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if err := toml.NewEncoder(f).Encode(*cfg); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// ReadFile reads a config file from disk. Missing keys keep their defaults.
func ReadFile(file string) (*Config, error) {
	cfg := NewDefaultConfig()
	if _, err := toml.DecodeFile(file, cfg); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", file)
	}
	return cfg, cfg.Validate()
}

// traverseConfig walks the config along a dotted key of toml tags and applies
// f to the value found.
func (cfg *Config) traverseConfig(key string, f func(reflect.Value, string) (interface{}, error)) (interface{}, error) {
	v := reflect.Indirect(reflect.ValueOf(cfg))
	keyTags := strings.Split(key, ".")
OUTER:
	for j, keyTag := range keyTags {
		switch v.Type().Kind() {
		case reflect.Struct:
			for i := 0; i < v.NumField(); i++ {
				tomlTag := strings.Split(v.Type().Field(i).Tag.Get("toml"), ",")[0]
				if tomlTag == keyTag {
					v = v.Field(i)
					if j == len(keyTags)-1 {
						return f(v, key)
					}
					v = reflect.Indirect(v) // only attempt one dereference
					continue OUTER
				}
			}
		case reflect.Array, reflect.Slice:
			i64, err := strconv.ParseUint(keyTag, 0, 0)
			if err != nil {
				return nil, fmt.Errorf("non-integer key into slice")
			}
			i := int(i64)
			if i > v.Len()-1 {
				return nil, fmt.Errorf("key into slice out of range")
			}
			v = v.Index(i)
			if j == len(keyTags)-1 {
				return f(v, key)
			}
			v = reflect.Indirect(v)
			continue OUTER
		}

		return nil, fmt.Errorf("key: %s invalid for config", key)
	}
	return nil, fmt.Errorf("empty key is invalid")
}

// prependKey wraps a toml value so it decodes into a single-field struct.
func prependKey(tomlVal string, key string, fieldT reflect.Type) string {
	ks := strings.Split(key, ".")
	k := ks[len(ks)-1]
	fieldK := fieldT.Kind()
	if fieldK == reflect.Ptr {
		fieldK = fieldT.Elem().Kind()
	}

	if fieldK == reflect.Struct {
		tomlVal = strings.TrimSpace(tomlVal)
		if strings.HasPrefix(tomlVal, "{") {
			return fmt.Sprintf("%s=%s", k, tomlVal)
		}
		return fmt.Sprintf("[%s]\n%s", k, tomlVal)
	}
	return fmt.Sprintf("%s=%s", k, tomlVal)
}

func fieldToSet(key string, tomlVal string, fieldT reflect.Type) (reflect.Value, error) {
	ks := strings.Split(key, ".")
	k := ks[len(ks)-1]

	field := reflect.StructField{
		Name: "Field",
		Type: fieldT,
		Tag:  reflect.StructTag(`toml:"` + k + `"`),
	}
	valToRecv := reflect.New(reflect.StructOf([]reflect.StructField{field}))

	if _, err := toml.Decode(prependKey(tomlVal, key, fieldT), valToRecv.Interface()); err != nil {
		return valToRecv, errors.Wrapf(err, "input could not be marshaled to sub-config at: %s", key)
	}
	return valToRecv.Elem().Field(0), nil
}

// Set sets the config sub-struct referenced by `key`, e.g. 'execution.tracing'
// or 'sandbox', to the toml encoded value. The resulting config must still
// validate.
func (cfg *Config) Set(key string, tomlVal string) (interface{}, error) {
	f := func(v reflect.Value, key string) (interface{}, error) {
		setT := v.Type()
		recvT := setT
		if setT.Kind() == reflect.Ptr {
			recvT = setT.Elem()
		}

		valToSet, err := fieldToSet(key, tomlVal, recvT)
		if err != nil {
			return nil, err
		}
		if setT.Kind() == reflect.Ptr {
			valToSet = valToSet.Addr()
		}

		old := reflect.New(setT).Elem()
		old.Set(v)
		v.Set(valToSet)
		if err := cfg.Validate(); err != nil {
			v.Set(old)
			return nil, err
		}
		return v.Interface(), nil
	}

	return cfg.traverseConfig(key, f)
}

// Get gets the config sub-struct referenced by `key`.
func (cfg *Config) Get(key string) (interface{}, error) {
	f := func(v reflect.Value, key string) (interface{}, error) {
		return v.Interface(), nil
	}
	return cfg.traverseConfig(key, f)
}
