package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/filecoin-project/go-state-types/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/venus-fvm/pkg/constants"
	tf "github.com/filecoin-project/venus-fvm/pkg/testhelpers/testflags"
	"github.com/filecoin-project/venus-fvm/pkg/vm/gas"
	"github.com/filecoin-project/venus-fvm/pkg/vm/sandbox"
)

func TestDefaults(t *testing.T) {
	tf.UnitTest(t)

	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, uint32(constants.DefaultMaxCallDepth), cfg.Execution.MaxCallDepth)
	assert.Equal(t, constants.DefaultGasLimit, cfg.Execution.DefaultGasLimit)
	assert.False(t, cfg.Execution.Tracing)
	assert.False(t, cfg.Sandbox.Interpreter)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, gas.NewPricesSchedule().PricelistByVersion(network.Version7), cfg.Execution.Pricelist())
}

func TestConfigRoundtrip(t *testing.T) {
	tf.UnitTest(t)

	cfg := NewDefaultConfig()
	cfg.Execution.Tracing = true
	cfg.Sandbox.ModuleCacheSize = 7

	cfgpath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, cfg.WriteFile(cfgpath))
	// rewriting a shorter config must not leave stale bytes behind
	require.NoError(t, NewDefaultConfig().WriteFile(cfgpath))
	require.NoError(t, cfg.WriteFile(cfgpath))

	cfgout, err := ReadFile(cfgpath)
	require.NoError(t, err)
	assert.Equal(t, cfg, cfgout)
}

func TestConfigReadFileDefaults(t *testing.T) {
	tf.UnitTest(t)

	t.Run("all sections exist", func(t *testing.T) {
		cfg, err := ReadFile(createConfigFile(t, `
[execution]
networkVersion = 3
tracing = true

[sandbox]
interpreter = true

[log]
level = "debug"
`))
		require.NoError(t, err)

		assert.Equal(t, uint(3), cfg.Execution.NetworkVersion)
		assert.True(t, cfg.Execution.Tracing)
		assert.Equal(t, uint32(constants.DefaultMaxCallDepth), cfg.Execution.MaxCallDepth)
		assert.True(t, cfg.Sandbox.Interpreter)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("missing one section", func(t *testing.T) {
		cfg, err := ReadFile(createConfigFile(t, `
[execution]
maxCallDepth = 16
`))
		require.NoError(t, err)

		assert.Equal(t, uint32(16), cfg.Execution.MaxCallDepth)
		assert.Equal(t, NewDefaultConfig().Sandbox, cfg.Sandbox)
	})

	t.Run("empty file", func(t *testing.T) {
		cfg, err := ReadFile(createConfigFile(t, ""))
		require.NoError(t, err)
		assert.Equal(t, NewDefaultConfig(), cfg)
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := ReadFile(createConfigFile(t, "[execution]\nmaxCallDepth = 0\n"))
		assert.Error(t, err)

		_, err = ReadFile(createConfigFile(t, "[log]\nlevel = \"loud\"\n"))
		assert.Error(t, err)

		_, err = ReadFile(createConfigFile(t, "[execution\n"))
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadFile(filepath.Join(t.TempDir(), "nope.toml"))
		assert.Error(t, err)
	})
}

func TestConfigGet(t *testing.T) {
	tf.UnitTest(t)

	t.Run("valid gets", func(t *testing.T) {
		cfg := NewDefaultConfig()

		out, err := cfg.Get("execution.maxCallDepth")
		require.NoError(t, err)
		assert.Equal(t, cfg.Execution.MaxCallDepth, out)

		out, err = cfg.Get("sandbox")
		require.NoError(t, err)
		assert.Equal(t, cfg.Sandbox, out)

		out, err = cfg.Get("log.level")
		require.NoError(t, err)
		assert.Equal(t, "info", out)
	})

	t.Run("invalid gets", func(t *testing.T) {
		cfg := NewDefaultConfig()

		for _, key := range []string{"execution.", ".execution", "invalidfield", "log.level.toomuch", "max-call-depth", ""} {
			_, err := cfg.Get(key)
			assert.Error(t, err, key)
		}
	})
}

func TestConfigSet(t *testing.T) {
	tf.UnitTest(t)

	t.Run("set leaf values", func(t *testing.T) {
		cfg := NewDefaultConfig()

		_, err := cfg.Set("execution.tracing", `true`)
		require.NoError(t, err)
		assert.True(t, cfg.Execution.Tracing)

		_, err = cfg.Set("log.level", `"warn"`)
		require.NoError(t, err)
		assert.Equal(t, "warn", cfg.Log.Level)
	})

	t.Run("set table value", func(t *testing.T) {
		cfg := NewDefaultConfig()

		_, err := cfg.Set("sandbox", `{moduleCacheSize = 3, interpreter = true}`)
		require.NoError(t, err)
		assert.Equal(t, &SandboxConfig{ModuleCacheSize: 3, Interpreter: true}, cfg.Sandbox)

		_, err = cfg.Set("sandbox", "moduleCacheSize = 5\ninterpreter = false")
		require.NoError(t, err)
		assert.Equal(t, &SandboxConfig{ModuleCacheSize: 5}, cfg.Sandbox)
	})

	t.Run("invalid set", func(t *testing.T) {
		cfg := NewDefaultConfig()

		_, err := cfg.Set("execution.nope", `1`)
		assert.Error(t, err)

		_, err = cfg.Set("execution.maxCallDepth", `"deep"`)
		assert.Error(t, err)

		_, err = cfg.Set("sandbox", `"strings aren't structs"`)
		assert.Error(t, err)

		_, err = cfg.Set("execution.maxCallDepth", `0`)
		assert.Error(t, err)
		assert.Equal(t, uint32(constants.DefaultMaxCallDepth), cfg.Execution.MaxCallDepth)

		_, err = cfg.Set("log.level", `"loud"`)
		assert.Error(t, err)
		assert.Equal(t, "info", cfg.Log.Level)
	})

	t.Run("setting leaves does not interfere with neighboring leaves", func(t *testing.T) {
		cfg := NewDefaultConfig()

		_, err := cfg.Set("execution.networkVersion", `2`)
		require.NoError(t, err)
		_, err = cfg.Set("execution.tracing", `true`)
		require.NoError(t, err)
		assert.Equal(t, uint(2), cfg.Execution.NetworkVersion)
		assert.Equal(t, constants.DefaultGasLimit, cfg.Execution.DefaultGasLimit)
	})
}

func TestValidateReportsEveryProblem(t *testing.T) {
	tf.UnitTest(t)

	cfg := NewDefaultConfig()
	cfg.Execution.MaxCallDepth = 0
	cfg.Execution.DefaultGasLimit = -1
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 errors occurred")
	assert.Contains(t, err.Error(), "maxCallDepth")
	assert.Contains(t, err.Error(), "defaultGasLimit")
	assert.Contains(t, err.Error(), "log.level")

	cfg.Sandbox = nil
	assert.EqualError(t, cfg.Validate(), "config sections must not be empty")
}

func TestSandboxWasmConfig(t *testing.T) {
	tf.UnitTest(t)

	cfg := NewDefaultConfig()
	_, err := cfg.Set("sandbox.memoryLimitPages", `16`)
	require.NoError(t, err)
	cfg.Sandbox.Interpreter = true

	assert.Equal(t, sandbox.WasmConfig{
		Interpreter:      true,
		ModuleCacheSize:  cfg.Sandbox.ModuleCacheSize,
		MemoryLimitPages: 16,
	}, cfg.Sandbox.WasmConfig())

	_, err = cfg.Set("sandbox.memoryLimitPages", `65537`)
	assert.Error(t, err)
	assert.Equal(t, uint32(16), cfg.Sandbox.MemoryLimitPages)
}

func TestApplyLogLevel(t *testing.T) {
	tf.UnitTest(t)

	cfg := NewDefaultConfig()
	cfg.Log.Level = "error"
	assert.NoError(t, cfg.ApplyLogLevel())
}

func createConfigFile(t *testing.T, content string) string {
	cfgpath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(cfgpath, []byte(content), 0o644))
	return cfgpath
}
