package runconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Precedence(t *testing.T) {
	t.Parallel()

	defaults := map[string]string{KeyPreprocessedRoot: "D"}

	t.Run("default only", func(t *testing.T) {
		cfg, err := Resolve(nil, nil, defaults, KeyPreprocessedRoot)
		require.NoError(t, err)
		assert.Equal(t, "D", cfg.Get(KeyPreprocessedRoot))
	})

	t.Run("environment beats default", func(t *testing.T) {
		environ := map[string]string{KeyPreprocessedRoot: "E"}
		cfg, err := Resolve(nil, environ, defaults, KeyPreprocessedRoot)
		require.NoError(t, err)
		assert.Equal(t, "E", cfg.Get(KeyPreprocessedRoot))
	})

	t.Run("explicit beats environment and default", func(t *testing.T) {
		environ := map[string]string{KeyPreprocessedRoot: "E"}
		explicit := map[string]string{KeyPreprocessedRoot: "X"}
		cfg, err := Resolve(explicit, environ, defaults, KeyPreprocessedRoot)
		require.NoError(t, err)
		assert.Equal(t, "X", cfg.Get(KeyPreprocessedRoot))
	})
}

func TestResolve_AllDefaults(t *testing.T) {
	t.Parallel()

	// With nothing set anywhere, the conventional paths and the empty
	// extra-args value must come through.
	cfg, err := Resolve(nil, nil, Defaults(),
		KeyRawDataRoot, KeyPreprocessedRoot, KeyExtraArgs)
	require.NoError(t, err)

	assert.Equal(t, "data/raw", cfg.Get(KeyRawDataRoot))
	assert.Equal(t, "data/preprocessed", cfg.Get(KeyPreprocessedRoot))
	assert.Equal(t, "", cfg.Get(KeyExtraArgs))
}

func TestResolve_MissingRequiredKey(t *testing.T) {
	t.Parallel()

	_, err := Resolve(nil, nil, nil, "NEVER_SUPPLIED")
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "NEVER_SUPPLIED", cfgErr.Key)
}

func TestResolve_UnknownEnvironmentVariablesIgnored(t *testing.T) {
	t.Parallel()

	environ := map[string]string{
		KeyRawDataRoot:   "/scratch/raw",
		"SOME_OTHER_VAR": "noise",
	}
	cfg, err := Resolve(nil, environ, Defaults(), KeyRawDataRoot)
	require.NoError(t, err)

	assert.Equal(t, "/scratch/raw", cfg.Get(KeyRawDataRoot))
	assert.NotContains(t, cfg, "SOME_OTHER_VAR")
}

func TestEnviron_DotenvNeverOverridesRealEnvironment(t *testing.T) {
	// t.Setenv is incompatible with t.Parallel.
	t.Setenv("RAW_DATA_ROOT", "/from/real/env")

	dotenv := filepath.Join(t.TempDir(), ".env")
	content := "RAW_DATA_ROOT=/from/file\nEXTRA_ARGS=--verbose\n"
	require.NoError(t, os.WriteFile(dotenv, []byte(content), 0o600))

	environ, err := Environ(dotenv)
	require.NoError(t, err)

	assert.Equal(t, "/from/real/env", environ["RAW_DATA_ROOT"])
	assert.Equal(t, "--verbose", environ["EXTRA_ARGS"])
}

func TestEnviron_MissingDotenvFileIsAnError(t *testing.T) {
	t.Parallel()

	_, err := Environ(filepath.Join(t.TempDir(), "does-not-exist.env"))
	require.Error(t, err)
}
