// Package runconfig resolves the runtime configuration for a launch. Values
// are merged from three layers in increasing priority: built-in defaults,
// environment-variable overrides, and explicit parameters from the job
// profile. Resolution is a pure function over a captured environment snapshot
// so it can be evaluated once at startup and tested in isolation.
package runconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Keys understood by the launcher. Unknown environment variables are ignored.
const (
	KeyRawDataRoot      = "RAW_DATA_ROOT"
	KeyPreprocessedRoot = "PREPROCESSED_ROOT"
	KeyExtraArgs        = "EXTRA_ARGS"
)

// Defaults returns the built-in lowest-priority layer. The two path defaults
// are the conventional dataset locations relative to the working directory.
func Defaults() map[string]string {
	return map[string]string{
		KeyRawDataRoot:      "data/raw",
		KeyPreprocessedRoot: "data/preprocessed",
		KeyExtraArgs:        "",
	}
}

// Config is a fully-resolved runtime configuration.
type Config map[string]string

// Get returns the resolved value for key. The key must have been resolved;
// Resolve guarantees that for every required key.
func (c Config) Get(key string) string {
	return c[key]
}

// ConfigError reports a required key that no layer could resolve.
type ConfigError struct {
	Key string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("runconfig: required key %q has no resolved value", e.Key)
}

// Environ captures the process environment as a map. When dotenvPath is
// non-empty the file is read and merged in, but a variable already exported
// in the real environment always wins over the file.
func Environ(dotenvPath string) (map[string]string, error) {
	env := make(map[string]string)

	if dotenvPath != "" {
		fileVars, err := godotenv.Read(dotenvPath)
		if err != nil {
			return nil, fmt.Errorf("runconfig: read env file %s: %w", dotenvPath, err)
		}
		for k, v := range fileVars {
			env[k] = v
		}
	}

	for _, entry := range os.Environ() {
		if k, v, ok := strings.Cut(entry, "="); ok {
			env[k] = v
		}
	}

	return env, nil
}

// Resolve merges the three configuration layers. For each key the explicit
// value wins, then the environment snapshot, then the default. Every key
// listed in required must end up with a value (empty string counts, if a
// layer supplied it); a key nobody supplies is a ConfigError. Environment
// variables outside the known key set are ignored.
func Resolve(explicit, environ, defaults map[string]string, required ...string) (Config, error) {
	resolved := make(Config, len(defaults)+len(explicit))

	keys := make(map[string]struct{}, len(defaults)+len(explicit)+len(required))
	for k := range defaults {
		keys[k] = struct{}{}
	}
	for k := range explicit {
		keys[k] = struct{}{}
	}
	for _, k := range required {
		keys[k] = struct{}{}
	}

	for k := range keys {
		if v, ok := explicit[k]; ok {
			resolved[k] = v
			continue
		}
		if v, ok := environ[k]; ok {
			resolved[k] = v
			continue
		}
		if v, ok := defaults[k]; ok {
			resolved[k] = v
		}
	}

	for _, k := range required {
		if _, ok := resolved[k]; !ok {
			return nil, &ConfigError{Key: k}
		}
	}

	return resolved, nil
}
