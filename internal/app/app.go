package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prepflight/prepflight/internal/cmdrun"
	"github.com/prepflight/prepflight/internal/ctxlog"
	"github.com/prepflight/prepflight/internal/gpu"
	"github.com/prepflight/prepflight/internal/invoke"
	"github.com/prepflight/prepflight/internal/profile"
	"github.com/prepflight/prepflight/internal/provision"
	"github.com/prepflight/prepflight/internal/runconfig"
)

// InvokeFunc launches the preprocessing subprocess. Substituted in tests.
type InvokeFunc func(ctx context.Context, spec invoke.Spec, stdout, stderr io.Writer) error

// App encapsulates the launcher's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	environ map[string]string

	profile     *profile.Profile
	provisioner provision.Provisioner
	validator   *gpu.Validator
	invoker     InvokeFunc
}

// Option overrides one of the App's external collaborators, so tests can
// substitute stub provisioners, validators, or invokers.
type Option func(*App)

// WithProvisioner replaces the conda-backed environment provisioner.
func WithProvisioner(p provision.Provisioner) Option {
	return func(a *App) { a.provisioner = p }
}

// WithDeviceValidator replaces the nvidia-smi-backed accelerator validator.
func WithDeviceValidator(v *gpu.Validator) Option {
	return func(a *App) { a.validator = v }
}

// WithInvoker replaces the subprocess launcher.
func WithInvoker(fn InvokeFunc) Option {
	return func(a *App) { a.invoker = fn }
}

// NewApp is the constructor for the launcher. It builds the App's isolated
// logger, captures the environment snapshot, and loads the job profile; a
// snapshot or profile that cannot be loaded is a fatal startup error, so it
// panics (the caller recovers and reports it). The snapshot is taken exactly
// once here and reused for profile interpolation, job identity, and
// configuration resolution.
func NewApp(outW io.Writer, appConfig *Config, opts ...Option) *App {
	logger := newLogger(appConfig, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	environ, err := runconfig.Environ(appConfig.EnvFile)
	if err != nil {
		panic(fmt.Errorf("failed to capture environment snapshot: %w", err))
	}

	jobProfile, err := profile.Load(ctx, appConfig.ProfilePath, environ)
	if err != nil {
		// A failure to load the profile is a fatal startup error.
		panic(fmt.Errorf("failed to load job profile: %w", err))
	}
	logger.Debug("Job profile loaded.", "job", jobProfile.JobName)

	runner := cmdrun.ExecRunner{}
	a := &App{
		outW:        outW,
		logger:      logger,
		config:      appConfig,
		environ:     environ,
		profile:     jobProfile,
		provisioner: provision.NewCondaProvisioner(runner),
		validator:   gpu.NewValidator(runner),
		invoker:     invoke.Run,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Profile returns the loaded job profile. This is primarily for testing.
func (a *App) Profile() *profile.Profile {
	return a.profile
}
