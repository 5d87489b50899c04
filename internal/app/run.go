package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/prepflight/prepflight/internal/ctxlog"
	"github.com/prepflight/prepflight/internal/invoke"
	"github.com/prepflight/prepflight/internal/jobinfo"
	"github.com/prepflight/prepflight/internal/pipeline"
	"github.com/prepflight/prepflight/internal/provision"
	"github.com/prepflight/prepflight/internal/runconfig"
	"github.com/prepflight/prepflight/internal/workspace"
)

// Run executes the launch sequence: report job context, provision the
// environment, validate the accelerator, prepare directories, assemble the
// invocation, and launch the preprocessing subprocess. Every stage is
// fail-fast; the first error ends the run and is reported in the completion
// record.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	job := jobinfo.Capture(a.environ)
	job.LogStart(ctx)
	a.logSchedulerDirectives(ctx)

	// Configuration is resolved once, up front, from the snapshot captured at
	// startup. The profile's path overrides form the explicit layer.
	resolved, err := runconfig.Resolve(a.explicitParams(), a.environ, runconfig.Defaults(),
		runconfig.KeyRawDataRoot,
		runconfig.KeyPreprocessedRoot,
		runconfig.KeyExtraArgs,
	)
	if err != nil {
		job.Finish(ctx, err)
		return err
	}

	spec := invoke.Spec{
		Interpreter: a.profile.Invocation.Interpreter,
		Script:      a.profile.Invocation.Script,
		ConfigFile:  a.profile.Paths.ConfigFile,
		RawRoot:     resolved.Get(runconfig.KeyRawDataRoot),
		OutputRoot:  resolved.Get(runconfig.KeyPreprocessedRoot),
		Splits:      a.profile.Invocation.Splits,
		ExtraArgs:   resolved.Get(runconfig.KeyExtraArgs),
		WorkDir:     a.profile.Invocation.WorkDir,
	}

	runErr := pipeline.Run(ctx, a.stages(spec))
	job.Finish(ctx, runErr)
	return runErr
}

// stages builds the ordered launch sequence for the given invocation. In
// dry-run mode only the assembly stage runs: the argv is validated and
// printed, nothing external is touched.
func (a *App) stages(spec invoke.Spec) []pipeline.Stage {
	assemble := pipeline.Stage{
		Name: "assemble-invocation",
		Run: func(ctx context.Context) error {
			args, err := spec.BuildArgs()
			if err != nil {
				return err
			}
			argv := spec.Interpreter + " " + strings.Join(args, " ")
			ctxlog.FromContext(ctx).Info("Invocation assembled.", "argv", argv)
			if a.config.DryRun {
				fmt.Fprintln(a.outW, argv)
			}
			return nil
		},
	}

	if a.config.DryRun {
		return []pipeline.Stage{assemble}
	}

	return []pipeline.Stage{
		{
			Name: "provision-environment",
			Run: func(ctx context.Context) error {
				return a.provisioner.Ensure(ctx, provision.Spec{
					Name:           a.profile.Environment.Name,
					DefinitionFile: a.profile.Environment.DefinitionFile,
				})
			},
		},
		{
			Name: "validate-accelerator",
			Run: func(ctx context.Context) error {
				_, err := a.validator.Check(ctx)
				return err
			},
		},
		{
			Name: "prepare-directories",
			Run: func(ctx context.Context) error {
				return workspace.EnsureDirs(ctx, a.profile.Paths.LogDir, spec.OutputRoot)
			},
		},
		assemble,
		{
			Name: "run-preprocess",
			Run: func(ctx context.Context) error {
				return a.invoker(ctx, spec, a.outW, a.outW)
			},
		},
	}
}

// explicitParams lifts the profile's optional path overrides into the
// explicit configuration layer. Unset fields are omitted entirely so the
// environment and default layers stay reachable.
func (a *App) explicitParams() map[string]string {
	explicit := make(map[string]string)
	if a.profile.Paths.RawRoot != "" {
		explicit[runconfig.KeyRawDataRoot] = a.profile.Paths.RawRoot
	}
	if a.profile.Paths.OutputRoot != "" {
		explicit[runconfig.KeyPreprocessedRoot] = a.profile.Paths.OutputRoot
	}
	return explicit
}

// logSchedulerDirectives echoes the reservation the job was submitted with,
// so the audit log records what the job believed it had. Nothing is enforced
// here; the batch scheduler owns the actual reservation.
func (a *App) logSchedulerDirectives(ctx context.Context) {
	sched := a.profile.Scheduler
	if sched == nil {
		return
	}
	ctxlog.FromContext(ctx).Info("Scheduler directives.",
		"partition", sched.Partition,
		"gpus", sched.GPUs,
		"cpus", sched.CPUs,
		"memory", sched.Memory,
		"time_limit", sched.TimeLimit,
	)
}
