// Package profile loads the declarative job profile: an HCL file describing
// the job's environment, paths, invocation, and the scheduler directives the
// job was submitted with. Profile expressions can reference the process
// environment via `env` and the home directory via `home`.
package profile

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/prepflight/prepflight/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Defaults applied when the profile leaves a field unset.
const (
	DefaultInterpreter = "python3"
	DefaultLogDir      = "logs"
)

// DefaultSplits is the split list used when the profile declares none. Order
// is significant and preserved through to the subprocess arguments.
var DefaultSplits = []string{"train", "val"}

// Profile is the fully-validated job description.
type Profile struct {
	JobName     string
	Environment Environment
	Paths       Paths
	Invocation  Invocation
	Scheduler   *Scheduler
}

// Environment names the conda environment and its definition file.
type Environment struct {
	Name           string
	DefinitionFile string
}

// Paths holds the filesystem references of the job. RawRoot and OutputRoot
// are optional explicit overrides; when empty, the environment-variable and
// default layers of the runtime configuration apply instead.
type Paths struct {
	ConfigFile string
	RawRoot    string
	OutputRoot string
	LogDir     string
}

// Invocation describes how the preprocessing program is launched.
type Invocation struct {
	Interpreter string
	Script      string
	Splits      []string
	WorkDir     string
}

// Scheduler mirrors the batch-scheduler directives the job was submitted
// with. Purely informational: the launcher echoes them to the audit log and
// enforces nothing.
type Scheduler struct {
	Partition string
	GPUs      int
	CPUs      int
	Memory    string
	TimeLimit string
}

type fileHCL struct {
	Job *jobHCL `hcl:"job,block"`
}

type jobHCL struct {
	Name        string          `hcl:"name,label"`
	Environment *environmentHCL `hcl:"environment,block"`
	Paths       *pathsHCL       `hcl:"paths,block"`
	Invocation  *invocationHCL  `hcl:"invocation,block"`
	Scheduler   *schedulerHCL   `hcl:"scheduler,block"`
}

type environmentHCL struct {
	Name       string `hcl:"name"`
	Definition string `hcl:"definition"`
}

type pathsHCL struct {
	Config     string `hcl:"config"`
	RawRoot    string `hcl:"raw_root,optional"`
	OutputRoot string `hcl:"output_root,optional"`
	LogDir     string `hcl:"log_dir,optional"`
}

type invocationHCL struct {
	Interpreter string   `hcl:"interpreter,optional"`
	Script      string   `hcl:"script"`
	Splits      []string `hcl:"splits,optional"`
	WorkDir     string   `hcl:"workdir,optional"`
}

type schedulerHCL struct {
	Partition string `hcl:"partition,optional"`
	GPUs      int    `hcl:"gpus,optional"`
	CPUs      int    `hcl:"cpus,optional"`
	Memory    string `hcl:"memory,optional"`
	TimeLimit string `hcl:"time_limit,optional"`
}

// Load reads and decodes the profile at path. The environ snapshot is the
// same one the rest of configuration resolution uses; profile expressions see
// it as the `env` variable, so nothing here reads the process environment
// directly.
func Load(ctx context.Context, path string, environ map[string]string) (*Profile, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading job profile.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("profile: parse %s: %w", path, diags)
	}

	return decode(ctx, path, file.Body, environ)
}

// Parse decodes a profile from an in-memory HCL document. The filename is
// used for diagnostics only.
func Parse(ctx context.Context, filename string, src []byte, environ map[string]string) (*Profile, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("profile: parse %s: %w", filename, diags)
	}

	return decode(ctx, filename, file.Body, environ)
}

func decode(ctx context.Context, filename string, body hcl.Body, environ map[string]string) (*Profile, error) {
	logger := ctxlog.FromContext(ctx)

	var raw fileHCL
	if diags := gohcl.DecodeBody(body, evalContext(environ), &raw); diags.HasErrors() {
		return nil, fmt.Errorf("profile: decode %s: %w", filename, diags)
	}

	if raw.Job == nil {
		return nil, fmt.Errorf("profile: %s declares no job block", filename)
	}
	job := raw.Job
	if job.Environment == nil {
		return nil, fmt.Errorf("profile: job %q has no environment block", job.Name)
	}
	if job.Paths == nil {
		return nil, fmt.Errorf("profile: job %q has no paths block", job.Name)
	}
	if job.Invocation == nil {
		return nil, fmt.Errorf("profile: job %q has no invocation block", job.Name)
	}
	if job.Environment.Name == "" || job.Environment.Definition == "" {
		return nil, fmt.Errorf("profile: job %q environment block needs both name and definition", job.Name)
	}
	if job.Paths.Config == "" {
		return nil, fmt.Errorf("profile: job %q paths block needs a config file", job.Name)
	}
	if job.Invocation.Script == "" {
		return nil, fmt.Errorf("profile: job %q invocation block needs a script", job.Name)
	}

	p := &Profile{
		JobName: job.Name,
		Environment: Environment{
			Name:           job.Environment.Name,
			DefinitionFile: job.Environment.Definition,
		},
		Paths: Paths{
			ConfigFile: job.Paths.Config,
			RawRoot:    job.Paths.RawRoot,
			OutputRoot: job.Paths.OutputRoot,
			LogDir:     job.Paths.LogDir,
		},
		Invocation: Invocation{
			Interpreter: job.Invocation.Interpreter,
			Script:      job.Invocation.Script,
			Splits:      job.Invocation.Splits,
			WorkDir:     job.Invocation.WorkDir,
		},
	}

	if p.Invocation.Interpreter == "" {
		p.Invocation.Interpreter = DefaultInterpreter
	}
	if len(p.Invocation.Splits) == 0 {
		p.Invocation.Splits = append([]string(nil), DefaultSplits...)
	}
	if p.Paths.LogDir == "" {
		p.Paths.LogDir = DefaultLogDir
	}

	if job.Scheduler != nil {
		p.Scheduler = &Scheduler{
			Partition: job.Scheduler.Partition,
			GPUs:      job.Scheduler.GPUs,
			CPUs:      job.Scheduler.CPUs,
			Memory:    job.Scheduler.Memory,
			TimeLimit: job.Scheduler.TimeLimit,
		}
	}

	logger.Debug("Job profile loaded.", "job", p.JobName, "splits", strings.Join(p.Invocation.Splits, ","))
	return p, nil
}

// evalContext exposes the environment snapshot and home directory to profile
// expressions, e.g. raw_root = "${home}/datasets/raw".
func evalContext(environ map[string]string) *hcl.EvalContext {
	envVals := make(map[string]cty.Value, len(environ))
	for k, v := range environ {
		envVals[k] = cty.StringVal(v)
	}

	env := cty.MapValEmpty(cty.String)
	if len(envVals) > 0 {
		env = cty.MapVal(envVals)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env":  env,
			"home": cty.StringVal(home),
		},
	}
}
