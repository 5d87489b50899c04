// Package provision ensures the named conda environment the preprocessing
// subprocess runs under exists and matches its declarative definition.
//
// The environment is shared, process-external state keyed by name; it is not
// namespaced per job. Concurrent jobs provisioning the same name can race,
// so the external scheduler must serialize jobs that share an environment.
package provision

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/prepflight/prepflight/internal/cmdrun"
	"github.com/prepflight/prepflight/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// DefaultBinary is the environment manager invoked when none is configured.
const DefaultBinary = "conda"

// Spec names the environment and points at its declarative definition file.
type Spec struct {
	Name           string
	DefinitionFile string
}

// ProvisionError means both the update and the create attempt failed; there
// is no further fallback. Both underlying errors are retained.
type ProvisionError struct {
	Spec      Spec
	UpdateErr error
	CreateErr error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision: environment %q: update failed (%v); create failed (%v)",
		e.Spec.Name, e.UpdateErr, e.CreateErr)
}

// Unwrap exposes both underlying errors for errors.Is/As.
func (e *ProvisionError) Unwrap() []error {
	return []error{e.UpdateErr, e.CreateErr}
}

// Provisioner ensures an environment exists and is current. Implementations
// must be idempotent: ensuring an already-current environment succeeds.
type Provisioner interface {
	Ensure(ctx context.Context, spec Spec) error
}

// CondaProvisioner provisions through the conda CLI via an injectable runner.
type CondaProvisioner struct {
	Runner cmdrun.Runner
	Binary string
}

// NewCondaProvisioner returns a provisioner backed by the real conda binary.
func NewCondaProvisioner(runner cmdrun.Runner) *CondaProvisioner {
	return &CondaProvisioner{Runner: runner, Binary: DefaultBinary}
}

// Ensure updates the named environment from its definition, falling back to a
// single create attempt when the update fails (absent environment, or a
// definition the existing environment cannot be updated to). The two failure
// causes are logged separately but treated identically: if create also fails
// the operation is fatal.
func (p *CondaProvisioner) Ensure(ctx context.Context, spec Spec) error {
	logger := ctxlog.FromContext(ctx)

	if spec.Name == "" {
		return fmt.Errorf("provision: environment name is empty")
	}
	if spec.DefinitionFile == "" {
		return fmt.Errorf("provision: environment definition file is empty")
	}

	p.checkDefinitionName(ctx, spec)

	logger.Info("Updating environment.", "name", spec.Name, "definition", spec.DefinitionFile)
	updateOut, updateErr := p.Runner.Run(ctx, p.Binary,
		"env", "update", "--name", spec.Name, "--file", spec.DefinitionFile, "--prune")
	if updateErr == nil {
		logger.Info("Environment updated.", "name", spec.Name)
		return nil
	}

	logger.Warn("Environment update failed, attempting create.",
		"name", spec.Name,
		"error", updateErr,
		"output", tail(updateOut),
	)

	createOut, createErr := p.Runner.Run(ctx, p.Binary,
		"env", "create", "--name", spec.Name, "--file", spec.DefinitionFile)
	if createErr == nil {
		logger.Info("Environment created.", "name", spec.Name)
		return nil
	}

	logger.Error("Environment create failed.",
		"name", spec.Name,
		"error", createErr,
		"output", tail(createOut),
	)

	return &ProvisionError{
		Spec:      spec,
		UpdateErr: fmt.Errorf("update: %w", updateErr),
		CreateErr: fmt.Errorf("create: %w", createErr),
	}
}

// checkDefinitionName warns when the definition file declares a different
// environment name than the one being provisioned. Advisory only: conda's
// --name flag overrides the file's name, so a mismatch is suspicious but not
// fatal, and an unreadable file will fail properly in the update/create step.
func (p *CondaProvisioner) checkDefinitionName(ctx context.Context, spec Spec) {
	logger := ctxlog.FromContext(ctx)

	raw, err := os.ReadFile(spec.DefinitionFile)
	if err != nil {
		logger.Warn("Could not read environment definition for name check.",
			"definition", spec.DefinitionFile,
			"error", err,
		)
		return
	}

	var def struct {
		Name string `yaml:"name"`
	}
	if err := yaml.Unmarshal(raw, &def); err != nil {
		logger.Warn("Could not parse environment definition for name check.",
			"definition", spec.DefinitionFile,
			"error", err,
		)
		return
	}

	if def.Name != "" && def.Name != spec.Name {
		logger.Warn("Environment definition declares a different name.",
			"definition_name", def.Name,
			"provisioned_name", spec.Name,
		)
	}
}

// tail trims command output for a log attribute.
func tail(out []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(out))
	if len(s) > limit {
		s = "..." + s[len(s)-limit:]
	}
	return s
}
