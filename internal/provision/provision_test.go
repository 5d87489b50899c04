package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRunner records every command it is asked to run and answers each call
// from a scripted list of results.
type stubRunner struct {
	calls   [][]string
	results []stubResult
}

type stubResult struct {
	out []byte
	err error
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	s.calls = append(s.calls, append([]string{name}, args...))
	if len(s.results) == 0 {
		return nil, nil
	}
	res := s.results[0]
	s.results = s.results[1:]
	return res.out, res.err
}

func (s *stubRunner) verb(i int) string {
	// calls look like: conda env <verb> --name ... --file ...
	return s.calls[i][2]
}

func writeDefinition(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "environment.yml")
	content := fmt.Sprintf("name: %s\ndependencies:\n  - python=3.10\n  - pytorch\n", name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestEnsure_UpdateSucceeds(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{}
	p := &CondaProvisioner{Runner: runner, Binary: "conda"}
	spec := Spec{Name: "magno-prep", DefinitionFile: writeDefinition(t, "magno-prep")}

	err := p.Ensure(context.Background(), spec)
	require.NoError(t, err)

	// Idempotent path: the cheap update is the only attempt; create never runs.
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "update", runner.verb(0))
	assert.Contains(t, runner.calls[0], "--prune")
	assert.Contains(t, runner.calls[0], "magno-prep")
}

func TestEnsure_UpdateFailsCreateSucceeds(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{results: []stubResult{
		{out: []byte("EnvironmentNotFound"), err: errors.New("exit status 1")},
		{out: nil, err: nil},
	}}
	p := &CondaProvisioner{Runner: runner, Binary: "conda"}
	spec := Spec{Name: "magno-prep", DefinitionFile: writeDefinition(t, "magno-prep")}

	err := p.Ensure(context.Background(), spec)
	require.NoError(t, err)

	require.Len(t, runner.calls, 2)
	assert.Equal(t, "update", runner.verb(0))
	assert.Equal(t, "create", runner.verb(1))
}

func TestEnsure_BothAttemptsFail(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{results: []stubResult{
		{out: []byte("update boom"), err: errors.New("exit status 1")},
		{out: []byte("create boom"), err: errors.New("exit status 2")},
	}}
	p := &CondaProvisioner{Runner: runner, Binary: "conda"}
	spec := Spec{Name: "magno-prep", DefinitionFile: writeDefinition(t, "magno-prep")}

	err := p.Ensure(context.Background(), spec)
	require.Error(t, err)

	var provErr *ProvisionError
	require.ErrorAs(t, err, &provErr)
	assert.Contains(t, provErr.UpdateErr.Error(), "exit status 1")
	assert.Contains(t, provErr.CreateErr.Error(), "exit status 2")

	// Create is attempted exactly once; there is no further fallback.
	require.Len(t, runner.calls, 2)
}

func TestEnsure_DefinitionNameMismatchIsNotFatal(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{}
	p := &CondaProvisioner{Runner: runner, Binary: "conda"}
	spec := Spec{Name: "magno-prep", DefinitionFile: writeDefinition(t, "something-else")}

	// The definition declares a different name; that is logged, not fatal.
	err := p.Ensure(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, runner.calls, 1)
}

func TestEnsure_RejectsEmptySpec(t *testing.T) {
	t.Parallel()

	p := &CondaProvisioner{Runner: &stubRunner{}, Binary: "conda"}

	err := p.Ensure(context.Background(), Spec{DefinitionFile: "environment.yml"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "name"))

	err = p.Ensure(context.Background(), Spec{Name: "magno-prep"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "definition"))
}
