package gpu

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	out []byte
	err error
}

func (s *stubRunner) Run(context.Context, string, ...string) ([]byte, error) {
	return s.out, s.err
}

func TestParseDeviceList(t *testing.T) {
	t.Parallel()

	t.Run("single device", func(t *testing.T) {
		devices, err := ParseDeviceList([]byte("0, NVIDIA A100-SXM4-40GB, 40960\n"))
		require.NoError(t, err)
		require.Len(t, devices, 1)
		assert.Equal(t, DeviceInfo{Index: 0, Name: "NVIDIA A100-SXM4-40GB", MemoryMiB: 40960}, devices[0])
	})

	t.Run("multiple devices", func(t *testing.T) {
		out := "0, Tesla V100-PCIE-16GB, 16384\n1, Tesla V100-PCIE-16GB, 16384\n"
		devices, err := ParseDeviceList([]byte(out))
		require.NoError(t, err)
		require.Len(t, devices, 2)
		assert.Equal(t, 1, devices[1].Index)
	})

	t.Run("empty output", func(t *testing.T) {
		devices, err := ParseDeviceList(nil)
		require.NoError(t, err)
		assert.Empty(t, devices)
	})

	t.Run("garbage index", func(t *testing.T) {
		_, err := ParseDeviceList([]byte("x, Tesla, 16384\n"))
		require.Error(t, err)
	})
}

func TestCheck(t *testing.T) {
	t.Parallel()

	t.Run("reports visible devices", func(t *testing.T) {
		v := &Validator{
			Runner: &stubRunner{out: []byte("0, NVIDIA A100-SXM4-40GB, 40960\n")},
			Binary: "nvidia-smi",
		}
		devices, err := v.Check(context.Background())
		require.NoError(t, err)
		require.Len(t, devices, 1)
	})

	t.Run("query failure is fatal", func(t *testing.T) {
		v := &Validator{
			Runner: &stubRunner{out: []byte("NVIDIA-SMI has failed"), err: errors.New("exit status 9")},
			Binary: "nvidia-smi",
		}
		_, err := v.Check(context.Background())
		require.Error(t, err)

		var valErr *ValidationError
		require.ErrorAs(t, err, &valErr)
		assert.Contains(t, valErr.Error(), "exit status 9")
	})

	t.Run("zero devices is fatal", func(t *testing.T) {
		v := &Validator{Runner: &stubRunner{out: nil}, Binary: "nvidia-smi"}
		_, err := v.Check(context.Background())

		var valErr *ValidationError
		require.ErrorAs(t, err, &valErr)
		assert.Contains(t, valErr.Error(), "no accelerator devices visible")
	})
}
