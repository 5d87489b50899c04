// Package gpu verifies that the accelerator the preprocessing subprocess
// depends on is actually visible to this process. The check is a gate plus
// advisory logging; it does not select or pin a device.
package gpu

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/prepflight/prepflight/internal/cmdrun"
	"github.com/prepflight/prepflight/internal/ctxlog"
)

// DefaultBinary is the device query tool used when none is configured.
const DefaultBinary = "nvidia-smi"

// DeviceInfo describes one visible accelerator.
type DeviceInfo struct {
	Index     int
	Name      string
	MemoryMiB int
}

// ValidationError means the accelerator subsystem could not be queried or
// reported no devices. It is always fatal for the pipeline.
type ValidationError struct {
	Cause error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("gpu: accelerator validation failed: %v", e.Cause)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// Validator queries the accelerator subsystem through an injectable runner.
type Validator struct {
	Runner cmdrun.Runner
	Binary string
}

// NewValidator returns a Validator backed by the real query binary.
func NewValidator(runner cmdrun.Runner) *Validator {
	return &Validator{Runner: runner, Binary: DefaultBinary}
}

// Check queries the visible devices and logs each one. Zero devices, or any
// failure to run or parse the query, is a ValidationError.
func (v *Validator) Check(ctx context.Context) ([]DeviceInfo, error) {
	logger := ctxlog.FromContext(ctx)

	out, err := v.Runner.Run(ctx, v.Binary,
		"--query-gpu=index,name,memory.total",
		"--format=csv,noheader,nounits",
	)
	if err != nil {
		return nil, &ValidationError{Cause: fmt.Errorf("query %s: %w (output: %s)", v.Binary, err, strings.TrimSpace(string(out)))}
	}

	devices, err := ParseDeviceList(out)
	if err != nil {
		return nil, &ValidationError{Cause: err}
	}
	if len(devices) == 0 {
		return nil, &ValidationError{Cause: fmt.Errorf("no accelerator devices visible")}
	}

	for _, d := range devices {
		logger.Info("Accelerator visible.",
			"index", d.Index,
			"name", d.Name,
			"memory_mib", d.MemoryMiB,
		)
	}

	return devices, nil
}

// ParseDeviceList parses the CSV device listing produced by the query tool
// (index, name, memory.total with noheader,nounits).
func ParseDeviceList(out []byte) ([]DeviceInfo, error) {
	reader := csv.NewReader(bytes.NewReader(out))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = 3

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse device listing: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(records))
	for _, rec := range records {
		index, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("parse device index %q: %w", rec[0], err)
		}
		memory, err := strconv.Atoi(strings.TrimSpace(rec[2]))
		if err != nil {
			return nil, fmt.Errorf("parse device memory %q: %w", rec[2], err)
		}
		devices = append(devices, DeviceInfo{
			Index:     index,
			Name:      strings.TrimSpace(rec[1]),
			MemoryMiB: memory,
		})
	}

	return devices, nil
}
