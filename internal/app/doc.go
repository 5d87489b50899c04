// Package app wires the launcher together: it owns the logger, loads the job
// profile, resolves the runtime configuration, and runs the launch stages in
// order through the pipeline package.
package app
