// Package cli turns the launcher's command-line arguments (job profile path,
// dotenv file, dry-run and logging flags) into an app.Config, and owns the
// process-level exit contract: validation problems surface as an ExitError
// with code 2, and a failing preprocessing subprocess is reported through an
// ExitError carrying that subprocess's own exit code.
package cli
