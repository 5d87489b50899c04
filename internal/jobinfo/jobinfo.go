// Package jobinfo captures and reports the identifying metadata of one job
// instance for the audit log: job id, host, and start/end timestamps.
package jobinfo

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prepflight/prepflight/internal/ctxlog"
)

// Environment variables consulted for the job id, in priority order. The
// first belongs to the batch scheduler; the second lets a manual run pick its
// own id. With neither set a fresh UUID is generated.
const (
	EnvSchedulerJobID = "SLURM_JOB_ID"
	EnvLauncherJobID  = "PREPFLIGHT_JOB_ID"
)

// Context identifies one job instance. It is created at launch and read-only
// afterwards, except for Finish stamping the end time.
type Context struct {
	JobID     string
	Host      string
	StartTime time.Time
	EndTime   time.Time
}

// Capture builds the job context from an environment snapshot.
func Capture(environ map[string]string) *Context {
	jobID := environ[EnvSchedulerJobID]
	if jobID == "" {
		jobID = environ[EnvLauncherJobID]
	}
	if jobID == "" {
		jobID = uuid.NewString()
	}

	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	return &Context{
		JobID:     jobID,
		Host:      host,
		StartTime: time.Now(),
	}
}

// LogStart emits the launch banner.
func (c *Context) LogStart(ctx context.Context) {
	ctxlog.FromContext(ctx).Info("Job starting.",
		"job_id", c.JobID,
		"host", c.Host,
		"start_time", c.StartTime.Format(time.RFC3339),
	)
}

// Finish stamps the end time and emits the completion record. A nil runErr
// means the whole pipeline succeeded.
func (c *Context) Finish(ctx context.Context, runErr error) {
	c.EndTime = time.Now()
	logger := ctxlog.FromContext(ctx)

	attrs := []any{
		"job_id", c.JobID,
		"host", c.Host,
		"end_time", c.EndTime.Format(time.RFC3339),
		"elapsed", c.EndTime.Sub(c.StartTime).Round(time.Second),
	}

	if runErr != nil {
		logger.Error("Job failed.", append(attrs, "error", runErr)...)
		return
	}
	logger.Info("Job completed.", attrs...)
}
