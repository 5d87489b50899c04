package jobinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture_JobIDPriority(t *testing.T) {
	t.Parallel()

	t.Run("scheduler id wins", func(t *testing.T) {
		c := Capture(map[string]string{
			EnvSchedulerJobID: "4242",
			EnvLauncherJobID:  "manual-7",
		})
		assert.Equal(t, "4242", c.JobID)
	})

	t.Run("launcher id as fallback", func(t *testing.T) {
		c := Capture(map[string]string{EnvLauncherJobID: "manual-7"})
		assert.Equal(t, "manual-7", c.JobID)
	})

	t.Run("generated id when nothing is set", func(t *testing.T) {
		c := Capture(nil)
		assert.NotEmpty(t, c.JobID)

		other := Capture(nil)
		assert.NotEqual(t, c.JobID, other.JobID)
	})
}

func TestCapture_StampsStartTime(t *testing.T) {
	t.Parallel()

	c := Capture(nil)
	require.False(t, c.StartTime.IsZero())
	assert.True(t, c.EndTime.IsZero(), "end time is only stamped by Finish")
	assert.NotEmpty(t, c.Host)
}
