package background

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTrigger(t *testing.T) *CronTrigger {
	t.Helper()
	trigger, err := NewCronTrigger(context.Background(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = trigger.Shutdown() })
	return trigger
}

func TestCronTrigger_ConfigureValidation(t *testing.T) {
	trigger := newTrigger(t)

	assert.ErrorIs(t, trigger.Configure(15*time.Minute, true, nil), ErrConfiguration)
	assert.ErrorIs(t, trigger.Configure(0, true, func(context.Context, string) {}), ErrConfiguration)
	assert.ErrorIs(t, trigger.Start(), ErrConfiguration, "Start before Configure is a configuration error")

	require.NoError(t, trigger.Configure(15*time.Minute, true, func(context.Context, string) {}))
	assert.True(t, trigger.PersistsAcrossRestart())
}

func TestCronTrigger_StartStop(t *testing.T) {
	trigger := newTrigger(t)
	require.NoError(t, trigger.Configure(15*time.Minute, false, func(context.Context, string) {}))

	require.NoError(t, trigger.Start())
	require.NoError(t, trigger.Start(), "Start is idempotent")
	assert.True(t, trigger.Running())
	assert.Len(t, trigger.scheduler.Jobs(), 1)

	assert.ErrorIs(t, trigger.Configure(time.Minute, false, func(context.Context, string) {}), ErrConfiguration,
		"running trigger cannot be reconfigured")

	require.NoError(t, trigger.Stop())
	require.NoError(t, trigger.Stop(), "Stop is idempotent")
	assert.False(t, trigger.Running())
	assert.Eventually(t, func() bool { return len(trigger.scheduler.Jobs()) == 0 }, time.Second, 10*time.Millisecond)
}

func TestCronTrigger_FireAndFinish(t *testing.T) {
	trigger := newTrigger(t)

	var seen []string
	require.NoError(t, trigger.Configure(15*time.Minute, true, func(ctx context.Context, taskID string) {
		seen = append(seen, taskID)
		assert.NoError(t, trigger.Finish(taskID))
	}))
	require.NoError(t, trigger.Start())

	trigger.fire()
	trigger.fire()

	require.Len(t, seen, 2)
	assert.NotEqual(t, seen[0], seen[1], "each wake-up gets its own task id")
	assert.True(t, trigger.Running())
	assert.NoError(t, trigger.Err())
	assert.Empty(t, trigger.pending)
}

func TestCronTrigger_UnfinishedTaskIsFatal(t *testing.T) {
	trigger := newTrigger(t)

	calls := 0
	require.NoError(t, trigger.Configure(15*time.Minute, true, func(context.Context, string) {
		calls++
	}))
	require.NoError(t, trigger.Start())

	trigger.fire()

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, trigger.Err(), ErrConfiguration)
	assert.False(t, trigger.Running(), "trigger is disarmed after a missing Finish")
	assert.ErrorIs(t, trigger.Start(), ErrConfiguration, "fatal errors are not retried")
}

func TestCronTrigger_FinishUnknownTask(t *testing.T) {
	trigger := newTrigger(t)
	assert.ErrorIs(t, trigger.Finish("nope"), ErrConfiguration)
}
