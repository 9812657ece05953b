package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-scrum-client/internal/config"
	"github.com/Marga-Ghale/ora-scrum-client/internal/query"
)

func counter(n *int32, err error) func(context.Context) error {
	return func(ctx context.Context) error {
		atomic.AddInt32(n, 1)
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("job ran without a deadline")
		}
		return err
	}
}

func TestScheduledJobsRun(t *testing.T) {
	s := NewScheduler(zerolog.Nop(), nil)
	var n int32
	require.NoError(t, s.Add(Job{Name: "tick", Interval: time.Second, Run: counter(&n, nil)}))

	s.Start()
	defer s.Stop()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&n) >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestAddRejectsDuplicatesAndBadIntervals(t *testing.T) {
	s := NewScheduler(zerolog.Nop(), nil)
	var n int32
	require.NoError(t, s.Add(Job{Name: "a", Interval: time.Minute, Run: counter(&n, nil)}))
	assert.Error(t, s.Add(Job{Name: "a", Interval: time.Minute, Run: counter(&n, nil)}))
	assert.Error(t, s.Add(Job{Name: "b", Run: counter(&n, nil)}))
	assert.Equal(t, []string{"a"}, s.Jobs())
}

func TestManualTrigger(t *testing.T) {
	s := NewScheduler(zerolog.Nop(), nil)
	var a, b int32
	boom := errors.New("boom")
	require.NoError(t, s.Add(Job{Name: "a", Interval: time.Hour, Run: counter(&a, nil)}))
	require.NoError(t, s.Add(Job{Name: "b", Interval: time.Hour, Run: counter(&b, boom)}))

	require.NoError(t, s.ManualTrigger("a"))
	assert.ErrorIs(t, s.ManualTrigger("b"), boom)
	assert.ErrorIs(t, s.ManualTrigger("all"), boom)
	assert.Error(t, s.ManualTrigger("nope"))

	assert.EqualValues(t, 2, atomic.LoadInt32(&a))
	assert.EqualValues(t, 2, atomic.LoadInt32(&b))
}

func TestInactiveSchedulerSkipsJobs(t *testing.T) {
	var active atomic.Bool
	s := NewScheduler(zerolog.Nop(), active.Load)
	var n int32
	require.NoError(t, s.Add(Job{Name: "a", Interval: time.Hour, Run: counter(&n, nil)}))

	require.NoError(t, s.ManualTrigger("a"))
	assert.Zero(t, atomic.LoadInt32(&n))

	active.Store(true)
	require.NoError(t, s.ManualTrigger("a"))
	assert.EqualValues(t, 1, atomic.LoadInt32(&n))
}

func TestPollJobsFollowConfig(t *testing.T) {
	c := query.New(nil, nil, zerolog.Nop())
	cfg := &config.Config{
		NotificationCountInterval: 15 * time.Second,
		NotificationListInterval:  30 * time.Second,
	}

	jobs := PollJobs(c, cfg)
	require.Len(t, jobs, 2)
	assert.Equal(t, "notification_count", jobs[0].Name)
	assert.Equal(t, 15*time.Second, jobs[0].Interval)
	assert.Equal(t, "notification_list", jobs[1].Name)
}
