package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koshlabs/kosh/pkg/logger"
)

type countingJob struct {
	runs int64
	err  error
}

func (j *countingJob) Run() error {
	atomic.AddInt64(&j.runs, 1)
	return j.err
}

func (j *countingJob) Name() string { return "counting" }

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := New(logger.New(logger.Config{Level: "error"}))

	err := s.AddJob("not a schedule", &countingJob{})
	assert.Error(t, err)
}

func TestScheduler_RunsJobOnSchedule(t *testing.T) {
	s := New(logger.New(logger.Config{Level: "error"}))

	job := &countingJob{}
	require.NoError(t, s.AddJob("@every 10ms", job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&job.runs) >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunNow(t *testing.T) {
	s := New(logger.New(logger.Config{Level: "error"}))

	job := &countingJob{}
	require.NoError(t, s.RunNow(job))
	assert.Equal(t, int64(1), atomic.LoadInt64(&job.runs))

	failing := &countingJob{err: errors.New("boom")}
	assert.Error(t, s.RunNow(failing))
}
