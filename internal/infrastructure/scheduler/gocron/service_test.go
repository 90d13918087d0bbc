package scheduler_test

import (
	"sync/atomic"
	"testing"
	"time"

	scheduler "github.com/blocknetdx/xlited/internal/infrastructure/scheduler/gocron"
	"github.com/stretchr/testify/require"
)

func TestScheduleTask(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		svc := scheduler.NewScheduler()

		var count int32
		err := svc.ScheduleTask(1, true, func() {
			atomic.AddInt32(&count, 1)
		})
		require.NoError(t, err)

		svc.Start()
		defer svc.Stop()

		require.Eventually(t, func() bool {
			return atomic.LoadInt32(&count) >= 1
		}, 5*time.Second, 50*time.Millisecond)
	})

	t.Run("invalid", func(t *testing.T) {
		svc := scheduler.NewScheduler()

		err := svc.ScheduleTask(0, true, func() {})
		require.Error(t, err)

		err = svc.ScheduleTask(10, false, nil)
		require.Error(t, err)
	})
}
