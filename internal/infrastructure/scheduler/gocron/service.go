package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/blocknetdx/xlited/internal/core/ports"
	"github.com/go-co-op/gocron"
)

type service struct {
	scheduler *gocron.Scheduler
	lock      *sync.Mutex
	started   bool
}

func NewScheduler() ports.SchedulerService {
	svc := gocron.NewScheduler(time.UTC)
	return &service{svc, &sync.Mutex{}, false}
}

func (s *service) Start() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.started {
		return
	}
	s.scheduler.StartAsync()
	s.started = true
}

func (s *service) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if !s.started {
		return
	}
	s.scheduler.Stop()
	s.started = false
}

// ScheduleTask runs task every interval seconds. A run is skipped while the
// previous one is still in progress.
func (s *service) ScheduleTask(interval int64, immediate bool, task func()) error {
	if interval <= 0 {
		return fmt.Errorf("invalid task interval %d, must be positive", interval)
	}
	if task == nil {
		return fmt.Errorf("missing task")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	job := s.scheduler.Every(int(interval)).Seconds().SingletonMode()
	if !immediate {
		job = job.WaitForSchedule()
	}
	if _, err := job.Do(task); err != nil {
		return fmt.Errorf("failed to schedule task: %w", err)
	}
	return nil
}
