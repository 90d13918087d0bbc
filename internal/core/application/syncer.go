package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/blocknetdx/xlited/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

const DefaultSyncInterval = int64(60)

// Syncer periodically updates the tx cache of every wallet.
type Syncer struct {
	scheduler ports.SchedulerService
	interval  int64
	wallets   []*Wallet

	lock      *sync.Mutex
	scheduled bool
	started   bool
}

func NewSyncer(
	scheduler ports.SchedulerService, interval int64, wallets ...*Wallet,
) (*Syncer, error) {
	if scheduler == nil {
		return nil, fmt.Errorf("missing scheduler")
	}
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &Syncer{
		scheduler: scheduler,
		interval:  interval,
		wallets:   wallets,
		lock:      &sync.Mutex{},
	}, nil
}

func (s *Syncer) Start() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.started {
		return nil
	}

	// Stopping the scheduler keeps its jobs, so the task is scheduled once.
	if !s.scheduled {
		startImmediately := true
		if err := s.scheduler.ScheduleTask(s.interval, startImmediately, func() {
			s.SyncAll(context.Background())
		}); err != nil {
			return err
		}
		s.scheduled = true
	}
	s.scheduler.Start()
	s.started = true

	log.Infof("started tx sync of %d wallets every %ds", len(s.wallets), s.interval)
	return nil
}

func (s *Syncer) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if !s.started {
		return
	}
	s.scheduler.Stop()
	s.started = false
}

// SyncAll updates the tx cache of every wallet and returns the tickers that
// actually fetched from their daemon.
func (s *Syncer) SyncAll(ctx context.Context) []string {
	updated := make([]string, 0, len(s.wallets))
	for _, w := range s.wallets {
		ok, err := w.UpdateTransactions(ctx)
		if err != nil {
			log.WithField("ticker", w.Ticker()).WithError(err).Warn("failed to update txs")
			continue
		}
		if ok {
			updated = append(updated, w.Ticker())
		}
	}
	if len(updated) > 0 {
		log.Debugf("updated txs of %v", updated)
	}
	return updated
}
