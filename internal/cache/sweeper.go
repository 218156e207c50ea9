package cache

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper runs Cache.Sweep on a fixed interval, independent of read traffic.
type Sweeper struct {
	cache    *Cache
	interval time.Duration
	log      *logrus.Logger
	stopChan chan struct{}
}

// NewSweeper creates a sweeper for the given cache.
func NewSweeper(cache *Cache, interval time.Duration, log *logrus.Logger) *Sweeper {
	return &Sweeper{
		cache:    cache,
		interval: interval,
		log:      log,
		stopChan: make(chan struct{}),
	}
}

// Start begins periodic sweeping in a background goroutine.
func (s *Sweeper) Start() {
	ticker := time.NewTicker(s.interval)

	go func() {
		for {
			select {
			case <-ticker.C:
				if removed := s.cache.Sweep(); removed > 0 {
					s.log.WithField("removed", removed).Debug("cache sweep complete")
				}
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	s.log.WithField("interval", s.interval).Info("cache sweeper started")
}

// Stop halts periodic sweeping.
func (s *Sweeper) Stop() {
	close(s.stopChan)
	s.log.Info("cache sweeper stopped")
}
