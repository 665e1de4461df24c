package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"

	"github.com/gobridge/bridge-points/logging"
	"github.com/gobridge/bridge-points/utils"
)

// Stream binds the state of one (chain, event) stream to its backfiller and
// log handler.
type Stream struct {
	State      *StreamState
	Backfiller *Backfiller
	Handle     LogHandler
	Interval   time.Duration
}

type catchup struct {
	chainKey string
	interval time.Duration
	streams  []*Stream
}

// Tailer keeps streams close to the chain head. Every stream is polled by its
// own loop, and each chain additionally gets a periodic catch-up pass over
// all of its streams.
type Tailer struct {
	logger   logging.Logger
	cron     *cron.Cron
	streams  []*Stream
	catchups []*catchup

	mu      sync.Mutex
	started bool
	stopped bool
	jobs    sync.WaitGroup

	// idle interrupts the pauses between tail iterations once stopped.
	idle       context.Context
	cancelIdle context.CancelFunc
}

func NewTailer(logger logging.Logger) *Tailer {
	return &Tailer{
		logger: logger.WithField("service", "tailer"),
		cron:   cron.New(),
	}
}

func (t *Tailer) AddStream(s *Stream) {
	t.streams = append(t.streams, s)
}

func (t *Tailer) AddCatchup(chainKey string, interval time.Duration, streams ...*Stream) {
	t.catchups = append(t.catchups, &catchup{
		chainKey: chainKey,
		interval: interval,
		streams:  streams,
	})
}

func (t *Tailer) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started || t.stopped {
		return fmt.Errorf("tailer can't be started twice")
	}
	t.started = true
	t.idle, t.cancelIdle = context.WithCancel(ctx)

	for _, c := range t.catchups {
		c := c
		err := t.cron.AddFunc(fmt.Sprintf("@every %s", c.interval), func() {
			t.runCatchup(ctx, c)
		})
		if err != nil {
			return fmt.Errorf("can't schedule catch-up for chain %s: %w", c.chainKey, err)
		}
	}
	for _, s := range t.streams {
		t.jobs.Add(1)
		go t.tail(ctx, s)
	}
	t.cron.Start()
	t.logger.WithFields(logrus.Fields{
		"streams":  len(t.streams),
		"catchups": len(t.catchups),
	}).Info("started tailer")
	return nil
}

// Stop deactivates all streams and removes the catch-up schedule. In-flight
// backfills are not interrupted, use Wait to block until they finish.
func (t *Tailer) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	t.mu.Unlock()

	for _, s := range t.streams {
		s.State.Deactivate()
	}
	for _, c := range t.catchups {
		for _, s := range c.streams {
			s.State.Deactivate()
		}
	}
	t.cron.Stop()
	if t.cancelIdle != nil {
		t.cancelIdle()
	}
	t.logger.Info("stopped tailer")
}

func (t *Tailer) Wait() {
	t.jobs.Wait()
}

func (t *Tailer) enter() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	t.jobs.Add(1)
	return true
}

func (t *Tailer) tail(ctx context.Context, s *Stream) {
	defer t.jobs.Done()
	logger := t.logger.WithFields(logrus.Fields{
		"chain": s.State.ChainKey,
		"event": s.State.EventName,
	})
	logger.Info("starting stream tail loop")
	for s.State.IsActive() {
		t.backfill(ctx, logger, s)
		if !s.State.IsActive() {
			break
		}
		if !utils.ContextSleep(t.idle, s.Interval) {
			break
		}
	}
	logger.Info("stopped stream tail loop")
}

func (t *Tailer) runCatchup(ctx context.Context, c *catchup) {
	if !t.enter() {
		return
	}
	defer t.jobs.Done()
	logger := t.logger.WithField("chain", c.chainKey)
	logger.Debug("running catch-up")
	for _, s := range c.streams {
		if !s.State.IsActive() || ctx.Err() != nil {
			continue
		}
		t.backfill(ctx, logger.WithField("event", s.State.EventName), s)
	}
}

func (t *Tailer) backfill(ctx context.Context, logger logging.Logger, s *Stream) {
	err := s.Backfiller.Run(ctx, s.State, s.Handle)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("backfill failed, retrying on next tick")
	}
}
