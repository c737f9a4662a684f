package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/inscription-c/zins/constants"
	"github.com/inscription-c/zins/inscription/log"
	"github.com/lightningnetwork/lnd/ticker"
)

var (
	ErrCycleRunning  = errors.New("scan cycle already running")
	ErrRunnerStarted = errors.New("runner already started")
)

// Updater runs one scan cycle.
type Updater interface {
	UpdateIndex(ctx context.Context) error
}

type RunnerOptions struct {
	updater      Updater
	ticker       ticker.Ticker
	interval     time.Duration
	cycleTimeout time.Duration
	metrics      *Metrics
}

type RunnerOption func(*RunnerOptions)

func WithUpdater(updater Updater) RunnerOption {
	return func(options *RunnerOptions) {
		options.updater = updater
	}
}

// WithTicker replaces the interval ticker, tests pass a ticker.Force.
func WithTicker(t ticker.Ticker) RunnerOption {
	return func(options *RunnerOptions) {
		options.ticker = t
	}
}

func WithInterval(interval time.Duration) RunnerOption {
	return func(options *RunnerOptions) {
		options.interval = interval
	}
}

func WithCycleTimeout(timeout time.Duration) RunnerOption {
	return func(options *RunnerOptions) {
		options.cycleTimeout = timeout
	}
}

func WithMetrics(metrics *Metrics) RunnerOption {
	return func(options *RunnerOptions) {
		options.metrics = metrics
	}
}

// Runner drives the periodic scan. Cycles never overlap: a tick or a
// trigger that arrives during a cycle is coalesced into at most one
// follow-up cycle.
type Runner struct {
	opts *RunnerOptions

	cycleMtx sync.Mutex
	trigger  chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	quit      chan struct{}
	wg        sync.WaitGroup
}

func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		opts: &RunnerOptions{
			interval:     constants.DefaultScanInterval,
			cycleTimeout: constants.DefaultCycleTimeout,
		},
		trigger: make(chan struct{}, 1),
		quit:    make(chan struct{}),
	}
	for _, v := range opts {
		v(r.opts)
	}
	if r.opts.ticker == nil {
		r.opts.ticker = ticker.New(r.opts.interval)
	}
	if r.opts.metrics == nil {
		r.opts.metrics = NewMetrics(nil)
	}
	return r
}

// Start runs a first cycle right away and then one per tick.
func (r *Runner) Start() error {
	err := ErrRunnerStarted
	r.startOnce.Do(func() {
		err = nil
		r.opts.ticker.Resume()
		r.Trigger()
		r.wg.Add(1)
		go r.loop()
	})
	return err
}

// Stop waits for a running cycle to finish or time out.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.quit)
		r.wg.Wait()
		r.opts.ticker.Stop()
	})
}

// Trigger asks for a cycle as soon as the loop is free. It returns false
// when one is already pending.
func (r *Runner) Trigger() bool {
	select {
	case r.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func (r *Runner) loop() {
	defer r.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-r.quit
		cancel()
	}()

	for {
		select {
		case <-r.opts.ticker.Ticks():
		case <-r.trigger:
		case <-r.quit:
			return
		}
		if err := r.RunCycle(ctx); err != nil && !errors.Is(err, ErrCycleRunning) {
			log.Srv.Errorf("scan cycle: %v", err)
		}
	}
}

// RunCycle runs one cycle under the cycle deadline. It returns
// ErrCycleRunning instead of waiting when another cycle holds the loop.
func (r *Runner) RunCycle(ctx context.Context) error {
	if !r.cycleMtx.TryLock() {
		r.opts.metrics.cycles.WithLabelValues(cycleResultSkipped).Inc()
		return ErrCycleRunning
	}
	defer r.cycleMtx.Unlock()

	r.opts.metrics.running.Set(1)
	defer r.opts.metrics.running.Set(0)

	ctx, cancel := context.WithTimeout(ctx, r.opts.cycleTimeout)
	defer cancel()

	start := time.Now()
	if err := r.opts.updater.UpdateIndex(ctx); err != nil {
		r.opts.metrics.cycles.WithLabelValues(cycleResultError).Inc()
		return err
	}
	r.opts.metrics.cycles.WithLabelValues(cycleResultOk).Inc()
	r.opts.metrics.cycleDuration.Observe(time.Since(start).Seconds())
	r.opts.metrics.lastSuccess.SetToCurrentTime()
	return nil
}
