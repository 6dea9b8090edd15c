package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
)

const defaultRecallInterval = 30 * time.Second

// RecallPoller runs the periodic recall trigger.
type RecallPoller struct {
	filler   RecallFiller
	logger   *logging.Logger
	interval time.Duration

	ticker   *time.Ticker
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
	startMu  sync.Mutex
	started  bool

	statusMu sync.RWMutex
	status   RecallPollerStatus
}

// RecallPollerStatus describes the recent health of the poll loop.
type RecallPollerStatus struct {
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastError           string    `json:"last_error,omitempty"`
	LastAttempt         time.Time `json:"last_attempt"`
	LastSuccess         time.Time `json:"last_success"`
	LastRecalled        int       `json:"last_recalled"`
}

func NewRecallPoller(filler RecallFiller, interval time.Duration, logger *logging.Logger) *RecallPoller {
	if interval <= 0 {
		interval = defaultRecallInterval
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RecallPoller{
		filler:   filler,
		logger:   logger,
		interval: interval,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start runs one fill immediately and then one per interval until ctx is
// cancelled or Stop is called.
func (p *RecallPoller) Start(ctx context.Context) {
	p.startMu.Lock()
	if p.started {
		p.startMu.Unlock()
		return
	}
	p.started = true
	p.startMu.Unlock()

	p.ticker = time.NewTicker(p.interval)

	go func() {
		defer close(p.stopped)
		p.logger.Info("recall poller started", "interval", p.interval.String())
		p.fillOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				p.ticker.Stop()
				p.logger.Info("recall poller stopped")
				return
			case <-p.done:
				p.ticker.Stop()
				p.logger.Info("recall poller stopped")
				return
			case <-p.ticker.C:
				p.fillOnce(ctx)
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight fill to return.
func (p *RecallPoller) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() {
		close(p.done)
	})

	p.startMu.Lock()
	started := p.started
	p.startMu.Unlock()
	if !started {
		return nil
	}

	select {
	case <-p.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *RecallPoller) fillOnce(ctx context.Context) {
	start := time.Now()
	p.recordAttempt(start)

	result, err := p.filler.Fill(ctx, RecallTriggerPeriodic)
	if err != nil {
		p.logger.ErrorContext(ctx, "periodic recall fill failed", "error", err)
		p.recordFailure(err, start)
		return
	}
	p.recordSuccess(start, len(result.Recalled))
}

func (p *RecallPoller) recordAttempt(at time.Time) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.LastAttempt = at
}

func (p *RecallPoller) recordSuccess(at time.Time, recalled int) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.ConsecutiveFailures = 0
	p.status.LastError = ""
	p.status.LastSuccess = at
	p.status.LastRecalled = recalled
}

func (p *RecallPoller) recordFailure(err error, at time.Time) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.ConsecutiveFailures++
	p.status.LastError = err.Error()
	p.status.LastAttempt = at
}

func (p *RecallPoller) Status() RecallPollerStatus {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()
	return p.status
}
