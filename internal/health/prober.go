package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Status represents the observed state of one follower.
type Status int

const (
	Unknown Status = iota
	Alive
	Down
)

// String returns the string representation of Status.
func (s Status) String() string {
	switch s {
	case Alive:
		return "ALIVE"
	case Down:
		return "DOWN"
	default:
		return "UNKNOWN"
	}
}

// ProbeFunc checks one follower and returns nil if it is healthy.
type ProbeFunc func(ctx context.Context, target string) error

// HTTPProbe probes a follower's /health endpoint.
func HTTPProbe(timeout time.Duration) ProbeFunc {
	client := &http.Client{Timeout: timeout}
	return func(ctx context.Context, target string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target+"/health", nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("health probe %s: status %d", target, resp.StatusCode)
		}
		return nil
	}
}

type followerState struct {
	status   Status
	failures int
	lastSeen time.Time
}

// Prober periodically checks each follower's liveness. It is purely
// observational: replication always attempts every follower regardless
// of what the prober thinks.
type Prober struct {
	mu            sync.RWMutex
	states        map[string]*followerState
	targets       []string
	interval      time.Duration
	failThreshold int
	probeFn       ProbeFunc
	logger        hclog.Logger
	stopCh        chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

// NewProber creates a prober over the fixed follower set. A follower is
// reported Down after failThreshold consecutive probe failures.
func NewProber(targets []string, interval time.Duration, failThreshold int, probeFn ProbeFunc, logger hclog.Logger) *Prober {
	if failThreshold < 1 {
		failThreshold = 1
	}
	states := make(map[string]*followerState, len(targets))
	for _, t := range targets {
		states[t] = &followerState{status: Unknown}
	}
	return &Prober{
		states:        states,
		targets:       targets,
		interval:      interval,
		failThreshold: failThreshold,
		probeFn:       probeFn,
		logger:        logger.Named("health"),
		stopCh:        make(chan struct{}),
	}
}

// Start launches the probe loop. The first round runs immediately.
func (p *Prober) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		p.probeAll()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.probeAll()
			case <-p.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the probe loop and waits for in-flight probes.
func (p *Prober) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}

func (p *Prober) probeAll() {
	ctx, cancel := context.WithTimeout(context.Background(), p.interval)
	defer cancel()

	var wg sync.WaitGroup
	for _, target := range p.targets {
		wg.Add(1)
		go func(target string) {
			defer wg.Done()
			p.record(target, p.probeFn(ctx, target))
		}(target)
	}
	wg.Wait()
}

func (p *Prober) record(target string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state := p.states[target]
	if err == nil {
		if state.status == Down {
			p.logger.Info("follower recovered", "follower", target)
		}
		state.status = Alive
		state.failures = 0
		state.lastSeen = time.Now()
		return
	}

	state.failures++
	if state.failures >= p.failThreshold && state.status != Down {
		state.status = Down
		p.logger.Warn("follower marked down", "follower", target, "failures", state.failures, "error", err)
	}
}

// Statuses returns each follower's current status string, keyed by
// target URL.
func (p *Prober) Statuses() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]string, len(p.states))
	for target, state := range p.states {
		out[target] = state.status.String()
	}
	return out
}
