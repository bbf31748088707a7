// Package rpcpool spreads RPC traffic for one network over several endpoints,
// quarantining endpoints that keep failing.
package rpcpool

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/emperorhan/custody-settlement/internal/chain"
	"github.com/emperorhan/custody-settlement/internal/metrics"
)

const defaultCallTimeout = 15 * time.Second

var (
	ErrNoEndpoints       = errors.New("no rpc endpoints configured")
	ErrNoHealthyEndpoint = errors.New("no healthy rpc endpoint")
)

// Endpoint is one upstream node.
type Endpoint struct {
	URL string
	// APIKey is sent by clients that need one (e.g. TronGrid).
	APIKey string
	RPS    float64
	Burst  int
}

type Config struct {
	Network     string
	Endpoints   []Endpoint
	CallTimeout time.Duration
	Breaker     BreakerConfig
}

// Call is one attempt against one endpoint. ctx carries the per-call timeout.
type Call func(ctx context.Context, ep Endpoint) error

// Pool is safe for concurrent use.
type Pool struct {
	network string
	members []*member
	next    atomic.Uint64
	timeout time.Duration
	logger  *slog.Logger
}

type member struct {
	endpoint Endpoint
	breaker  *Breaker
	limiter  *Limiter
}

// EndpointHealth is a point-in-time view of one endpoint.
type EndpointHealth struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

func New(cfg Config, logger *slog.Logger) (*Pool, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	p := &Pool{
		network: cfg.Network,
		timeout: cfg.CallTimeout,
		logger:  logger.With("component", "rpcpool", "network", cfg.Network),
	}
	for _, ep := range cfg.Endpoints {
		ep := ep
		bcfg := cfg.Breaker
		userHook := bcfg.OnStateChange
		bcfg.OnStateChange = func(from, to State) {
			metrics.RPCEndpointState.WithLabelValues(cfg.Network, ep.URL).Set(float64(to))
			p.logger.Warn("rpc endpoint state changed", "endpoint", ep.URL, "from", from.String(), "to", to.String())
			if userHook != nil {
				userHook(from, to)
			}
		}
		p.members = append(p.members, &member{
			endpoint: ep,
			breaker:  NewBreaker(bcfg),
			limiter:  NewLimiter(ep.RPS, ep.Burst, cfg.Network),
		})
		metrics.RPCEndpointState.WithLabelValues(cfg.Network, ep.URL).Set(float64(StateClosed))
	}
	return p, nil
}

func (p *Pool) Network() string {
	return p.network
}

// Do runs call against healthy endpoints, starting from the next one in
// rotation and failing over on transient errors. Every failure is returned as
// a *chain.FaultError.
func (p *Pool) Do(ctx context.Context, method string, call Call) error {
	n := uint64(len(p.members))
	start := p.next.Add(1) - 1

	var (
		lastErr  error
		lastURL  string
		attempts int
	)
	for i := uint64(0); i < n; i++ {
		m := p.members[(start+i)%n]
		if m.breaker.Allow() != nil {
			continue
		}
		attempts++

		if err := m.limiter.Wait(ctx); err != nil {
			return p.fault(method, m.endpoint.URL, err)
		}

		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		began := time.Now()
		err := call(callCtx, m.endpoint)
		cancel()

		metrics.RPCCallLatency.WithLabelValues(p.network, method).Observe(time.Since(began).Seconds())
		metrics.RPCCallsTotal.WithLabelValues(p.network, method, StatusLabel(err)).Inc()

		if err == nil {
			m.breaker.RecordSuccess()
			return nil
		}
		if !Classify(err).IsTransient() {
			// the node answered; it is the request that failed
			m.breaker.RecordSuccess()
			return p.fault(method, m.endpoint.URL, err)
		}

		m.breaker.RecordFailure()
		lastErr, lastURL = err, m.endpoint.URL
		if ctx.Err() != nil {
			break
		}
		p.logger.Warn("rpc attempt failed, failing over",
			"method", method,
			"endpoint", m.endpoint.URL,
			"error", err,
		)
	}

	if attempts == 0 {
		return p.fault(method, "", ErrNoHealthyEndpoint)
	}
	return p.fault(method, lastURL, lastErr)
}

// Health reports the circuit state of every endpoint.
func (p *Pool) Health() []EndpointHealth {
	out := make([]EndpointHealth, 0, len(p.members))
	for _, m := range p.members {
		out = append(out, EndpointHealth{URL: m.endpoint.URL, State: m.breaker.State().String()})
	}
	return out
}

// Healthy reports whether at least one endpoint accepts traffic.
func (p *Pool) Healthy() bool {
	for _, m := range p.members {
		if m.breaker.State() != StateOpen {
			return true
		}
	}
	return false
}

func (p *Pool) fault(method, endpoint string, err error) error {
	var fe *chain.FaultError
	if errors.As(err, &fe) {
		return err
	}
	return &chain.FaultError{
		Network:  p.network,
		Method:   method,
		Endpoint: endpoint,
		Timeout:  IsTimeout(err),
		Err:      err,
	}
}
