// Package rpcmesh implements the service-to-service RPC mesh described in
// §4.7: pooled HTTP/2 channels (one logical channel per target per process),
// connect/request timeouts, keep-alive, mTLS in staging/production,
// breaker-wrapped calls, and backpressure once a pool's active/max ratio
// exceeds a threshold.
package rpcmesh

import (
	"context"
	"crypto/tls"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/novafabric/backbone/internal/apperr"
	"github.com/novafabric/backbone/internal/rpcmesh/breaker"
	"github.com/novafabric/backbone/internal/rpcmesh/jwtauth"
)

const (
	connectTimeout      = 5 * time.Second
	requestTimeout      = 10 * time.Second
	keepAlivePing       = 60 * time.Second
	keepAliveTimeout    = 20 * time.Second
	backpressureThreshold = 0.85
)

// TargetConfig describes one downstream service the mesh connects to.
type TargetConfig struct {
	Name     string
	Address  string
	MaxConns int // logical channels is always 1 per target per process; this bounds concurrent in-flight RPCs for backpressure accounting
	TLS      *tls.Config // nil in development, required in staging/production
}

// channel is one pooled, lazily-established logical connection to a target.
// HTTP/2 multiplexes many concurrent RPCs over the single *grpc.ClientConn,
// so "pool" tracks in-flight RPC count for backpressure rather than
// multiple physical connections.
type Channel struct {
	conn    *grpc.ClientConn
	breaker *breaker.Breaker
	maxConns int
	mu       sync.Mutex
	active   int
}

// Mesh owns one channel per configured target, established lazily on first
// use.
type Mesh struct {
	mu      sync.Mutex
	targets map[string]TargetConfig
	chans   map[string]*Channel
	logger  StateChangeLogger
}

// StateChangeLogger receives circuit breaker state transitions; satisfied
// by a thin adapter over *logrus.Logger in cmd/*.
type StateChangeLogger interface {
	LogBreakerStateChange(target string, from, to string)
}

func NewMesh(logger StateChangeLogger) *Mesh {
	return &Mesh{
		targets: make(map[string]TargetConfig),
		chans:   make(map[string]*Channel),
		logger:  logger,
	}
}

func (m *Mesh) AddTarget(cfg TargetConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg.MaxConns == 0 {
		cfg.MaxConns = 100
	}
	m.targets[cfg.Name] = cfg
}

// Channel lazily dials target on first request and reuses the resulting
// *grpc.ClientConn (HTTP/2 multiplexing) for every subsequent call.
func (m *Mesh) Channel(name string) (*Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ch, ok := m.chans[name]; ok {
		return ch, nil
	}

	cfg, ok := m.targets[name]
	if !ok {
		return nil, apperr.Internal(nil)
	}

	transportCreds := insecure.NewCredentials()
	if cfg.TLS != nil {
		transportCreds = credentials.NewTLS(cfg.TLS)
	}

	dialCtx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	conn, err := grpc.DialContext(dialCtx, cfg.Address,
		grpc.WithTransportCredentials(transportCreds),
		grpc.WithUnaryInterceptor(jwtauth.UnaryClientInterceptor),
		grpc.WithStreamInterceptor(jwtauth.StreamClientInterceptor),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                keepAlivePing,
			Timeout:             keepAliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, apperr.Unavailable("DIAL_FAILED", err)
	}

	ch := &Channel{
		conn:     conn,
		maxConns: cfg.MaxConns,
		breaker: breaker.New(name, func(name string, from, to gobreaker.State) {
			if m.logger != nil {
				m.logger.LogBreakerStateChange(name, from.String(), to.String())
			}
		}),
	}
	m.chans[name] = ch
	return ch, nil
}

// acquire reserves a backpressure slot, rejecting immediately (not queuing)
// once active/max exceeds backpressureThreshold, per §4.7.
func (c *Channel) acquire() (release func(), err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if float64(c.active)/float64(c.maxConns) > backpressureThreshold {
		return nil, apperr.Unavailable("POOL_SATURATED", nil)
	}
	c.active++
	return func() {
		c.mu.Lock()
		c.active--
		c.mu.Unlock()
	}, nil
}

// Invoke runs fn against the target's connection, applying backpressure,
// the request timeout, and the circuit breaker, in that order.
func (m *Mesh) Invoke(ctx context.Context, target string, fn func(ctx context.Context, conn *grpc.ClientConn) (interface{}, error)) (interface{}, error) {
	ch, err := m.Channel(target)
	if err != nil {
		return nil, err
	}

	release, err := ch.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	return ch.breaker.Do(ctx, func(ctx context.Context) (interface{}, error) {
		return fn(ctx, ch.conn)
	})
}

func (m *Mesh) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for _, ch := range m.chans {
		if err := ch.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
