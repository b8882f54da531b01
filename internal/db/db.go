// Package db keeps a small pool of OxiDB connections alive.
package db

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSurvey/internal/oxidb"
)

const keepaliveInterval = 10 * time.Second

// Pool is a round-robin connection pool for OxiDB with auto-reconnect.
type Pool struct {
	host    string
	port    int
	timeout time.Duration
	log     *zap.Logger

	mu      sync.RWMutex
	clients []*oxidb.Client
	idx     uint64

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewPool dials size connections to host:port and starts the keepalive loop.
func NewPool(ctx context.Context, host string, port, size int, timeout time.Duration, log *zap.Logger) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		host:    host,
		port:    port,
		timeout: timeout,
		log:     log,
		clients: make([]*oxidb.Client, size),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		c, err := oxidb.Connect(ctx, host, port, timeout)
		if err != nil {
			p.closeClients()
			return nil, fmt.Errorf("pool: connect client %d: %w", i, err)
		}
		p.clients[i] = c
	}
	go p.keepalive()
	return p, nil
}

// Get returns the next client in round-robin order.
func (p *Pool) Get() *oxidb.Client {
	n := atomic.AddUint64(&p.idx, 1)
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.clients[n%uint64(len(p.clients))]
}

// Ping checks every connection.
func (p *Pool) Ping(ctx context.Context) error {
	p.mu.RLock()
	clients := append([]*oxidb.Client(nil), p.clients...)
	p.mu.RUnlock()
	for i, c := range clients {
		if _, err := c.Ping(ctx); err != nil {
			return fmt.Errorf("pool: client %d: %w", i, err)
		}
	}
	return nil
}

func (p *Pool) reconnect(i int) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	c, err := oxidb.Connect(ctx, p.host, p.port, p.timeout)
	if err != nil {
		p.log.Warn("pool: reconnect failed", zap.Int("client", i), zap.Error(err))
		return
	}
	p.mu.Lock()
	old := p.clients[i]
	p.clients[i] = c
	p.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

func (p *Pool) keepalive() {
	defer close(p.done)
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.mu.RLock()
			clients := append([]*oxidb.Client(nil), p.clients...)
			p.mu.RUnlock()
			for i, c := range clients {
				ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
				_, err := c.Ping(ctx)
				cancel()
				if err != nil {
					p.log.Warn("pool: ping failed, reconnecting", zap.Int("client", i), zap.Error(err))
					p.reconnect(i)
				}
			}
		}
	}
}

// Close stops the keepalive loop and closes all connections.
func (p *Pool) Close() {
	p.stopOnce.Do(func() {
		close(p.stop)
		<-p.done
		p.closeClients()
	})
}

func (p *Pool) closeClients() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.clients {
		if c != nil {
			c.Close()
		}
	}
}
