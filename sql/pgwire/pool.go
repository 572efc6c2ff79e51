package pgwire

import (
	"context"
	"sync"
)

// Pool hands out Conns sharded by session-parameter hash, so that
// callers requiring parallelism never share one Conn's SET state across
// goroutines — the "single-connection invariant" from spec.md §9:
// concurrent queries race only across distinct Conns, never on one.
type Pool struct {
	mu    sync.Mutex
	dsn   string
	base  Options
	idle  map[uint64][]*Conn
}

// NewPool returns a Pool that opens new Conns against dsn using base
// as the default Options for every checkout.
func NewPool(dsn string, base Options) *Pool {
	return &Pool{dsn: dsn, base: base, idle: map[uint64][]*Conn{}}
}

// Checkout returns an idle Conn matching the given session parameters if
// one is pooled, otherwise opens a new one. A nil sessionParams uses the
// base Options' SessionParams.
func (p *Pool) Checkout(ctx context.Context, sessionParams map[string]string) (*Conn, error) {
	opts := p.base
	if sessionParams != nil {
		opts.SessionParams = sessionParams
	}
	hash := hashSessionParams(opts.SessionParams)

	p.mu.Lock()
	if conns := p.idle[hash]; len(conns) > 0 {
		c := conns[len(conns)-1]
		p.idle[hash] = conns[:len(conns)-1]
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	return Connect(ctx, p.dsn, opts)
}

// Return puts a Conn back into its shard for reuse, or discards it if
// it has been closed.
func (p *Pool) Return(c *Conn) {
	if c.State() == StateClosed {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idle[c.ParamHash()] = append(p.idle[c.ParamHash()], c)
}

// Close closes every pooled Conn.
func (p *Pool) Close(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, conns := range p.idle {
		for _, c := range conns {
			_ = c.Close(ctx)
		}
	}
	p.idle = map[uint64][]*Conn{}
}
