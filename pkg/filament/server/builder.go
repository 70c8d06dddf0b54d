package server

import (
	"errors"
	"time"

	"github.com/yourusername/filament/pkg/filament/http1"
	"github.com/yourusername/filament/pkg/filament/monitor"
	"github.com/yourusername/filament/pkg/filament/pool"
	"github.com/yourusername/filament/pkg/filament/router"
)

// Defaults applied by the builder.
const (
	DefaultReadTimeout  = 60 * time.Second
	DefaultWriteTimeout = 60 * time.Second
	DefaultPoolSize     = 16
)

// Builder assembles a Server. NewBuilder defaults: one wildcard-host app,
// the timeouts above, an 8 KiB head limit and a 16-worker pool.
//
// Keep-alive is opt-in: connections are reused only when a keep-alive idle
// timeout (or WithConnectionTimeout) is configured, since an untimed idle
// connection would pin its worker forever.
type Builder struct {
	apps []*router.App

	readTimeout      time.Duration
	writeTimeout     time.Duration
	keepAliveTimeout time.Duration
	maxHeadBytes     int
	maxRequests      int

	poolSize int
	unpooled bool

	mon     *monitor.Monitor
	metrics *monitor.Metrics

	err error
}

// NewBuilder creates a builder with defaults.
func NewBuilder() *Builder {
	return &Builder{
		readTimeout:  DefaultReadTimeout,
		writeTimeout: DefaultWriteTimeout,
		maxHeadBytes: http1.DefaultMaxHeadBytes,
		poolSize:     DefaultPoolSize,
	}
}

// App adds a sub-app. Apps are consulted in registration order when host
// globs overlap equally.
func (b *Builder) App(app *router.App) *Builder {
	b.apps = append(b.apps, app)
	return b
}

// Router adds a wildcard-host app configured by fn; the common case of a
// single-host server.
func (b *Builder) Router(fn func(*router.App)) *Builder {
	app := router.NewApp("*")
	fn(app)
	return b.App(app)
}

// WithConnectionTimeout sets the read and keep-alive idle timeouts in one
// call.
func (b *Builder) WithConnectionTimeout(d time.Duration) *Builder {
	b.readTimeout = d
	b.keepAliveTimeout = d
	return b
}

// WithReadTimeout bounds reading one request head.
func (b *Builder) WithReadTimeout(d time.Duration) *Builder {
	b.readTimeout = d
	return b
}

// WithWriteTimeout bounds writing one response.
func (b *Builder) WithWriteTimeout(d time.Duration) *Builder {
	b.writeTimeout = d
	return b
}

// WithKeepAliveTimeout bounds the idle wait for the next request.
func (b *Builder) WithKeepAliveTimeout(d time.Duration) *Builder {
	b.keepAliveTimeout = d
	return b
}

// WithMaxHeadBufferSize bounds the request head (status line + headers).
func (b *Builder) WithMaxHeadBufferSize(n int) *Builder {
	if n <= 0 {
		b.err = errors.New("server: head buffer size must be positive")
		return b
	}
	b.maxHeadBytes = n
	return b
}

// WithMaxRequestsPerConnection caps keep-alive reuse; 0 means unlimited.
func (b *Builder) WithMaxRequestsPerConnection(n int) *Builder {
	b.maxRequests = n
	return b
}

// WithThreadPool sets the shared worker pool size.
func (b *Builder) WithThreadPool(size int) *Builder {
	if size <= 0 {
		b.err = errors.New("server: pool size must be positive")
		return b
	}
	b.poolSize = size
	b.unpooled = false
	return b
}

// Unpooled disables the shared pool: each connection gets its own
// goroutine.
func (b *Builder) Unpooled() *Builder {
	b.unpooled = true
	return b
}

// WithMonitor attaches a monitor for events and logging.
func (b *Builder) WithMonitor(m *monitor.Monitor) *Builder {
	b.mon = m
	return b
}

// WithMetrics attaches prometheus collectors.
func (b *Builder) WithMetrics(m *monitor.Metrics) *Builder {
	b.metrics = m
	return b
}

// Build freezes the configuration into a Server. The pool (if any) is
// started here.
func (b *Builder) Build() (*Server, error) {
	if b.err != nil {
		return nil, b.err
	}
	routes, err := router.Build(b.apps...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		routes:           routes,
		readTimeout:      b.readTimeout,
		writeTimeout:     b.writeTimeout,
		keepAliveTimeout: b.keepAliveTimeout,
		maxHeadBytes:     b.maxHeadBytes,
		maxRequests:      b.maxRequests,
		mon:              b.mon,
		metrics:          b.metrics,
	}

	if !b.unpooled {
		s.workers = pool.New(b.poolSize, b.mon)
		if b.metrics != nil {
			s.workers.SetMetrics(b.metrics)
		}
		s.workers.Start()
	}

	return s, nil
}
