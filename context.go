package rto

import (
	"sync"
	"time"

	"github.com/flowtrait/rto/codec"
	"github.com/flowtrait/rto/internal/metrics"
	"github.com/flowtrait/rto/transport"
	"github.com/op/go-logging"
)

// Codec serializes call arguments and return values; see package codec for
// the shipped implementations.
type Codec interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// Config controls one Context's call slot count, worker pool size, call
// timeout, codec and observability. Build one with Options, the usual
// functional-options shape.
type Config struct {
	CallSlots     int
	ServerThreads int
	CallTimeout   time.Duration
	Codec         Codec
	Logger        *logging.Logger
	Metrics       *metrics.Metrics
	RecvBuffer    int
}

func defaultConfig() Config {
	return Config{
		CallSlots:     32,
		ServerThreads: 8,
		CallTimeout:   30 * time.Second,
		Codec:         codec.Msgpack{},
		RecvBuffer:    64,
	}
}

// Option configures a Context at construction.
type Option func(*Config)

// WithCallSlots sets how many calls this Context can have outstanding to
// its peer at once.
func WithCallSlots(n int) Option { return func(c *Config) { c.CallSlots = n } }

// WithServerThreads sets the worker pool size for dispatching inbound
// calls.
func WithServerThreads(n int) Option { return func(c *Config) { c.ServerThreads = n } }

// WithCallTimeout sets how long Call waits for a free call slot before
// failing. Zero means wait indefinitely.
func WithCallTimeout(d time.Duration) Option { return func(c *Config) { c.CallTimeout = d } }

// WithCodec overrides the default Msgpack codec.
func WithCodec(c Codec) Option { return func(cfg *Config) { cfg.Codec = c } }

// WithLogger attaches a logger; nil (the default) disables logging.
func WithLogger(l *logging.Logger) Option { return func(c *Config) { c.Logger = l } }

// WithMetrics attaches a prometheus collector set; nil (the default)
// disables metrics.
func WithMetrics(m *metrics.Metrics) Option { return func(c *Config) { c.Metrics = m } }

// Context is a peer endpoint: one Port wired to one Transport through a
// multiplexer, a Client and a Server.
type Context struct {
	// Port is this endpoint's registry of exported service objects and
	// the handle to route outbound calls through.
	Port *Port

	mux    *multiplexer
	client *Client
	server *Server

	sendMu sync.Mutex

	closeOnce sync.Once
}

// NewContext wires t into a running Context exporting initial (or
// NullService, if initial is nil) at the well-known handle id 0, and
// returns a RemoteObject importing the peer's own id-0 export, so both
// sides of a freshly connected Transport can reach each other's root
// service without any prior handle exchange.
func NewContext(t transport.Transport, initial Dispatch, opts ...Option) (ctx *Context, peerInitial *RemoteObject) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if initial == nil {
		initial = NullService{}
	}
	if cfg.CallSlots < 2 && cfg.Logger != nil {
		cfg.Logger.Warning("rto: CallSlots < 2 deadlocks easily once a dispatched call makes a reentrant call back to its caller")
	}
	if cfg.ServerThreads < 2 && cfg.Logger != nil {
		cfg.Logger.Warning("rto: ServerThreads < 2 deadlocks easily under the same reentrant-call pattern")
	}

	ctx = &Context{}
	send := func(frame []byte) error { return t.Send(frame) }

	mux := newMultiplexer(t, cfg.RecvBuffer, cfg.Logger)
	ctx.mux = mux
	ctx.client = newClient(&ctx.sendMu, send, mux.responses, cfg.CallSlots, cfg.CallTimeout, cfg.Logger, cfg.Metrics)
	ctx.Port = newPort(ctx.client, cfg.Codec, cfg.Logger, cfg.Metrics)
	ctx.server = newServer(ctx.Port, &ctx.sendMu, send, cfg.ServerThreads, cfg.Logger, cfg.Metrics, mux.requests)

	if binder, ok := initial.(PortBinder); ok {
		binder.BindPort(ctx.Port)
	}
	ExportHandle(ctx.Port, initial) // always lands at id 0 on a fresh Port
	peerInitial = ImportHandle(ctx.Port, HandleToExchange{ID: 0})
	return ctx, peerInitial
}

// Close runs the shutdown sequence: mark the Port terminal so dropped
// proxies stop sending delete requests, tear down the multiplexer (which
// stops the transport and its reader), then join the Client's response
// receiver and the Server's dispatch loop, in that order, so neither is
// ever asked to read from a channel the multiplexer has already closed
// mid-send. Idempotent.
func (c *Context) Close() {
	c.closeOnce.Do(func() {
		c.Port.terminate()
		c.mux.shutdown()
		c.client.shutdown()
		c.server.shutdown()
	})
}
