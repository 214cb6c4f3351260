package flowhub

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/randalmurphal/flowhub/pkg/flowhub/binder"
	"github.com/randalmurphal/flowhub/pkg/flowhub/config"
	"github.com/randalmurphal/flowhub/pkg/flowhub/observability"
)

// flowConfig holds the configuration shared by every flow variant.
type flowConfig struct {
	name         string
	binder       binder.Interface
	logger       *slog.Logger
	settings     config.Settings
	metrics      observability.MetricsRecorder
	spans        observability.SpanManager
	errorHandler ErrorHandler
	cases        []Case
	pool         Pool
}

func defaultFlowConfig() flowConfig {
	return flowConfig{
		settings: config.DefaultSettings(),
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
	}
}

func newFlowConfig(opts []Option) flowConfig {
	cfg := defaultFlowConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.name == "" {
		cfg.name = "flow-" + uuid.NewString()[:8]
	}
	if cfg.binder == nil {
		cfg.binder = binder.NewLocking()
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.errorHandler == nil {
		cfg.errorHandler = FatalErrorHandler(cfg.logger)
	}
	return cfg
}

// Option configures a flow.
type Option func(*flowConfig)

// WithName sets the flow name used in logs, metrics and errors.
// Default: "flow-" followed by a random suffix.
func WithName(name string) Option {
	return func(c *flowConfig) {
		c.name = name
	}
}

// WithBinder replaces the flow's binder. The default is a LockingBinder so
// that handlers can be bound from any goroutine; a plain *binder.Binder is
// only safe when every Subscribe happens on the flow's own goroutine.
func WithBinder(b binder.Interface) Option {
	return func(c *flowConfig) {
		c.binder = b
	}
}

// WithLogger sets the flow logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *flowConfig) {
		c.logger = logger
	}
}

// WithSettings sets the slow handler and long queue thresholds.
// Default: config.DefaultSettings().
func WithSettings(s config.Settings) Option {
	return func(c *flowConfig) {
		c.settings = s
	}
}

// WithMetrics enables metrics recording.
//
//	flow := flowhub.NewQueueFlow(flowhub.WithMetrics(observability.NewMetricsRecorder()))
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *flowConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSpanManager enables one trace span per dispatched event.
func WithSpanManager(sm observability.SpanManager) Option {
	return func(c *flowConfig) {
		if sm != nil {
			c.spans = sm
		}
	}
}

// WithErrorHandler sets the handler receiving handler failures.
// Default: FatalErrorHandler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *flowConfig) {
		c.errorHandler = h
	}
}

// WithCases adds cases set up when the flow starts and torn down when it
// stops.
func WithCases(cases ...Case) Option {
	return func(c *flowConfig) {
		c.cases = append(c.cases, cases...)
	}
}

// WithPool sets the pool a PoolFlow dispatches on. Ignored by other flows.
func WithPool(p Pool) Option {
	return func(c *flowConfig) {
		c.pool = p
	}
}

// hubConfig holds hub configuration.
type hubConfig struct {
	logger   *slog.Logger
	settings config.Settings
	metrics  observability.MetricsRecorder
	timeOpts []Option
}

// HubOption configures a Hub.
type HubOption func(*hubConfig)

// WithHubLogger sets the hub logger. Default: slog.Default().
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(c *hubConfig) {
		c.logger = logger
	}
}

// WithHubSettings sets the heartbeat interval and the thresholds of the
// hub's time flow. Default: config.DefaultSettings().
func WithHubSettings(s config.Settings) HubOption {
	return func(c *hubConfig) {
		c.settings = s
	}
}

// WithHubMetrics enables metrics for posts and for the hub's time flow.
func WithHubMetrics(m observability.MetricsRecorder) HubOption {
	return func(c *hubConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTimeFlowOptions passes options to the hub's default time flow.
func WithTimeFlowOptions(opts ...Option) HubOption {
	return func(c *hubConfig) {
		c.timeOpts = append(c.timeOpts, opts...)
	}
}
