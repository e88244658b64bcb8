package stepwire

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// FrontOption configures a Serializer or Deserializer.
type FrontOption = func(*config)

// WithName names the stream in logs.
func WithName(name string) FrontOption {
	name = strings.TrimSpace(name)
	if name == "" {
		panic("name can't be blank")
	}
	return func(c *config) {
		c.name = name
	}
}

func WithLogger(l *zap.Logger) FrontOption {
	if l == nil {
		panic("logger can't be nil")
	}
	return func(c *config) {
		c.logger = l
	}
}

// WithPrometheus counts items, bytes, suspensions and failures. A nil
// registerer keeps the metrics unregistered.
func WithPrometheus(registerer prometheus.Registerer, namespace, subsystem string) FrontOption {
	return func(c *config) {
		c.metrics = newMetrics(registerer, namespace, subsystem)
	}
}

type config struct {
	name    string
	logger  *zap.Logger
	metrics *metrics
}

func newConfig(options ...FrontOption) *config {
	cfg := config{name: "stream"}
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = Logger()
	}
	if cfg.metrics == nil {
		cfg.metrics = newMetrics(nil, "stepwire", "")
	}
	cfg.logger = cfg.logger.With(zap.String("stream", cfg.name))
	return &cfg
}
