package nftkit

import (
	"log/slog"
)

type options struct {
	logger   *slog.Logger
	audit    AuditLogger
	monitor  *Monitor
	registry *RoleRegistry

	collection string
}

// Option configures a RoleRegistry or TokenLedger.
type Option func(*options)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithAuditLogger sets the sink that receives one entry per successful mutation.
// Defaults to a fresh MemoryAuditLog.
func WithAuditLogger(audit AuditLogger) Option {
	return func(o *options) {
		o.audit = audit
	}
}

// WithMonitor sets the mutation monitor. Defaults to a fresh Monitor.
func WithMonitor(monitor *Monitor) Option {
	return func(o *options) {
		o.monitor = monitor
	}
}

// WithRoleRegistry makes a TokenLedger authorize against an existing registry
// instead of creating its own. Ignored by NewRoleRegistry.
func WithRoleRegistry(registry *RoleRegistry) Option {
	return func(o *options) {
		o.registry = registry
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.audit == nil {
		o.audit = NewMemoryAuditLog()
	}
	if o.monitor == nil {
		o.monitor = NewMonitor()
	}
	return o
}

func withCollection(name string) Option {
	return func(o *options) {
		o.collection = name
	}
}
