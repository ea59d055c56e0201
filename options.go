package chunkdata

import (
	"log/slog"

	"github.com/klauspost/compress/zlib"
	"github.com/prometheus/client_golang/prometheus"
)

// Options configures a Registry.
type Options struct {
	// Logger receives registry diagnostics.
	// Default: slog.Default().
	Logger *slog.Logger

	// Order decides the manager layout order.
	// Default: OrderRegistration.
	Order Order

	// Notifier receives version compatibility notices.
	// Default: a notifier logging to Logger.
	Notifier Notifier

	// Metrics is the registerer chunkdata collectors are added to.
	// Default: nil, no metrics are collected.
	Metrics prometheus.Registerer

	// CompressionLevel is the zlib level used by CompressChunkPacket.
	// Default: zlib.DefaultCompression.
	CompressionLevel int
}

// defaultOptions returns sensible defaults.
func defaultOptions() Options {
	return Options{
		Order:            OrderRegistration,
		CompressionLevel: zlib.DefaultCompression,
	}
}

// Option configures a Registry.
type Option func(*Options)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithLayoutOrder sets the manager layout order.
func WithLayoutOrder(order Order) Option {
	return func(o *Options) {
		o.Order = order
	}
}

// WithNotifier sets the receiver of version compatibility notices.
func WithNotifier(n Notifier) Option {
	return func(o *Options) {
		o.Notifier = n
	}
}

// WithMetrics registers chunkdata collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *Options) {
		o.Metrics = reg
	}
}

// WithCompressionLevel sets the zlib level used by CompressChunkPacket.
func WithCompressionLevel(level int) Option {
	return func(o *Options) {
		o.CompressionLevel = level
	}
}
