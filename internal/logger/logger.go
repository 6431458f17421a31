// Package logger defines the narrow structured-logging interface consumed
// by the routing table, engine, persistence and telemetry packages. The
// core never depends on a concrete logging backend; see the zap
// subpackage for a production adapter.
package logger

import "kaleidoscope/internal/domain"

// Field is a structured key:value pair attached to a log entry.
type Field struct {
	Key string
	Val any
}

// Logger is the minimal structured-logging interface required by the core
// packages.
type Logger interface {
	Named(name string) Logger
	With(fields ...Field) Logger
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// F is a concise constructor for a Field.
func F(key string, val any) Field { return Field{Key: key, Val: val} }

// FNodeID renders a domain.NodeID as a structured field.
func FNodeID(key string, id domain.NodeID) Field {
	return Field{Key: key, Val: id.String()}
}

// FAdvertisement renders an Advertisement's header fields (never its
// payload) as a structured field.
func FAdvertisement(key string, ad domain.Advertisement) Field {
	return Field{
		Key: key,
		Val: map[string]any{
			"sender":     ad.Sender.String(),
			"ttl":        ad.InboundTTL,
			"payloadLen": len(ad.Payload),
		},
	}
}

// ----------------------------------------------------------------
// NopLogger is a Logger implementation that does nothing; it is the
// default when no backend is configured.
type NopLogger struct{}

func (l *NopLogger) Named(name string) Logger          { return l }
func (l *NopLogger) With(fields ...Field) Logger       { return l }
func (l *NopLogger) Debug(msg string, fields ...Field) {}
func (l *NopLogger) Info(msg string, fields ...Field)  {}
func (l *NopLogger) Warn(msg string, fields ...Field)  {}
func (l *NopLogger) Error(msg string, fields ...Field) {}
