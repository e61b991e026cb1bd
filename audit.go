package authguard

import (
	"io"
	"log/slog"

	internalaudit "github.com/MrEthical07/authguard/internal/audit"
)

// AuditEvent is one authentication decision. It never carries raw tokens.
type AuditEvent = internalaudit.Event

// AuditSink receives events from the Engine's asynchronous dispatcher.
type AuditSink = internalaudit.Sink

type (
	NoOpSink       = internalaudit.NoOpSink
	ChannelSink    = internalaudit.ChannelSink
	JSONWriterSink = internalaudit.JSONWriterSink
	SlogSink       = internalaudit.SlogSink
)

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}
