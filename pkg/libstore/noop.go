package libstore

import (
	"context"
	"log/slog"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) LibraryCreated(ctx context.Context, library *Library) error {
	return nil
}

func (n *NoopEventSink) LibraryDeleted(ctx context.Context, key LibraryKey, actor string) error {
	return nil
}

func (n *NoopEventSink) BlockCreated(ctx context.Context, block *Block) error {
	return nil
}

func (n *NoopEventSink) BlockDeleted(ctx context.Context, key UsageKey, actor string) error {
	return nil
}

// LoggingEventSink is an event sink that logs events but takes no other action
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a new logging event sink. A nil logger uses slog.Default().
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger.With("component", "events")}
}

func (l *LoggingEventSink) LibraryCreated(ctx context.Context, library *Library) error {
	l.logger.InfoContext(ctx, "Library created", "library", library.Key.String(), "display_name", library.DisplayName)
	return nil
}

func (l *LoggingEventSink) LibraryDeleted(ctx context.Context, key LibraryKey, actor string) error {
	l.logger.InfoContext(ctx, "Library deleted", "library", key.String(), "actor", actor)
	return nil
}

func (l *LoggingEventSink) BlockCreated(ctx context.Context, block *Block) error {
	l.logger.InfoContext(ctx, "Block created", "block", block.Key.String())
	return nil
}

func (l *LoggingEventSink) BlockDeleted(ctx context.Context, key UsageKey, actor string) error {
	l.logger.InfoContext(ctx, "Block deleted", "block", key.String(), "actor", actor)
	return nil
}
