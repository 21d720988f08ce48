// Package logger builds structured slog loggers with context extraction and
// optional Sentry reporting.
//
// # Usage
//
//	log := logger.New(logger.Config{Level: "debug", Format: "json"},
//		session.LogExtractor(),
//	)
//	log.InfoContext(ctx, "request handled", slog.Int("status", 200))
//	// {"level":"INFO","msg":"request handled","status":200,"session_id":"..."}
//
// # Context Extractors
//
// A [ContextExtractor] pulls one attribute out of the context. Extractors run on
// every call, and returning false skips the attribute for that record.
// [NewLogHandlerDecorator] adds extractors to any slog.Handler.
//
// # Sentry
//
// When [SentryConfig].DSN is set, records go to stdout and to Sentry:
// errors become issues, and warnings (unless MinLevel is "error") are kept as
// logs for context. An empty DSN or a failed SDK init falls back to
// stdout only, so development and production share one code path. Call
// [Flush] before exiting.
package logger
