// Package logging provides structured logging built on zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: colored console output for humans
//
// The Logger embeds *zap.Logger, so the full zap field API is available.
// Named loggers partition output by subsystem ("api", "resolver", ...),
// and NewNop gives tests a silent logger.
//
// Example:
//
//	logger := logging.NewDefault()
//	logger.Info("server starting", zap.Int("port", 8700))
//	logger.Named("resolver").Warn("snapshot reload failed", zap.Error(err))
package logging
