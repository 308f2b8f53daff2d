// Package logger builds configured log/slog loggers with a small functional
// option surface: output format (JSON or text), minimum level, destination
// writer and static attributes attached to every record.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithFormat(logger.FormatText),
//	    logger.WithLevel(slog.LevelDebug),
//	    logger.WithAttr(slog.String("service", "sessions")),
//	)
//	log.Info("ready")
package logger
