// Package logging provides structured logging for pgadapt on top of
// log/slog.
//
// Every entry carries service=pgadapt and the build version. Text output is
// the default since the main consumer is a CLI; JSON is available for log
// shipping.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # text, json
//	  output: "stderr"   # stderr, stdout
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	reg.SetLogger(logger.With("component", "adapt"))
//
// Never log connection passwords; log config.PostgresConfig.ServerKey()
// instead of the URL.
package logging
