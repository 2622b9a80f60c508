// Package logger provides structured logging for brokerkit using zerolog.
//
// Every subsystem takes a *Logger and scopes it with WithComponent so log
// lines can be filtered by "credential", "throttle", "stream" or "client".
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.New(&cfg.Logging, "brokerkit").WithComponent("stream")
//	log.Info("stream opened", logger.Fields(logger.FieldStreamKey, key))
package logger
