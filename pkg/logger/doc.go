// Package logger provides the structured logging interface used across igaudit.
//
// It wraps zerolog with a small field-oriented API. Console output is
// colourised for humans; when a log file is configured every entry is also
// written to it as JSON.
//
// Basic Usage:
//
//	err := logger.Initialize(&config.LoggingConfig{Level: "info"})
//	logger.Info("Scan engine ready")
//	logger.WithField("scan_id", id).Info("Scan started")
//
// Components receive a Logger explicitly and derive their own context:
//
//	log := base.WithField("component", "scan")
//	log.InfoWithFields("Page merged", map[string]interface{}{
//	    "processed": 100,
//	    "total":     120,
//	})
//
// Credentials are never passed to the logger; use auth.Mask when a value
// has to be referenced.
package logger
