// Package logger provides the structured logging interface used across fantiadl.
//
// It wraps zerolog with a small interface so components can be handed a logger
// (or a NopLogger / TestLogger in tests) instead of reaching for globals:
//
//	log := logger.GetLogger().WithField("fanclub_id", "12345")
//	log.InfoWithFields("Post downloaded", map[string]interface{}{
//	    "post_id": "998877",
//	    "files":   4,
//	})
//
// Console output is colourised and written to stderr; when a log file is
// configured every event is additionally appended to it as JSON.
package logger
