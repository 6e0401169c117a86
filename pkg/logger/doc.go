// Package logger builds *slog.Logger values with a small set of functional
// options and exposes attribute helpers so that every component logs the
// same keys (user_id, notification_id, topic, component, ...).
//
//	log := logger.New(logger.WithEnvironment("production", "inboxd"))
//	log.LogAttrs(ctx, slog.LevelWarn, "mark read failed",
//	    logger.UserID(userID),
//	    logger.NotificationID(id),
//	    logger.Error(err),
//	)
//
// Helpers return an empty slog.Attr for nil errors and empty ids, which slog
// drops, so callers never need a nil check.
package logger
