// Package requestid tags every HTTP request with a correlation id.
//
// Middleware reuses a well-formed X-Request-ID header or generates a UUID,
// stores it in the request context and echoes it on the response. Wire
// LoggerExtractor into logger.New so every record written while serving the
// request carries it:
//
//	log := logger.New(logger.WithContextExtractor(requestid.LoggerExtractor()))
//	r.Use(requestid.Middleware)
package requestid
