// Package identity answers "who is the current user" for the notification
// engine. A Resolver returns the authenticated user id, or an empty id
// with a nil error when nobody is signed in. Components treat the empty id
// as a neutral steady state rather than a failure.
//
// HTTP transports authenticate with JWTParser and Middleware, which put the
// subject claim into the request context; ContextResolver reads it back.
package identity
