// Package gateway translates capability-level requests (chat, vision,
// search) into calls against the configured backend models.
//
// # Failure contract
//
// Every operation is a single blocking round trip with no internal retry.
// A transport or backend failure never escapes as-is: each method returns a
// literal, user-displayable error string as its text result, alongside the
// underlying error value so callers that need to branch (the intent router,
// telemetry) can do so without parsing the text. The process is never
// terminated by a backend failure, and one user's failure is invisible to
// every other user.
//
// # Telemetry
//
// Each round trip is recorded to the telemetry store with its capability,
// backend model, duration, and outcome. Recording failures are logged and
// swallowed.
package gateway
