// Package router decides, per query, whether the search-augmented backend
// is required or the chat backend can answer directly.
//
// The decision runs in strict priority order: a fixed multilingual keyword
// set is checked first and always wins without any backend call; otherwise
// the chat backend is asked for a one-word verdict over the query and a
// bounded window of recent history. When the verdict cannot be obtained or
// parsed the router fails closed: the direct path is used and the failure is
// logged, and the user never waits on search availability.
package router
