// Package conversation provides the orchestration service that handles one
// user query end to end.
//
// # Control flow
//
// An inbound query first goes through the intent router, which may consult
// recent history and the chat backend. Search-routed queries are dispatched
// to the search backend with a trailing window of history; everything else
// goes to the chat backend with the full bounded history. The reply is
// markup-stripped, chunked to the transport's maximum message size, and the
// completed exchange is appended to the per-user history with a tag noting
// how it was produced.
//
// # Failure scoping
//
// Gateway failures arrive as displayable text and flow to the user as
// ordinary chunks. The only error HandleImage returns is ErrImageTooLarge,
// raised before any backend call. No failure here is fatal to the process
// or visible to other users.
package conversation
