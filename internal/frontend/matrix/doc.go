// Package matrix implements the Matrix frontend.
//
// The bridge syncs against a homeserver with an existing access token and
// routes room messages to the conversation service. Text messages become
// chat or search queries, image messages are downloaded and run through the
// vision path, and prefixed commands manage the session: start and help greet
// the user, reset and clear drop their history. Images whose declared size
// exceeds the configured limit are rejected before the download.
//
// Each user has at most one query in flight; a message arriving while the
// previous one is still processing is dropped. Replies that exceed the
// outbound size limit arrive from the service pre-chunked and are sent as
// consecutive room messages.
package matrix
