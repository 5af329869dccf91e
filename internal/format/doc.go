// Package format contains the pure text transformations applied to model
// output before it is handed to a chat transport.
//
// StripMarkup removes Markdown markup the transports cannot render, using a
// fixed, ordered chain of rewrite rules. Chunk splits long replies into
// transport-sized pieces so a single reply never exceeds the maximum message
// size a frontend is allowed to send.
package format
