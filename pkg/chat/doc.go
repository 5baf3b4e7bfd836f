// Package chat is the chat page glue: the persisted session and message
// history, input-history navigation, the page layout built with el, and the
// controller that connects them to a streaming transport.
//
// The client sends one JSON
// Request per prompt; the server streams plain text chunks back and ends
// each reply with EndOfMessage.
package chat
