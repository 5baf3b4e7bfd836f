// Package chatserver serves the chat page and streams model replies over a
// websocket.
//
// Routes:
//
//	GET /         the rendered chat page
//	GET /models   {"models": [...]} from the Backend
//	GET /ws       websocket; one JSON chat.Request per prompt, plain text
//	              chunks back, each reply terminated by chat.EndOfMessage
//	GET /metrics  Prometheus metrics
//	GET /healthz  liveness
//
// Every websocket connection keeps its own conversation history, which is
// passed to the Backend with each prompt and dropped on disconnect.
//
// Example:
//
//	srv := chatserver.New(chatserver.DefaultConfig(), chatserver.EchoBackend{})
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package chatserver
