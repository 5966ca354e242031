// Package websocket pushes live board updates to browser and terminal watchers.
//
// Clients connect to /ws?session=<id>. The first frame is the current board
// state; every later frame is a Message carrying the board state after a
// mutating operation plus the events it produced. Each frame holds exactly one
// JSON document.
//
// Hub owns the per-session client sets on a single goroutine (Run). Broadcasts
// go through a buffered queue so HTTP handlers never block on slow watchers;
// a watcher whose own queue is full is disconnected.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	hub.BroadcastState(sessionID, result.BoardState, result.Events)
package websocket
