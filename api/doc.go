// Package api provides the HTTP REST API for the merge board.
//
// Endpoints:
//
// Sessions:
//   - POST   /api/sessions               create (body: {"config_id": "classic"}, optional)
//   - GET    /api/sessions               list (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET    /api/sessions/{id}          session info with board state
//   - DELETE /api/sessions/{id}
//
// Board:
//   - GET  /api/sessions/{id}/state
//   - POST /api/sessions/{id}/drag/start        {"item_id", "x", "y"}
//   - POST /api/sessions/{id}/drag/move         {"item_id", "x", "y"}
//   - POST /api/sessions/{id}/drop              {"item_id", "position": {"x","y"}} or {"item_id", "slot": {"x","y"}}
//   - POST /api/sessions/{id}/generators/{gid}/trigger
//   - POST /api/sessions/{id}/reset
//   - GET  /api/sessions/{id}/history           (?page=1&limit=20&order=desc)
//   - GET  /api/sessions/{id}/hints
//   - GET  /api/sessions/{id}/slots/{x}/{y}
//
// Configuration:
//   - GET  /api/configs
//   - GET  /api/configs/{name}
//   - POST /api/configs                         {"config_id", "config": {...}}
//
// Other:
//   - GET /api/health
//   - GET /ws?session=<id>                      websocket board updates
//
// Errors are JSON objects of the form {"error": "message"}. Unknown sessions,
// configs, items and generators map to 404; invalid configs, coordinates and
// request bodies to 400; a drag move on an item that is not being dragged to 409.
//
// Every mutating call pushes the new board state to websocket watchers of the
// session when a hub is attached.
package api
