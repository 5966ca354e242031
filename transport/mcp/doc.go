// Package mcp exposes the merge board to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a REST request against
// the api package, and the JSON response is rendered as text for the agent.
// No game state lives here.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - board_state: ASCII grid plus items, generators and counters
//   - trigger_generator: spend energy to spawn into the first empty slot
//   - drop_item: release an item on slot (x, y); the outcome is merge, move or revert
//   - merge_hints, describe_slot
//   - drop_history: paginated drop records
//   - reset_board, list_configs, game_instructions
//
// The MCPServer returned by GetMCPServer is served over stdio with
// server.ServeStdio, or fed JSON-RPC bodies by the /mcp HTTP endpoint.
package mcp
