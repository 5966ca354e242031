// Package service provides the business logic layer for the merge grid game.
//
// The service package implements:
//   - Multi-session board management
//   - Drag and drop dispatch into each session's board
//   - Generator triggers and timed energy regeneration
//   - Paginated drop history and merge hints
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages board configuration loading and validation.
// EventSink receives the events of every mutating call (the drop journal).
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the engine. Each session owns one engine.Board. All operations run under the
// service mutex, so a board never sees two operations at once.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	spawn, _ := gameService.TriggerGenerator(ctx, info.ID, "seed-bag")
//	result, _ := gameService.DropOnSlot(ctx, info.ID, spawn.Item.ID, 3, 3)
package service
