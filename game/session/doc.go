// Package session keeps the live boards of the merge game in memory.
//
// Each Session owns one engine.Board built from the board config it was
// created with, plus creation and last-access timestamps. IDs are either
// caller-chosen (letters, digits, '-' and '_') or four random hex characters.
// Lookups are case-insensitive.
//
// Usage:
//
//	manager := session.NewManager()
//	sess, err := manager.Create("", config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// periodically
//	removed := manager.CleanupExpiredSessions(24 * time.Hour)
//
// Sessions are not persisted. Restarting the server drops every board.
package session
