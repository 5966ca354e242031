// Package config loads board configurations for the merge game.
//
// Board files live in a directory (configs/ by default) as YAML (.yaml, .yml)
// or JSON (.json). Each file is checked in three steps:
//
//  1. parsed with gopkg.in/yaml.v3 (JSON is accepted as YAML)
//  2. validated against the embedded board.schema.json
//  3. decoded into engine.BoardConfig and run through engine.ValidateBoardConfig
//
// The schema catches shape errors (unknown fields, wrong types, missing
// messages). The engine catches semantic ones such as successor cycles,
// dangling generator item types and overlapping initial placements.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//	board, err := manager.LoadConfig("easy")
//	infos, err := manager.ListConfigs()
//
// GetDefault returns classic when present, otherwise the first loadable file,
// otherwise engine.DefaultBoardConfig.
package config
