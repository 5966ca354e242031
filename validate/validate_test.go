package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/wricardo/mcp-training/mergegame/game/config"
)

const validConfig = `
name: Test Board
description: Test configuration
width: 4
height: 3
cell_size: 1
item_types:
  - {id: pebble, next: rock}
  - {id: rock, next: boulder}
  - {id: boulder}
  - {id: gem}
generators:
  - {id: quarry, item_type: pebble, max_energy: 10, energy_cost: 2}
messages:
  welcome: Welcome!
  merged: "Merged into %s!"
  board_full: Full
  out_of_energy: Empty
`

func compile(t *testing.T) *jsonschema.Schema {
	t.Helper()
	schema, err := config.CompileSchema()
	if err != nil {
		t.Fatalf("CompileSchema: %v", err)
	}
	return schema
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func contains(lines []string, sub string) bool {
	for _, l := range lines {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}

func TestValidateConfig_Valid(t *testing.T) {
	path := writeFile(t, t.TempDir(), "test.yaml", validConfig)

	result := validateConfig(compile(t), path)
	if !result.Valid {
		t.Fatalf("Expected valid config, got errors: %v", result.Errors)
	}
	if result.File != "test.yaml" {
		t.Errorf("File = %s, want test.yaml", result.File)
	}

	for _, want := range []string{
		"Name: Test Board",
		"Grid: 4x3 (12 slots)",
		"Chain (3 levels): pebble > rock > boulder",
		"Chain (1 levels): gem",
		"Generator quarry: pebble, energy 10, cost 2 (5 spawns per charge)",
	} {
		if !contains(result.Info, want) {
			t.Errorf("Missing info %q in %v", want, result.Info)
		}
	}

	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "gem") {
		t.Errorf("Expected a single warning about gem, got %v", result.Warnings)
	}
}

func TestValidateConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "not yaml",
			content: "width: [",
			wantErr: "invalid board config",
		},
		{
			name:    "schema missing messages",
			content: strings.Replace(validConfig, "messages:", "other:", 1),
			wantErr: "invalid board config",
		},
		{
			name:    "cycle",
			content: strings.Replace(validConfig, "{id: boulder}", "{id: boulder, next: pebble}", 1),
			wantErr: "cycle",
		},
		{
			name:    "unknown generator type",
			content: strings.Replace(validConfig, "item_type: pebble", "item_type: marble", 1),
			wantErr: "marble",
		},
	}

	schema := compile(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "bad.yaml", tt.content)
			result := validateConfig(schema, path)
			if result.Valid {
				t.Fatal("Expected invalid config")
			}
			if !contains(result.Errors, tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, result.Errors)
			}
		})
	}
}

func TestValidateConfig_MissingFile(t *testing.T) {
	result := validateConfig(compile(t), "/non/existent/file.yaml")
	if result.Valid {
		t.Error("Expected invalid result for missing file")
	}
	if len(result.Errors) == 0 {
		t.Error("Expected an error message")
	}
}

func TestUnreachableTypes_PlacementCounts(t *testing.T) {
	content := validConfig + "initial:\n  - {item_type: gem, x: 0, y: 0}\n"
	path := writeFile(t, t.TempDir(), "placed.yaml", content)

	result := validateConfig(compile(t), path)
	if !result.Valid {
		t.Fatalf("Expected valid config, got %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Placed gem should be reachable, got warnings %v", result.Warnings)
	}
	if !contains(result.Info, "Initial items: 1") {
		t.Errorf("Missing initial count in %v", result.Info)
	}
}

func TestFindConfigFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", validConfig)
	writeFile(t, dir, "a.json", "{}")
	writeFile(t, dir, "c.yml", validConfig)
	writeFile(t, dir, "notes.txt", "x")

	files, err := findConfigFiles(dir)
	if err != nil {
		t.Fatalf("findConfigFiles: %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	if strings.Join(names, ",") != "a.json,b.yaml,c.yml" {
		t.Errorf("files = %v", names)
	}
}

func TestReport(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.yaml", validConfig)
	bad := writeFile(t, dir, "bad.yaml", "width: 0")

	var out bytes.Buffer
	if !report(&out, compile(t), []string{good}) {
		t.Errorf("Expected all valid, output:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "All 1 configurations are valid") {
		t.Errorf("Unexpected summary:\n%s", out.String())
	}

	out.Reset()
	if report(&out, compile(t), []string{good, bad}) {
		t.Error("Expected report to fail with an invalid file")
	}
	if !strings.Contains(out.String(), "INVALID") {
		t.Errorf("Expected INVALID block:\n%s", out.String())
	}
}

func TestCommand_RepositoryConfigs(t *testing.T) {
	if _, err := os.Stat("../configs"); os.IsNotExist(err) {
		t.Skip("configs directory not found")
	}

	var out bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &out
	if err := cmd.Run(context.Background(), []string{"validate", "--dir", "../configs"}); err != nil {
		t.Fatalf("validate failed: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "classic.yaml") {
		t.Errorf("Expected classic.yaml in report:\n%s", out.String())
	}
}

func TestCommand_PrintSchema(t *testing.T) {
	var out bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &out
	if err := cmd.Run(context.Background(), []string{"validate", "--schema"}); err != nil {
		t.Fatalf("validate --schema failed: %v", err)
	}
	if !strings.Contains(out.String(), `"item_types"`) {
		t.Errorf("Schema output missing item_types:\n%s", out.String())
	}
}
