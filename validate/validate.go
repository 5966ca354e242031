// Command validate lints board configuration files. For each file it checks:
//   - the document against the embedded JSON Schema
//   - engine rules: dimensions, acyclic item chains, generator references,
//     initial placements in range and non-overlapping
//   - which item types no generator or placement can ever produce
//
// Files are taken from the arguments, or every .yaml/.yml/.json file in --dir.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/mergegame/game/config"
	"github.com/wricardo/mcp-training/mergegame/game/engine"
)

// ValidationResult captures the outcome of validating a single file
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
}

// validateConfig runs the schema gate and engine validation on one file and,
// when both pass, describes its chains and generators.
func validateConfig(schema *jsonschema.Schema, path string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(path),
		Valid: true,
	}

	cfg, err := config.ParseFile(schema, path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	catalog, err := engine.BuildCatalog(cfg.ItemTypes)
	if err != nil {
		// ParseFile already validated the catalog
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	result.Info = append(result.Info,
		fmt.Sprintf("Name: %s", cfg.Name),
		fmt.Sprintf("Grid: %dx%d (%d slots)", cfg.Width, cfg.Height, cfg.Width*cfg.Height),
	)
	result.Info = append(result.Info, chainReport(catalog)...)
	for _, g := range cfg.Generators {
		result.Info = append(result.Info, fmt.Sprintf("Generator %s: %s, energy %d, cost %d (%d spawns per charge)",
			g.ID, g.ItemType, g.MaxEnergy, g.EnergyCost, g.MaxEnergy/g.EnergyCost))
	}
	if len(cfg.Initial) > 0 {
		result.Info = append(result.Info, fmt.Sprintf("Initial items: %d", len(cfg.Initial)))
	}

	for _, id := range unreachableTypes(cfg, catalog) {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Item type %s can never appear: no generator or placement leads to it", id))
	}
	if cfg.Width*cfg.Height < 2 {
		result.Warnings = append(result.Warnings, "Board has a single slot: no merge is possible")
	}

	return result
}

// chainReport lists every chain from its root, e.g. "Chain: seed > sprout > herb"
func chainReport(catalog *engine.Catalog) []string {
	var lines []string
	for _, root := range catalog.Roots() {
		chain := engine.ChainFrom(root)
		ids := make([]string, len(chain))
		for i, t := range chain {
			ids[i] = t.ID
		}
		lines = append(lines, fmt.Sprintf("Chain (%d levels): %s", len(chain), strings.Join(ids, " > ")))
	}
	return lines
}

// unreachableTypes returns the sorted IDs of types that are neither spawned,
// placed, nor the successor of such a type
func unreachableTypes(cfg *engine.BoardConfig, catalog *engine.Catalog) []string {
	reached := make(map[string]bool)
	mark := func(id string) {
		t, err := catalog.Lookup(id)
		if err != nil {
			return
		}
		for _, c := range engine.ChainFrom(t) {
			reached[c.ID] = true
		}
	}
	for _, g := range cfg.Generators {
		mark(g.ItemType)
	}
	for _, p := range cfg.Initial {
		mark(p.ItemType)
	}

	var out []string
	for _, t := range catalog.Types() {
		if !reached[t.ID] {
			out = append(out, t.ID)
		}
	}
	sort.Strings(out)
	return out
}

// findConfigFiles lists the config files of dir in name order
func findConfigFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml", "*.json"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// report validates files and prints one block per file. It returns false if
// any file is invalid.
func report(w io.Writer, schema *jsonschema.Schema, files []string) bool {
	allValid := true
	for _, file := range files {
		result := validateConfig(schema, file)

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)
		if result.Valid {
			fmt.Fprintln(w, "VALID")
			for _, info := range result.Info {
				fmt.Fprintln(w, "  ✓ "+info)
			}
		} else {
			fmt.Fprintln(w, "INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(w, "  ✗ "+err)
			}
		}
		for _, warn := range result.Warnings {
			fmt.Fprintln(w, "  ! "+warn)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintf(w, "All %d configurations are valid\n", len(files))
	} else {
		fmt.Fprintln(w, "Some configurations have errors")
	}
	return allValid
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "lint merge board configuration files",
		ArgsUsage: "[file ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "configs",
				Usage:   "directory scanned when no files are given",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.BoolFlag{
				Name:  "schema",
				Usage: "print the board JSON Schema and exit",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			out := cmd.Root().Writer
			if out == nil {
				out = os.Stdout
			}

			if cmd.Bool("schema") {
				fmt.Fprintln(out, config.SchemaJSON())
				return nil
			}

			schema, err := config.CompileSchema()
			if err != nil {
				return err
			}

			files := cmd.Args().Slice()
			if len(files) == 0 {
				files, err = findConfigFiles(cmd.String("dir"))
				if err != nil {
					return fmt.Errorf("finding config files: %w", err)
				}
			}
			if len(files) == 0 {
				return cli.Exit(fmt.Sprintf("no config files found in %s", cmd.String("dir")), 1)
			}

			if !report(out, schema, files) {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
