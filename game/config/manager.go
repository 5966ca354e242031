package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/mcp-training/mergegame/game/engine"
	"github.com/wricardo/mcp-training/mergegame/game/service"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrSchema        = errors.New("schema violation")
)

// DefaultConfigName is the board preferred by GetDefault
const DefaultConfigName = "classic"

//go:embed board.schema.json
var boardSchemaJSON string

const boardSchemaURL = "mem://mergegame/board.schema.json"

// extensions are tried in order when resolving a config name
var extensions = []string{".yaml", ".yml", ".json"}

// Manager handles board configuration loading and caching
type Manager struct {
	configDir     string
	schema        *jsonschema.Schema
	defaultConfig *engine.BoardConfig
	configs       map[string]*engine.BoardConfig
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	schema, err := CompileSchema()
	if err != nil {
		return nil, err
	}

	m := &Manager{
		configDir: configDir,
		schema:    schema,
		configs:   make(map[string]*engine.BoardConfig),
	}
	m.defaultConfig = m.resolveDefault()
	return m, nil
}

// CompileSchema compiles the embedded board schema
func CompileSchema() (*jsonschema.Schema, error) {
	schema, err := jsonschema.CompileString(boardSchemaURL, boardSchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to compile board schema: %w", err)
	}
	return schema, nil
}

// SchemaJSON returns the embedded board schema document
func SchemaJSON() string {
	return boardSchemaJSON
}

// LoadConfig loads a configuration by name
func (m *Manager) LoadConfig(name string) (*engine.BoardConfig, error) {
	key := configKey(name)

	m.mu.RLock()
	if config, exists := m.configs[key]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, exists := m.configs[key]; exists {
		return config, nil
	}

	path, err := m.findFile(key)
	if err != nil {
		return nil, err
	}

	config, err := ParseFile(m.schema, path)
	if err != nil {
		return nil, err
	}

	m.configs[key] = config
	return config, nil
}

// ParseFile reads, schema-checks and validates one board config file
func ParseFile(schema *jsonschema.Schema, path string) (*engine.BoardConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", service.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(schema, data)
}

// Parse decodes a YAML or JSON board document. The raw document is checked
// against the schema before it is decoded and passed to the engine validator.
func Parse(schema *jsonschema.Schema, data []byte) (*engine.BoardConfig, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if schema != nil {
		doc, err := toJSONValue(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if err := schema.Validate(doc); err != nil {
			return nil, fmt.Errorf("%w: %w: %v", ErrInvalidConfig, ErrSchema, err)
		}
	}

	var config engine.BoardConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to decode config: %v", ErrInvalidConfig, err)
	}
	if config.CellSize == 0 {
		config.CellSize = 1
	}

	if err := engine.ValidateBoardConfig(&config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &config, nil
}

// toJSONValue converts a YAML tree into the shapes encoding/json produces,
// which is what the schema validator walks.
func toJSONValue(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("config is not representable as JSON: %w", err)
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListConfigs returns information about all available configurations
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	seen := make(map[string]bool)
	var configs []*service.ConfigInfo

	for _, entry := range entries {
		if entry.IsDir() || !hasConfigExtension(entry.Name()) {
			continue
		}

		name := configKey(entry.Name())
		if seen[name] {
			continue
		}
		seen[name] = true

		config, err := m.LoadConfig(name)
		if err != nil {
			log.Printf("[CONFIG] skipping %s: %v", entry.Name(), err)
			continue
		}

		configs = append(configs, &service.ConfigInfo{
			Filename:    entry.Name(),
			ConfigID:    name,
			Name:        config.Name,
			Description: config.Description,
			Width:       config.Width,
			Height:      config.Height,
			ItemTypes:   len(config.ItemTypes),
			Generators:  len(config.Generators),
		})
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].ConfigID < configs[j].ConfigID })
	return configs, nil
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.BoardConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default configuration by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache drops cached configurations and re-resolves the default
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.configs = make(map[string]*engine.BoardConfig)
	m.mu.Unlock()

	def := m.resolveDefault()

	m.mu.Lock()
	m.defaultConfig = def
	m.mu.Unlock()
}

// SaveConfig validates a configuration, including the schema check applied on
// load, and writes it to disk as YAML
func (m *Manager) SaveConfig(name string, config *engine.BoardConfig) error {
	if err := engine.ValidateBoardConfig(config); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	key := configKey(name)
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("%w: bad config name %q", ErrInvalidConfig, name)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The written document must pass the same gate LoadConfig applies
	saved, err := Parse(m.schema, data)
	if err != nil {
		return err
	}

	configPath := filepath.Join(m.configDir, key+".yaml")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[key] = saved
	m.mu.Unlock()
	return nil
}

// resolveDefault picks classic, then the first valid file, then the built-in board
func (m *Manager) resolveDefault() *engine.BoardConfig {
	if config, err := m.LoadConfig(DefaultConfigName); err == nil {
		return config
	}

	configs, err := m.ListConfigs()
	if err == nil && len(configs) > 0 {
		if config, err := m.LoadConfig(configs[0].ConfigID); err == nil {
			return config
		}
	}

	return engine.DefaultBoardConfig()
}

// findFile resolves a config key to an existing file. Callers hold m.mu.
func (m *Manager) findFile(key string) (string, error) {
	for _, ext := range extensions {
		path := filepath.Join(m.configDir, key+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", service.ErrConfigNotFound, key)
}

func configKey(name string) string {
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

func hasConfigExtension(name string) bool {
	return configKey(name) != name
}
