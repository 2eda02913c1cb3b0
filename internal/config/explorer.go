package config

import (
	"fmt"
	"os"

	models "mediafolders/internal/domain/models/explorer"

	"gopkg.in/yaml.v3"
)

// ExplorerConfig holds the defaults the explorer services fall back to when a
// caller does not supply them. It is injected, never read from a global.
type ExplorerConfig struct {
	DefaultOrder    models.OrderSpec `yaml:"default_order"`
	DefaultBundles  []string         `yaml:"default_bundles"`
	PageSize        int              `yaml:"page_size"`
	MaxPageSize     int              `yaml:"max_page_size"`
	MaxTreeDepth    int              `yaml:"max_tree_depth"`
	CacheMaxEntries int              `yaml:"cache_max_entries"`
	HighlightOpen   string           `yaml:"highlight_open"`
	HighlightClose  string           `yaml:"highlight_close"`
}

// DefaultExplorerConfig returns the built-in defaults.
func DefaultExplorerConfig() *ExplorerConfig {
	return &ExplorerConfig{
		DefaultOrder:    models.DefaultOrder,
		PageSize:        DefaultPageSize,
		MaxPageSize:     MaxPageSize,
		MaxTreeDepth:    MaxTreeDepth,
		CacheMaxEntries: 0,
		HighlightOpen:   "<mark>",
		HighlightClose:  "</mark>",
	}
}

// LoadExplorerConfig reads YAML overrides from path on top of the defaults.
// An empty path returns the defaults.
func LoadExplorerConfig(path string) (*ExplorerConfig, error) {
	cfg := DefaultExplorerConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read explorer config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse explorer config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("explorer config %s: %w", path, err)
	}
	return cfg, nil
}

// normalize repairs zero values left by a partial YAML file and rejects unknown orders.
func (c *ExplorerConfig) normalize() error {
	def := DefaultExplorerConfig()
	if c.DefaultOrder == "" {
		c.DefaultOrder = def.DefaultOrder
	}
	if !c.DefaultOrder.Valid() {
		return fmt.Errorf("invalid default_order %q", c.DefaultOrder)
	}
	if c.PageSize <= 0 {
		c.PageSize = def.PageSize
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = def.MaxPageSize
	}
	if c.PageSize > c.MaxPageSize {
		c.PageSize = c.MaxPageSize
	}
	if c.MaxTreeDepth <= 0 {
		c.MaxTreeDepth = def.MaxTreeDepth
	}
	if c.CacheMaxEntries < 0 {
		c.CacheMaxEntries = 0
	}
	if c.HighlightOpen == "" && c.HighlightClose == "" {
		c.HighlightOpen, c.HighlightClose = def.HighlightOpen, def.HighlightClose
	}
	return nil
}

// DefaultFilter returns the configured default bundle filter.
func (c *ExplorerConfig) DefaultFilter() models.FilterSpec {
	return models.NewFilterSpec(c.DefaultBundles...)
}
