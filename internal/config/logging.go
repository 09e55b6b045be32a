package config

import (
	"fmt"

	"vitrine/internal/logging"
)

// LoggingConfig configures the per-category log files.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	Format     string          `yaml:"format"`     // json, text
	Dir        string          `yaml:"dir"`        // one file per category
	DebugMode  bool            `yaml:"debug_mode"` // false = no category files
	Categories map[string]bool `yaml:"categories"` // missing categories are on
}

// IsCategoryEnabled reports whether cat writes to its file.
func (c *LoggingConfig) IsCategoryEnabled(cat logging.Category) bool {
	if !c.DebugMode {
		return false
	}
	on, set := c.Categories[string(cat)]
	return !set || on
}

// Options converts the section into logging package options.
func (c *LoggingConfig) Options() logging.Options {
	return logging.Options{
		DebugMode:  c.DebugMode,
		Categories: c.Categories,
		Level:      c.Level,
		JSONFormat: c.Format != "text",
	}
}

func (c *LoggingConfig) validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Level)
	}
	switch c.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("invalid logging.format: %s (valid: json, text)", c.Format)
	}
	for name := range c.Categories {
		known := false
		for _, cat := range logging.AllCategories {
			if string(cat) == name {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown logging category %q", name)
		}
	}
	return nil
}
