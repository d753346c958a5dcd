package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded captures resolved settings path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
	// Fallback is true when a present file was rejected and defaults were used.
	Fallback bool
}

// Load resolves, reads, parses, and validates the runtime settings.
//
// Load never fails: a missing, unreadable, malformed, or invalid file yields
// Default() and a warning describing why.
func Load(explicitPath string) Loaded {
	base := Default()

	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{
			Config:   base,
			Warnings: []Warning{{Message: fmt.Sprintf("%v; using defaults", err)}},
		}
	}

	content, err := os.ReadFile(resolvedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Loaded{
				Path:   resolvedPath,
				Config: base,
				Warnings: []Warning{{
					Message: fmt.Sprintf("settings file %q not found; using defaults", resolvedPath),
				}},
			}
		}
		return Loaded{
			Path:     resolvedPath,
			Config:   base,
			Exists:   true,
			Fallback: true,
			Warnings: []Warning{{Message: fmt.Sprintf("read settings %q: %v; using defaults", resolvedPath, err)}},
		}
	}

	cfg, warnings, err := Parse(string(content), base)
	if err != nil {
		return Loaded{
			Path:     resolvedPath,
			Config:   base,
			Exists:   true,
			Fallback: true,
			Warnings: []Warning{{Message: fmt.Sprintf("parse settings %q: %v; using defaults", resolvedPath, err)}},
		}
	}

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: warnings,
		Exists:   true,
	}
}
