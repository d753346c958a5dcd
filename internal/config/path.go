package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath applies CLI/XDG/home fallback rules for settings.json location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return expandUserPath(explicit), nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "bingocat", "settings.json"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for settings fallback")
	}

	return filepath.Join(home, ".config", "bingocat", "settings.json"), nil
}

// ResolveImagesDir returns the root directory holding the image sets.
func ResolveImagesDir(cfg Config) (string, error) {
	if dir := strings.TrimSpace(cfg.ImagesDir); dir != "" {
		return expandUserPath(dir), nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, "bingocat", "images"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for images fallback")
	}

	return filepath.Join(home, ".local", "share", "bingocat", "images"), nil
}

func expandUserPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if raw == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return raw
		}
		return home
	}
	if !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(raw, "~/"))
}
