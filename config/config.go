// Package config holds CLI-layer user defaults: the core snapshot/reasoner
// packages take every option as an explicit argument and persist nothing
// (spec.md §6 "Environment / persisted state: None"). This package only
// back-fills flag defaults from an optional on-disk file, the way the
// teacher's config package back-fills xtop's -interval/-layout defaults.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Config holds defaults for flags the user would otherwise have to repeat
// on every invocation.
type Config struct {
	MaxStringsToCapture int    `json:"max_strings_to_capture"`
	MaxStringLength     int    `json:"max_string_length"`
	HeapStringLimit     int    `json:"heap_string_limit"`
	HeapHistogramCount  int    `json:"heap_histogram_count"`
	MaxStackFrames      int    `json:"max_stack_frames"`
	TopStackThreads     int    `json:"top_stack_threads"`
	HistoryDB           string `json:"history_db"`
	NarrateEndpoint     string `json:"narrate_endpoint"`
	MaskIPs             bool   `json:"mask_ips"`
}

// Default returns the built-in defaults used when no config file exists.
// These mirror the CLI surface's own defaults so that an absent config
// file and an absent flag behave identically.
func Default() Config {
	return Config{
		MaxStringsToCapture: 500,
		MaxStringLength:     65536,
		HeapStringLimit:     500,
		HeapHistogramCount:  10,
		MaxStackFrames:      30,
		TopStackThreads:     5,
	}
}

// Path returns ~/.config/dumptriage/config.json (or XDG_CONFIG_HOME).
// Returns empty string if the home directory cannot be determined.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "" // refuse to fall back to /tmp (security risk)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "dumptriage", "config.json")
}

// Load loads config from disk; returns defaults on any error.
func Load() Config {
	cfg := Default()
	p := Path()
	if p == "" {
		return cfg
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return cfg
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Printf("dumptriage: warning: config parse error: %v", err)
		return Default()
	}
	return cfg
}

// Save writes cfg to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := Path()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
