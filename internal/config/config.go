// Package config loads oleg-cli configuration from a JSONC
// file, the way tk loads its .tk.json: hujson strips comments/trailing
// commas, then the result decodes as plain JSON.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// Config holds the settings the CLI tools need to open a store.
type Config struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	AppendOnly   bool   `json:"append_only,omitempty"`    //nolint:tagliatelle
	AOLSyncEvery int    `json:"aol_sync_every,omitempty"` //nolint:tagliatelle
	DumpVersion2 bool   `json:"dump_v2,omitempty"`        //nolint:tagliatelle
}

// FileName is the default config file name, looked up in the working
// directory unless an explicit path is given.
const FileName = ".oleg.json"

var (
	errFileNotFound = errors.New("config file not found")
	errInvalid      = errors.New("invalid config file")
	errPathEmpty    = errors.New("path cannot be empty")
	errNameEmpty    = errors.New("name cannot be empty")
)

// Default returns the zero-overrides configuration: a store named "oleg" in
// the current directory, append-only off, never fsyncing the AOL.
func Default() Config {
	return Config{
		Path: ".",
		Name: "oleg",
	}
}

// Load reads configuration with the following precedence (highest wins):
//  1. Default()
//  2. One config file: the explicit file at configPath if non-empty (must
//     exist), otherwise the project file at workDir/.oleg.json if present.
//     When configPath is given, workDir/.oleg.json is not read.
//  3. overrides, applied field by field where the zero value means "unset"
func Load(workDir, configPath string, overrides Config) (Config, error) {
	cfg := Default()

	fileCfg, _, err := loadProjectConfig(workDir, configPath)
	if err != nil {
		return Config{}, err
	}

	cfg = merge(cfg, fileCfg)
	cfg = merge(cfg, overrides)

	err = validate(cfg)
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadProjectConfig(workDir, configPath string) (Config, string, error) {
	var cfgFile string

	var mustExist bool

	if configPath != "" {
		cfgFile = configPath
		if !filepath.IsAbs(cfgFile) {
			cfgFile = filepath.Join(workDir, cfgFile)
		}

		mustExist = true
	} else {
		cfgFile = filepath.Join(workDir, FileName)
	}

	data, err := os.ReadFile(cfgFile) //nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			if mustExist {
				return Config{}, "", fmt.Errorf("%w: %s", errFileNotFound, configPath)
			}

			return Config{}, "", nil
		}

		return Config{}, "", fmt.Errorf("%w: %s: %w", errInvalid, cfgFile, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return Config{}, "", fmt.Errorf("%w %s: %w", errInvalid, cfgFile, err)
	}

	return cfg, cfgFile, nil
}

func parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.Path != "" {
		base.Path = overlay.Path
	}

	if overlay.Name != "" {
		base.Name = overlay.Name
	}

	if overlay.AppendOnly {
		base.AppendOnly = true
	}

	if overlay.AOLSyncEvery != 0 {
		base.AOLSyncEvery = overlay.AOLSyncEvery
	}

	if overlay.DumpVersion2 {
		base.DumpVersion2 = true
	}

	return base
}

func validate(cfg Config) error {
	if cfg.Path == "" {
		return errPathEmpty
	}

	if cfg.Name == "" {
		return errNameEmpty
	}

	return nil
}

// Format returns cfg as indented JSON.
func Format(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format config: %w", err)
	}

	return string(data), nil
}
