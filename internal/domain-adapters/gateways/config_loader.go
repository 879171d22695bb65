package gateways

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ochairo/reposync/internal/domain/entities"
	"github.com/ochairo/reposync/internal/external-adapters/toml"
	"github.com/ochairo/reposync/internal/external-adapters/yaml"
)

// Environment variables that override the configuration file
const (
	EnvRoot     = "REPOSYNC_ROOT"
	EnvFeedURL  = "REPOSYNC_FEED_URL"
	EnvDryRun   = "REPOSYNC_DRY_RUN"
	EnvLogLevel = "REPOSYNC_LOG_LEVEL"
)

// ConfigParser turns raw configuration bytes into a SyncConfig
type ConfigParser interface {
	Parse(data []byte) (*entities.SyncConfig, error)
}

// ConfigLoader reads the configuration file and applies environment overrides
type ConfigLoader struct {
	parsers map[string]ConfigParser
	getenv  func(string) string
}

// NewConfigLoader creates a loader for .yml, .yaml and .toml files.
// getenv defaults to os.Getenv.
func NewConfigLoader(getenv func(string) string) *ConfigLoader {
	if getenv == nil {
		getenv = os.Getenv
	}
	yamlParser := yaml.NewConfigParser()
	return &ConfigLoader{
		parsers: map[string]ConfigParser{
			".yml":  yamlParser,
			".yaml": yamlParser,
			".toml": toml.NewConfigParser(),
		},
		getenv: getenv,
	}
}

// Load parses path and applies environment overrides. A missing file is
// only an error when required is set; otherwise defaults are used.
// The result is not validated.
func (l *ConfigLoader) Load(path string, required bool) (*entities.SyncConfig, error) {
	cfg, err := l.parseFile(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !required:
		cfg = entities.DefaultSyncConfig()
	default:
		return nil, err
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *ConfigLoader) parseFile(path string) (*entities.SyncConfig, error) {
	ext := strings.ToLower(filepath.Ext(path))
	parser, ok := l.parsers[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported config format %q (want .yml, .yaml or .toml)", ext)
	}

	//nolint:gosec // G304: path is the operator-supplied config path
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (l *ConfigLoader) applyEnv(cfg *entities.SyncConfig) error {
	if v := l.getenv(EnvRoot); v != "" {
		cfg.Root = v
	}
	if v := l.getenv(EnvFeedURL); v != "" {
		cfg.Feed.URL = v
	}
	if v := l.getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := l.getenv(EnvDryRun); v != "" {
		dryRun, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvDryRun, v, err)
		}
		cfg.DryRun = dryRun
	}
	return nil
}
