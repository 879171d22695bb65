// Package yaml provides YAML-based configuration parsing.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ochairo/reposync/internal/domain/entities"
)

// yamlConfig represents the raw YAML structure. Pointer fields distinguish
// "absent" from an explicit zero value.
type yamlConfig struct {
	Root      string      `yaml:"root"`
	DryRun    *bool       `yaml:"dry_run"`
	LogLevel  string      `yaml:"log_level"`
	LogFormat string      `yaml:"log_format"`
	Feed      yamlFeed    `yaml:"feed"`
	Rules     []yamlRule  `yaml:"rules"`
	Signing   yamlSigning `yaml:"signing"`
	Debian    yamlDebian  `yaml:"debian"`
	RPM       yamlRPM     `yaml:"rpm"`
	Metrics   yamlMetrics `yaml:"metrics"`
}

type yamlFeed struct {
	URL            string  `yaml:"url"`
	Timeout        string  `yaml:"timeout"`
	Retries        *int    `yaml:"retries"`
	TokenEnv       string  `yaml:"token_env"`
	UserAgent      string  `yaml:"user_agent"`
	ChecksumsAsset *string `yaml:"checksums_asset"`
}

type yamlRule struct {
	Token  string `yaml:"token"`
	Bucket string `yaml:"bucket"`
	Format string `yaml:"format"`
}

type yamlSigning struct {
	Backend       string `yaml:"backend"`
	KeyFile       string `yaml:"key_file"`
	PublicKeyFile string `yaml:"public_key_file"`
	PassphraseEnv string `yaml:"passphrase_env"`
	GPGBinary     string `yaml:"gpg_binary"`
	KeyID         string `yaml:"key_id"`
}

type yamlDebian struct {
	Codename string `yaml:"codename"`
	Reprepro string `yaml:"reprepro"`
}

type yamlRPM struct {
	RPM         string `yaml:"rpm"`
	Createrepo  string `yaml:"createrepo"`
	PackagesDir string `yaml:"packages_dir"`
	PackageGlob string `yaml:"package_glob"`
}

type yamlMetrics struct {
	Textfile string `yaml:"textfile"`
}

// ConfigParser parses YAML configuration files
type ConfigParser struct{}

// NewConfigParser creates a new YAML parser
func NewConfigParser() *ConfigParser {
	return &ConfigParser{}
}

// ParseFile parses a YAML configuration file into a SyncConfig
func (p *ConfigParser) ParseFile(filePath string) (*entities.SyncConfig, error) {
	//nolint:gosec // G304: filePath is the operator-supplied config path
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data)
}

// Parse parses YAML bytes on top of the default configuration.
// Unknown keys are rejected.
func (p *ConfigParser) Parse(data []byte) (*entities.SyncConfig, error) {
	var raw yamlConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return convertConfig(raw)
}

func convertConfig(raw yamlConfig) (*entities.SyncConfig, error) {
	cfg := entities.DefaultSyncConfig()

	setString(&cfg.Root, raw.Root)
	if raw.DryRun != nil {
		cfg.DryRun = *raw.DryRun
	}
	setString(&cfg.LogLevel, raw.LogLevel)
	setString(&cfg.LogFormat, raw.LogFormat)

	setString(&cfg.Feed.URL, raw.Feed.URL)
	if raw.Feed.Timeout != "" {
		timeout, err := time.ParseDuration(raw.Feed.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid feed.timeout %q: %w", raw.Feed.Timeout, err)
		}
		cfg.Feed.Timeout = timeout
	}
	if raw.Feed.Retries != nil {
		cfg.Feed.Retries = *raw.Feed.Retries
	}
	setString(&cfg.Feed.TokenEnv, raw.Feed.TokenEnv)
	setString(&cfg.Feed.UserAgent, raw.Feed.UserAgent)
	if raw.Feed.ChecksumsAsset != nil {
		cfg.Feed.ChecksumsAsset = *raw.Feed.ChecksumsAsset
	}

	if len(raw.Rules) > 0 {
		rules, err := convertRules(raw.Rules)
		if err != nil {
			return nil, err
		}
		cfg.Rules = rules
	}

	setString(&cfg.Signing.Backend, raw.Signing.Backend)
	setString(&cfg.Signing.KeyFile, raw.Signing.KeyFile)
	setString(&cfg.Signing.PublicKeyFile, raw.Signing.PublicKeyFile)
	setString(&cfg.Signing.PassphraseEnv, raw.Signing.PassphraseEnv)
	setString(&cfg.Signing.GPGBinary, raw.Signing.GPGBinary)
	setString(&cfg.Signing.KeyID, raw.Signing.KeyID)

	setString(&cfg.Debian.Codename, raw.Debian.Codename)
	setString(&cfg.Debian.Reprepro, raw.Debian.Reprepro)

	setString(&cfg.RPM.RPM, raw.RPM.RPM)
	setString(&cfg.RPM.Createrepo, raw.RPM.Createrepo)
	setString(&cfg.RPM.PackagesDir, raw.RPM.PackagesDir)
	setString(&cfg.RPM.PackageGlob, raw.RPM.PackageGlob)

	setString(&cfg.Metrics.Textfile, raw.Metrics.Textfile)

	return cfg, nil
}

func convertRules(raw []yamlRule) ([]entities.ClassificationRule, error) {
	rules := make([]entities.ClassificationRule, 0, len(raw))
	for i, r := range raw {
		format, err := entities.ParseBucketFormat(r.Format)
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		rules = append(rules, entities.ClassificationRule{
			Token:  r.Token,
			Bucket: entities.Bucket(r.Bucket),
			Format: format,
		})
	}
	return rules, nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
