// Package toml provides TOML-based configuration parsing.
package toml

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ochairo/reposync/internal/domain/entities"
)

// tomlConfig represents the raw TOML document
type tomlConfig struct {
	Root      string      `toml:"root"`
	DryRun    *bool       `toml:"dry_run"`
	LogLevel  string      `toml:"log_level"`
	LogFormat string      `toml:"log_format"`
	Feed      tomlFeed    `toml:"feed"`
	Rules     []tomlRule  `toml:"rules"`
	Signing   tomlSigning `toml:"signing"`
	Debian    tomlDebian  `toml:"debian"`
	RPM       tomlRPM     `toml:"rpm"`
	Metrics   tomlMetrics `toml:"metrics"`
}

type tomlFeed struct {
	URL            string  `toml:"url"`
	Timeout        string  `toml:"timeout"`
	Retries        *int    `toml:"retries"`
	TokenEnv       string  `toml:"token_env"`
	UserAgent      string  `toml:"user_agent"`
	ChecksumsAsset *string `toml:"checksums_asset"`
}

type tomlRule struct {
	Token  string `toml:"token"`
	Bucket string `toml:"bucket"`
	Format string `toml:"format"`
}

type tomlSigning struct {
	Backend       string `toml:"backend"`
	KeyFile       string `toml:"key_file"`
	PublicKeyFile string `toml:"public_key_file"`
	PassphraseEnv string `toml:"passphrase_env"`
	GPGBinary     string `toml:"gpg_binary"`
	KeyID         string `toml:"key_id"`
}

type tomlDebian struct {
	Codename string `toml:"codename"`
	Reprepro string `toml:"reprepro"`
}

type tomlRPM struct {
	RPM         string `toml:"rpm"`
	Createrepo  string `toml:"createrepo"`
	PackagesDir string `toml:"packages_dir"`
	PackageGlob string `toml:"package_glob"`
}

type tomlMetrics struct {
	Textfile string `toml:"textfile"`
}

// ConfigParser parses TOML configuration files
type ConfigParser struct{}

// NewConfigParser creates a new TOML parser
func NewConfigParser() *ConfigParser {
	return &ConfigParser{}
}

// ParseFile parses a TOML configuration file into a SyncConfig
func (p *ConfigParser) ParseFile(filePath string) (*entities.SyncConfig, error) {
	//nolint:gosec // G304: filePath is the operator-supplied config path
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data)
}

// Parse parses TOML bytes on top of the default configuration.
// Unknown keys are rejected.
func (p *ConfigParser) Parse(data []byte) (*entities.SyncConfig, error) {
	var raw tomlConfig
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("failed to parse TOML: unknown keys %s", strings.Join(keys, ", "))
	}

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
		cfg.Rules = make([]entities.ClassificationRule, 0, len(raw.Rules))
		for i, r := range raw.Rules {
			format, err := entities.ParseBucketFormat(r.Format)
			if err != nil {
				return nil, fmt.Errorf("rules[%d]: %w", i, err)
			}
			cfg.Rules = append(cfg.Rules, entities.ClassificationRule{
				Token:  r.Token,
				Bucket: entities.Bucket(r.Bucket),
				Format: format,
			})
		}
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

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
