package yaml

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/reposync/internal/domain/entities"
)

func TestConfigParser_Parse_Full(t *testing.T) {
	parser := NewConfigParser()
	data := []byte(`root: /srv/repo
dry_run: true
log_level: debug
log_format: json
feed:
  url: https://api.github.com/repos/example/tool/releases/latest
  timeout: 90s
  retries: 0
  token_env: GITHUB_TOKEN
  user_agent: mirror/2.0
  checksums_asset: ""
rules:
  - token: arista
    bucket: arista
  - token: .deb
    bucket: apt
    format: deb
  - token: .rpm
    bucket: yum
    format: rpm
signing:
  backend: gpg
  key_file: /etc/reposync/signing.asc
  public_key_file: /etc/reposync/signing.pub.asc
  passphrase_env: REPOSYNC_PASSPHRASE
  gpg_binary: /usr/bin/gpg2
  key_id: ABCD1234
debian:
  codename: bookworm
  reprepro: /usr/local/bin/reprepro
rpm:
  rpm: /usr/bin/rpm
  createrepo: createrepo_c
  packages_dir: RPMS
  package_glob: "*.x86_64.rpm"
metrics:
  textfile: /var/lib/node_exporter/reposync.prom
`)

	cfg, err := parser.Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "/srv/repo", cfg.Root)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 90*time.Second, cfg.Feed.Timeout)
	assert.Equal(t, 0, cfg.Feed.Retries, "explicit zero disables retries")
	assert.Equal(t, "GITHUB_TOKEN", cfg.Feed.TokenEnv)
	assert.Equal(t, "mirror/2.0", cfg.Feed.UserAgent)
	assert.Empty(t, cfg.Feed.ChecksumsAsset, "explicit empty string disables checksum verification")

	require.Len(t, cfg.Rules, 3)
	assert.Equal(t, entities.ClassificationRule{Token: ".deb", Bucket: "apt", Format: entities.FormatDeb}, cfg.Rules[1])
	assert.Equal(t, entities.FormatNone, cfg.Rules[0].Format)

	assert.Equal(t, "gpg", cfg.Signing.Backend)
	assert.Equal(t, "/etc/reposync/signing.pub.asc", cfg.Signing.PublicKeyFile)
	assert.Equal(t, "ABCD1234", cfg.Signing.KeyID)
	assert.Equal(t, "bookworm", cfg.Debian.Codename)
	assert.Equal(t, "createrepo_c", cfg.RPM.Createrepo)
	assert.Equal(t, "RPMS", cfg.RPM.PackagesDir)
	assert.Equal(t, "*.x86_64.rpm", cfg.RPM.PackageGlob)
	assert.Equal(t, "/var/lib/node_exporter/reposync.prom", cfg.Metrics.Textfile)
}

func TestConfigParser_Parse_DefaultsFillGaps(t *testing.T) {
	cfg, err := NewConfigParser().Parse([]byte("signing:\n  key_file: /etc/key.asc\n"))
	require.NoError(t, err)

	defaults := entities.DefaultSyncConfig()
	assert.Equal(t, defaults.Root, cfg.Root)
	assert.Equal(t, defaults.Feed, cfg.Feed)
	assert.Equal(t, defaults.Rules, cfg.Rules)
	assert.Equal(t, "openpgp", cfg.Signing.Backend)
	assert.Equal(t, "/etc/key.asc", cfg.Signing.KeyFile)
}

func TestConfigParser_Parse_Empty(t *testing.T) {
	cfg, err := NewConfigParser().Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultSyncConfig(), cfg)
}

func TestConfigParser_Parse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"unknown key", "roots: /srv\n", "failed to parse YAML"},
		{"bad syntax", "feed: [\n", "failed to parse YAML"},
		{"bad duration", "feed:\n  timeout: soon\n", "invalid feed.timeout"},
		{"bad format", "rules:\n  - token: .apk\n    bucket: apk\n    format: apk\n", "rules[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfigParser().Parse([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigParser_ParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reposync.yml")
	require.NoError(t, os.WriteFile(path, []byte("root: /srv/mirror\n"), 0600))

	cfg, err := NewConfigParser().ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/mirror", cfg.Root)

	_, err = NewConfigParser().ParseFile(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorContains(t, err, "failed to read file")
}
