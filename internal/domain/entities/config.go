package entities

import "time"

// SyncConfig is the resolved configuration for one reposync invocation
type SyncConfig struct {
	Root      string
	DryRun    bool
	LogLevel  string
	LogFormat string
	Feed      FeedConfig
	Rules     []ClassificationRule
	Signing   SigningConfig
	Debian    DebianConfig
	RPM       RPMConfig
	Metrics   MetricsConfig
}

// FeedConfig describes the release feed endpoint
type FeedConfig struct {
	URL       string
	Timeout   time.Duration
	Retries   int
	TokenEnv  string // name of the env var holding a bearer token
	UserAgent string
	// ChecksumsAsset names the release asset listing sha256 sums; empty disables verification
	ChecksumsAsset string
}

// SigningConfig selects and configures the detached-signature backend
type SigningConfig struct {
	Backend       string // "openpgp" or "gpg"
	KeyFile       string // armored private key (openpgp) or public key (verify)
	PublicKeyFile string
	PassphraseEnv string
	GPGBinary     string
	KeyID         string
}

// DebianConfig configures reprepro ingestion
type DebianConfig struct {
	Codename string
	Reprepro string
}

// RPMConfig configures RPM repository ingestion and finalization
type RPMConfig struct {
	RPM         string
	Createrepo  string
	PackagesDir string
	PackageGlob string
}

// MetricsConfig configures run metrics output
type MetricsConfig struct {
	Textfile string
}

// Buckets returns the bucket set derived from the configured rules
func (c *SyncConfig) Buckets() []BucketSpec {
	return BucketsFromRules(c.Rules)
}

// Default configuration values
const (
	DefaultRoot        = "/usr/share/caddy"
	DefaultFeedURL     = "https://api.github.com/repos/natesales/pathvector/releases/latest"
	DefaultFeedTimeout = 5 * time.Minute
	DefaultUserAgent   = "reposync/1.0"
	DefaultChecksums   = "checksums.txt"
	DefaultCodename    = "stable"
	DefaultPackagesDir = "Packages"
	DefaultPackageGlob = "*.rpm"
)

// DefaultSyncConfig returns a configuration with every default filled in
func DefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		Root:      DefaultRoot,
		LogLevel:  "info",
		LogFormat: "console",
		Feed: FeedConfig{
			URL:            DefaultFeedURL,
			Timeout:        DefaultFeedTimeout,
			Retries:        3,
			UserAgent:      DefaultUserAgent,
			ChecksumsAsset: DefaultChecksums,
		},
		Rules: DefaultRules(),
		Signing: SigningConfig{
			Backend:   "openpgp",
			GPGBinary: "gpg",
		},
		Debian: DebianConfig{
			Codename: DefaultCodename,
			Reprepro: "reprepro",
		},
		RPM: RPMConfig{
			RPM:         "rpm",
			Createrepo:  "createrepo",
			PackagesDir: DefaultPackagesDir,
			PackageGlob: DefaultPackageGlob,
		},
	}
}
