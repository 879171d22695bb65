package entities

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Validate checks the configuration for values the sync pipeline cannot work with
func (c *SyncConfig) Validate() error {
	if err := c.ValidateTree(); err != nil {
		return err
	}

	u, err := url.Parse(c.Feed.URL)
	if err != nil {
		return fmt.Errorf("invalid feed url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("feed url must be http(s), got %q", c.Feed.URL)
	}
	if c.Feed.Timeout <= 0 {
		return fmt.Errorf("feed timeout must be positive, got %v", c.Feed.Timeout)
	}
	if c.Feed.Retries < 0 {
		return fmt.Errorf("feed retries must not be negative")
	}

	switch c.Signing.Backend {
	case "openpgp":
		if c.Signing.KeyFile == "" && !c.DryRun {
			return fmt.Errorf("signing.key_file is required for the openpgp backend")
		}
	case "gpg":
		if c.Signing.GPGBinary == "" {
			return fmt.Errorf("signing.gpg_binary must be set for the gpg backend")
		}
	default:
		return fmt.Errorf("unknown signing backend %q (want openpgp or gpg)", c.Signing.Backend)
	}

	if c.Debian.Codename == "" {
		return fmt.Errorf("debian.codename must be set")
	}

	return nil
}

// ValidateTree checks only what is needed to read the repository tree:
// the root, the rules that derive the bucket set and the log settings
func (c *SyncConfig) ValidateTree() error {
	if c.Root == "" {
		return fmt.Errorf("root must be set")
	}
	if !filepath.IsAbs(c.Root) {
		return fmt.Errorf("root must be an absolute path, got %q", c.Root)
	}

	if err := ValidateRules(c.Rules); err != nil {
		return err
	}

	if c.RPM.PackagesDir == "" || strings.ContainsRune(c.RPM.PackagesDir, filepath.Separator) {
		return fmt.Errorf("rpm.packages_dir must be a single directory name, got %q", c.RPM.PackagesDir)
	}

	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q (want console or json)", c.LogFormat)
	}

	return nil
}

// ValidateRules checks an ordered rule list for unusable entries
func ValidateRules(rules []ClassificationRule) error {
	if len(rules) == 0 {
		return fmt.Errorf("at least one classification rule is required")
	}

	formats := make(map[Bucket]BucketFormat)
	for i, r := range rules {
		if r.Token == "" {
			return fmt.Errorf("rule %d: token must not be empty", i)
		}
		if err := validateBucketName(r.Bucket); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
		if prev, ok := formats[r.Bucket]; ok && prev != r.Format {
			return fmt.Errorf("rule %d: bucket %q declared as both %s and %s", i, r.Bucket, prev, r.Format)
		}
		formats[r.Bucket] = r.Format
	}
	return nil
}

func validateBucketName(b Bucket) error {
	name := string(b)
	switch {
	case name == "":
		return fmt.Errorf("bucket must not be empty")
	case name == "." || name == "..":
		return fmt.Errorf("invalid bucket name %q", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("bucket name %q must not contain path separators", name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("bucket name %q must not start with a dot", name)
	}
	return nil
}
