package entities

import (
	"fmt"
	"strings"
)

// Bucket names a destination repository directory under the repository root
type Bucket string

// Unclassified is returned by the classifier when no rule matches
const Unclassified Bucket = ""

// BucketFormat identifies the packaging format a bucket publishes
type BucketFormat string

// Supported bucket formats
const (
	FormatNone BucketFormat = ""    // plain directory of files, no repository metadata
	FormatDeb  BucketFormat = "deb" // Debian-style repository managed by reprepro
	FormatRPM  BucketFormat = "rpm" // RPM-style repository built by createrepo
)

// ParseBucketFormat converts a configuration value into a BucketFormat
func ParseBucketFormat(s string) (BucketFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "platform":
		return FormatNone, nil
	case "deb", "debian", "apt":
		return FormatDeb, nil
	case "rpm", "yum":
		return FormatRPM, nil
	default:
		return FormatNone, fmt.Errorf("unknown bucket format %q", s)
	}
}

// String returns a printable name for the format
func (f BucketFormat) String() string {
	if f == FormatNone {
		return "none"
	}
	return string(f)
}

// ClassificationRule maps a filename token to a bucket
type ClassificationRule struct {
	Token  string
	Bucket Bucket
	Format BucketFormat
}

// BucketSpec describes one bucket derived from the classification rules
type BucketSpec struct {
	Name   Bucket
	Format BucketFormat
}

// IsPackageRepository reports whether the bucket carries repository metadata
func (b BucketSpec) IsPackageRepository() bool {
	return b.Format != FormatNone
}

// BucketsFromRules returns the distinct buckets named by rules in first-seen order
func BucketsFromRules(rules []ClassificationRule) []BucketSpec {
	seen := make(map[Bucket]bool)
	specs := make([]BucketSpec, 0, len(rules))
	for _, r := range rules {
		if seen[r.Bucket] {
			continue
		}
		seen[r.Bucket] = true
		specs = append(specs, BucketSpec{Name: r.Bucket, Format: r.Format})
	}
	return specs
}

// DefaultRules returns the stock rule set: network platforms first, then package formats
func DefaultRules() []ClassificationRule {
	return []ClassificationRule{
		{Token: "arista", Bucket: "arista"},
		{Token: "cisco", Bucket: "cisco"},
		{Token: "juniper", Bucket: "juniper"},
		{Token: "mikrotik", Bucket: "mikrotik"},
		{Token: ".deb", Bucket: "apt", Format: FormatDeb},
		{Token: ".rpm", Bucket: "yum", Format: FormatRPM},
	}
}
