// Package services contains domain logic that does not touch external systems.
package services

import (
	"strings"

	"github.com/ochairo/reposync/internal/domain/entities"
)

// Classifier maps artifact filenames to buckets using an ordered rule list.
// The first rule whose token appears in the name wins, so rule order is the
// precedence: the default rules list every platform token before the package
// format tokens.
type Classifier struct {
	rules []entities.ClassificationRule
}

// NewClassifier creates a classifier after validating the rules
func NewClassifier(rules []entities.ClassificationRule) (*Classifier, error) {
	if err := entities.ValidateRules(rules); err != nil {
		return nil, err
	}

	copied := make([]entities.ClassificationRule, len(rules))
	copy(copied, rules)

	return &Classifier{rules: copied}, nil
}

// Classify returns the bucket for name, or entities.Unclassified
func (c *Classifier) Classify(name string) entities.Bucket {
	if rule, ok := c.Match(name); ok {
		return rule.Bucket
	}
	return entities.Unclassified
}

// Match returns the rule that classifies name
func (c *Classifier) Match(name string) (entities.ClassificationRule, bool) {
	for _, rule := range c.rules {
		if strings.Contains(name, rule.Token) {
			return rule, true
		}
	}
	return entities.ClassificationRule{}, false
}

// Buckets returns every bucket the rules can produce, in first-seen order
func (c *Classifier) Buckets() []entities.BucketSpec {
	return entities.BucketsFromRules(c.rules)
}
