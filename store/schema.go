package store

import (
	"context"
	"fmt"
)

// Feature names an optional schema element. A database that has not applied
// a feature is still usable; the content layer degrades around it.
type Feature string

const (
	FeatureArchive         Feature = "archive"          // blog_posts.is_archived
	FeatureTimelineSources Feature = "timeline_sources" // timeline_sources table
	FeaturePostSources     Feature = "blog_sources"     // blog_sources table
	FeatureScrapingLog     Feature = "scraping_log"     // scraping_log table
	FeatureStats           Feature = "dashboard_stats"  // dashboard_stats procedure
)

// AllFeatures lists every optional feature in the order migrations apply them.
func AllFeatures() []Feature {
	return []Feature{
		FeatureArchive,
		FeatureTimelineSources,
		FeaturePostSources,
		FeatureScrapingLog,
		FeatureStats,
	}
}

// ParseFeature validates a feature name.
func ParseFeature(s string) (Feature, error) {
	for _, f := range AllFeatures() {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("store: unknown feature %q", s)
}

// Migrator is implemented by drivers that can create the base schema and
// apply optional features.
type Migrator interface {
	EnsureSchema(ctx context.Context, features ...Feature) error
}
