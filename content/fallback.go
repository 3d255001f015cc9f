package content

import "github.com/eringen/dossier/store"

type operation string

const (
	opListPosts        operation = "getPosts"
	opGetPost          operation = "getPost"
	opCreatePost       operation = "createPost"
	opUpdatePost       operation = "updatePost"
	opArchivePost      operation = "archivePost"
	opDeletePost       operation = "deletePost"
	opListTimeline     operation = "getTimelineEntries"
	opGetTimelineEntry operation = "getTimelineEntry"
	opCreateTimeline   operation = "createTimelineEntry"
	opUpdateTimeline   operation = "updateTimelineEntry"
	opDeleteTimeline   operation = "deleteTimelineEntry"
	opSources          operation = "sources"
	opScrapingLog      operation = "getScrapingLog"
	opProfile          operation = "profile"
	opCompany          operation = "company"
	opStats            operation = "stats"
	opProbe            operation = "probe"
)

// action is what the layer does when a store call fails with a recognized
// schema-drift code.
type action int

const (
	propagate action = iota
	retryWithoutArchiveFilter
	omitArchiveField
	featureUnavailable
	retryWithoutSources
	emptyResult
	skipSources
	computeLocally
)

func (a action) String() string {
	switch a {
	case retryWithoutArchiveFilter:
		return "retry without archive filter"
	case omitArchiveField:
		return "omit archive field"
	case featureUnavailable:
		return "feature unavailable"
	case retryWithoutSources:
		return "retry without sources"
	case emptyResult:
		return "empty result"
	case skipSources:
		return "skip sources"
	case computeLocally:
		return "compute locally"
	}
	return "propagate"
}

type fallbackKey struct {
	op   operation
	code string
}

// fallbacks is the complete set of recoverable failures. Anything not listed
// propagates as a *StoreError.
var fallbacks = map[fallbackKey]action{
	{opListPosts, store.CodeUndefinedColumn}:         retryWithoutArchiveFilter,
	{opListPosts, store.CodeRelationNotFound}:        retryWithoutSources,
	{opGetPost, store.CodeRelationNotFound}:          retryWithoutSources,
	{opCreatePost, store.CodeUndefinedColumn}:        omitArchiveField,
	{opArchivePost, store.CodeUndefinedColumn}:       featureUnavailable,
	{opListTimeline, store.CodeRelationNotFound}:     retryWithoutSources,
	{opGetTimelineEntry, store.CodeRelationNotFound}: retryWithoutSources,
	{opSources, store.CodeResourceNotFound}:          skipSources,
	{opScrapingLog, store.CodeResourceNotFound}:      emptyResult,
	{opStats, store.CodeFunctionNotFound}:            computeLocally,
	{opProbe, store.CodeUndefinedColumn}:             featureUnavailable,
	{opProbe, store.CodeResourceNotFound}:            featureUnavailable,
	{opProbe, store.CodeRelationNotFound}:            featureUnavailable,
	{opProbe, store.CodeFunctionNotFound}:            featureUnavailable,
}

// decide looks up the fallback for err raised by op.
func decide(op operation, err error) action {
	if err == nil {
		return propagate
	}
	return fallbacks[fallbackKey{op, store.CodeOf(err)}]
}
