package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/eringen/dossier/store"
)

const timelineTable = "timeline_entries"

// timelineFields are the only columns a timeline write may touch, besides
// the timestamps the layer sets itself.
var timelineFields = []string{
	"entry_date",
	"event_type",
	"title",
	"description",
	"significance",
	"legal_context",
	"related_cases",
	"confidence_level",
}

// allowList copies the keys of fields named in allowed. Nil values are left
// out rather than written as NULL.
func allowList(fields map[string]any, allowed []string) store.Row {
	row := make(store.Row, len(allowed))
	for _, k := range allowed {
		if v, ok := fields[k]; ok && v != nil {
			row[k] = v
		}
	}
	return row
}

// fields flattens the input, including unknown keys, as the form sent it.
func (in TimelineInput) fields() map[string]any {
	m := make(map[string]any, len(in.Extra)+len(timelineFields))
	for k, v := range in.Extra {
		m[k] = v
	}
	set := func(k string, v *string) {
		if v != nil {
			m[k] = strings.TrimSpace(*v)
		}
	}
	set("entry_date", in.EntryDate)
	set("event_type", in.EventType)
	set("title", in.Title)
	set("description", in.Description)
	set("significance", in.Significance)
	set("legal_context", in.LegalContext)
	set("confidence_level", in.ConfidenceLevel)
	if in.RelatedCases != nil {
		m["related_cases"] = Dedupe(in.RelatedCases)
	}
	return m
}

func (in TimelineInput) validate(create bool) error {
	if err := validateTitle(in.Title, create); err != nil {
		return err
	}
	if create && in.EntryDate == nil {
		return fmt.Errorf("%w: entry_date is required", ErrInvalidInput)
	}
	return validateDate("entry_date", in.EntryDate)
}

// GetTimelineEntries lists entries newest first, each with its sources. When
// the sources relation does not exist every entry has no sources.
func (s *Service) GetTimelineEntries(ctx context.Context, opts ListOptions) ([]TimelineEntry, error) {
	q := store.From(timelineTable).
		Order("entry_date", true).
		Range(opts.Offset, opts.Limit).
		With(timelineSources.embed())
	rows, err := s.selectWithFallback(ctx, opListTimeline, q)
	if err != nil {
		return nil, err
	}
	return decodeEntries(rows)
}

// GetTimelineEntry returns one entry with its sources.
func (s *Service) GetTimelineEntry(ctx context.Context, id string) (TimelineEntry, error) {
	q := store.From(timelineTable).Eq("id", id).With(timelineSources.embed())
	rows, err := s.selectWithFallback(ctx, opGetTimelineEntry, q)
	if err != nil {
		return TimelineEntry{}, err
	}
	row, err := store.Single(rows)
	if err != nil {
		return TimelineEntry{}, wrap(opGetTimelineEntry, err)
	}
	return decodeEntry(row)
}

// CreateTimelineEntry inserts an entry. Only the known timeline fields are
// written; anything else in the input is dropped.
func (s *Service) CreateTimelineEntry(ctx context.Context, in TimelineInput) (TimelineEntry, error) {
	if err := in.validate(true); err != nil {
		return TimelineEntry{}, err
	}
	row := allowList(in.fields(), timelineFields)
	now := s.now()
	row["created_at"] = now
	row["updated_at"] = now

	rows, err := s.db.Insert(ctx, timelineTable, row)
	if err != nil {
		return TimelineEntry{}, wrap(opCreateTimeline, err)
	}
	inserted, err := store.Single(rows)
	if err != nil {
		return TimelineEntry{}, wrap(opCreateTimeline, err)
	}
	e, err := decodeEntry(inserted)
	if err != nil {
		return TimelineEntry{}, err
	}
	if len(in.Sources) > 0 {
		if e.Sources, err = s.replaceSources(ctx, timelineSources, e.ID, in.Sources); err != nil {
			return TimelineEntry{}, err
		}
	}
	return e, nil
}

// UpdateTimelineEntry merges the set, known fields of in into the entry. A
// non-nil Sources replaces the entry's sources.
func (s *Service) UpdateTimelineEntry(ctx context.Context, id string, in TimelineInput) (TimelineEntry, error) {
	if err := in.validate(false); err != nil {
		return TimelineEntry{}, err
	}
	row := allowList(in.fields(), timelineFields)
	row["updated_at"] = s.now()

	rows, err := s.db.Update(ctx, timelineTable, row, store.Eq("id", id))
	if err != nil {
		return TimelineEntry{}, wrap(opUpdateTimeline, err)
	}
	updated, err := store.Single(rows)
	if err != nil {
		return TimelineEntry{}, wrap(opUpdateTimeline, err)
	}
	e, err := decodeEntry(updated)
	if err != nil {
		return TimelineEntry{}, err
	}
	if in.Sources != nil {
		e.Sources, err = s.replaceSources(ctx, timelineSources, e.ID, in.Sources)
	} else {
		e.Sources, err = s.loadSources(ctx, timelineSources, e.ID)
	}
	if err != nil {
		return TimelineEntry{}, err
	}
	return e, nil
}

// DeleteTimelineEntry removes an entry and its sources and returns the entry
// as it was.
func (s *Service) DeleteTimelineEntry(ctx context.Context, id string) (TimelineEntry, error) {
	prior, err := s.GetTimelineEntry(ctx, id)
	if err != nil {
		return TimelineEntry{}, err
	}
	rows, err := s.db.Delete(ctx, timelineTable, store.Eq("id", id))
	if err != nil {
		return TimelineEntry{}, wrap(opDeleteTimeline, err)
	}
	if _, err := store.Single(rows); err != nil {
		return TimelineEntry{}, wrap(opDeleteTimeline, err)
	}
	if err := s.deleteSources(ctx, timelineSources, prior.ID); err != nil {
		return TimelineEntry{}, err
	}
	return prior, nil
}
