package content

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/eringen/dossier/store"
)

func TestCreateTimelineEntryDropsUnknownFields(t *testing.T) {
	s, _ := newTestService(t, store.AllFeatures()...)
	ctx := context.Background()

	var in TimelineInput
	body := `{"entry_date":"2024-02-10","event_type":"Legal Case","title":"Petition filed",` +
		`"related_cases":["A","B","A"],"confidence_level":"High","rogue_field":"x"}`
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if in.Extra["rogue_field"] != "x" {
		t.Fatalf("Extra = %v", in.Extra)
	}

	e, err := s.CreateTimelineEntry(ctx, in)
	if err != nil {
		t.Fatalf("CreateTimelineEntry: %v", err)
	}
	if e.ID == "" || e.Title != "Petition filed" || e.EventType != "Legal Case" || e.ConfidenceLevel != "High" {
		t.Errorf("entry = %+v", e)
	}
	if len(e.RelatedCases) != 2 {
		t.Errorf("RelatedCases = %v", e.RelatedCases)
	}

	rows, err := s.Backend().Select(ctx, store.From("timeline_entries").Eq("id", e.ID))
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, ok := rows[0]["rogue_field"]; ok {
		t.Error("rogue_field was stored")
	}
	out, _ := json.Marshal(e)
	var back map[string]any
	json.Unmarshal(out, &back)
	if _, ok := back["rogue_field"]; ok {
		t.Error("rogue_field returned")
	}
}

func TestAllowListOmitsUnset(t *testing.T) {
	row := allowList(map[string]any{
		"title":       "t",
		"description": nil,
		"id":          "forged",
		"created_at":  "1999-01-01",
	}, timelineFields)
	if len(row) != 1 || row["title"] != "t" {
		t.Errorf("row = %v", row)
	}
}

func TestCreateTimelineEntryValidation(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	cases := []TimelineInput{
		{EntryDate: Str("2024-01-01")},
		{Title: Str("No date")},
		{Title: Str("Bad date"), EntryDate: Str("01/02/2024")},
	}
	for i, in := range cases {
		if _, err := s.CreateTimelineEntry(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("case %d: got %v", i, err)
		}
	}
}

func TestGetTimelineEntryWithoutSourcesRelation(t *testing.T) {
	s, logger := newTestService(t)
	ctx := context.Background()
	e, err := s.CreateTimelineEntry(ctx, TimelineInput{
		Title:     Str("Sworn in"),
		EntryDate: Str("2023-07-01"),
		Sources:   []Source{{URL: "https://news.example/a"}},
	})
	if err != nil {
		t.Fatalf("CreateTimelineEntry: %v", err)
	}
	if e.Sources == nil || len(e.Sources) != 0 {
		t.Errorf("sources = %v, want empty", e.Sources)
	}

	got, err := s.GetTimelineEntry(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetTimelineEntry: %v", err)
	}
	if got.Sources == nil || len(got.Sources) != 0 {
		t.Errorf("sources = %v, want empty", got.Sources)
	}
	list, err := s.GetTimelineEntries(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("GetTimelineEntries: %v", err)
	}
	if len(list) != 1 || list[0].Sources == nil {
		t.Errorf("list = %+v", list)
	}
	if logger.count() < 3 {
		t.Errorf("expected fallbacks to be logged, got %d", logger.count())
	}

	if _, err := s.GetTimelineEntry(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing entry: %v", err)
	}
}

func TestTimelineSourcesEndToEnd(t *testing.T) {
	s, _ := newTestService(t, store.AllFeatures()...)
	ctx := context.Background()
	e, err := s.CreateTimelineEntry(ctx, TimelineInput{
		Title:     Str("Appointed"),
		EntryDate: Str("2024-01-15"),
		EventType: Str("Government Appointment"),
		Sources: []Source{
			{URL: "https://first.example", Title: "First", SourceDate: "2024-01-15"},
			{URL: "https://second.example", Title: "Second"},
		},
	})
	if err != nil {
		t.Fatalf("CreateTimelineEntry: %v", err)
	}

	got, err := s.GetTimelineEntry(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetTimelineEntry: %v", err)
	}
	if len(got.Sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(got.Sources))
	}
	if got.Sources[0].URL != "https://first.example" || got.Sources[1].URL != "https://second.example" {
		t.Errorf("sources out of insertion order: %+v", got.Sources)
	}
	if got.Sources[0].SourceDate != "2024-01-15" {
		t.Errorf("SourceDate = %q", got.Sources[0].SourceDate)
	}

	updated, err := s.UpdateTimelineEntry(ctx, e.ID, TimelineInput{
		Sources: []Source{got.Sources[1]},
	})
	if err != nil {
		t.Fatalf("UpdateTimelineEntry: %v", err)
	}
	if len(updated.Sources) != 1 {
		t.Errorf("update returned %d sources", len(updated.Sources))
	}
	if updated.Title != "Appointed" {
		t.Errorf("title lost in partial update: %q", updated.Title)
	}

	again, err := s.GetTimelineEntry(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetTimelineEntry: %v", err)
	}
	if len(again.Sources) != 1 || again.Sources[0].URL != "https://second.example" {
		t.Errorf("sources after update = %+v", again.Sources)
	}
}

func TestUpdateTimelineEntryKeepsSourcesWhenUnset(t *testing.T) {
	s, _ := newTestService(t, store.AllFeatures()...)
	ctx := context.Background()
	e, err := s.CreateTimelineEntry(ctx, TimelineInput{
		Title:     Str("Hearing"),
		EntryDate: Str("2024-03-03"),
		Sources:   []Source{{URL: "https://court.example"}},
	})
	if err != nil {
		t.Fatalf("CreateTimelineEntry: %v", err)
	}
	updated, err := s.UpdateTimelineEntry(ctx, e.ID, TimelineInput{Description: Str("Adjourned")})
	if err != nil {
		t.Fatalf("UpdateTimelineEntry: %v", err)
	}
	if updated.Description != "Adjourned" || len(updated.Sources) != 1 {
		t.Errorf("updated = %+v", updated)
	}
	if !updated.UpdatedAt.After(e.UpdatedAt) {
		t.Error("updated_at did not advance")
	}

	cleared, err := s.UpdateTimelineEntry(ctx, e.ID, TimelineInput{Sources: []Source{}})
	if err != nil {
		t.Fatalf("UpdateTimelineEntry: %v", err)
	}
	if len(cleared.Sources) != 0 {
		t.Errorf("sources not cleared: %+v", cleared.Sources)
	}

	if _, err := s.UpdateTimelineEntry(ctx, "missing", TimelineInput{Title: Str("x")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: %v", err)
	}
}

func TestGetTimelineEntriesOrder(t *testing.T) {
	s, _ := newTestService(t, store.AllFeatures()...)
	ctx := context.Background()
	for _, d := range []string{"2022-05-01", "2024-05-01", "2023-05-01"} {
		if _, err := s.CreateTimelineEntry(ctx, TimelineInput{Title: Str("Event " + d), EntryDate: Str(d)}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	list, err := s.GetTimelineEntries(ctx, ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("GetTimelineEntries: %v", err)
	}
	if len(list) != 2 || list[0].EntryDate != "2024-05-01" || list[1].EntryDate != "2023-05-01" {
		t.Errorf("list = %+v", list)
	}
}

func TestDeleteTimelineEntry(t *testing.T) {
	s, _ := newTestService(t, store.AllFeatures()...)
	ctx := context.Background()
	e, err := s.CreateTimelineEntry(ctx, TimelineInput{
		Title:     Str("Withdrawn"),
		EntryDate: Str("2024-04-04"),
		Sources:   []Source{{URL: "https://a.example"}, {URL: "https://b.example"}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	prior, err := s.DeleteTimelineEntry(ctx, e.ID)
	if err != nil {
		t.Fatalf("DeleteTimelineEntry: %v", err)
	}
	if prior.Title != "Withdrawn" || len(prior.Sources) != 2 {
		t.Errorf("prior = %+v", prior)
	}
	left, err := s.Backend().Select(ctx, store.From("timeline_sources").Eq("timeline_entry_id", e.ID))
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("orphaned sources: %v", left)
	}
	if _, err := s.DeleteTimelineEntry(ctx, e.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}
