package ingest

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/eringen/dossier/content"
	"github.com/eringen/dossier/store"
)

func newService(t *testing.T, features ...store.Feature) *content.Service {
	t.Helper()
	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "ingest.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.EnsureSchema(context.Background(), features...); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return content.NewService(db)
}

var fixedNow = func() time.Time { return time.Date(2025, 9, 4, 8, 0, 0, 0, time.UTC) }

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2023-03-01", "2023-03-01", true},
		{"Published 2023-03-01T10:00:00Z", "2023-03-01", true},
		{"4 September 2025", "2025-09-04", true},
		{"sworn in on 11 june 2021 at State House", "2021-06-11", true},
		{"March 2, 2023", "2023-03-02", true},
		{"March 2 2023", "2023-03-02", true},
		{"2023-13-45", "", false},
		{"last week", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseDate(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestEventType(t *testing.T) {
	tests := []struct {
		title, body, want string
	}{
		{"Ruto announces appointment", "", "Government Appointment"},
		{"Election petition", "The case was heard", "Legal Case"},
		{"Appearance at the court", "", "Court Appearance"},
		{"Nominee confirmed", "", "Government Appointment"},
		{"Hearing adjourned", "", "Court Appearance"},
		{"Bench issues ruling", "", "Legal Judgment"},
		{"Lecture on law", "", "Legal Event"},
	}
	for _, tt := range tests {
		if got := EventType(tt.title, tt.body); got != tt.want {
			t.Errorf("EventType(%q, %q) = %q, want %q", tt.title, tt.body, got, tt.want)
		}
	}
}

func TestGrading(t *testing.T) {
	if got := Significance("Argued before the Supreme Court"); got != "High" {
		t.Errorf("Significance = %q", got)
	}
	if got := Significance("A matter in the High Court"); got != "Medium" {
		t.Errorf("Significance = %q", got)
	}
	if got := Significance("A seminar"); got != "Low" {
		t.Errorf("Significance = %q", got)
	}
	if got := LegalContext("a presidential election dispute"); !strings.HasPrefix(got, "Electoral law") {
		t.Errorf("LegalContext = %q", got)
	}
	if got := LegalContext("nothing specific"); got != "General legal matter" {
		t.Errorf("LegalContext = %q", got)
	}
	if got := Category("Presidential petition", ""); got != "Election Law" {
		t.Errorf("Category = %q", got)
	}
	if got := Category("Arbitration award", "dispute under ICSID rules"); got != "International Investment Law" {
		t.Errorf("Category = %q", got)
	}
}

func TestRelatedCases(t *testing.T) {
	body := "Petition No. 1 of 2017 followed Case No. ICC-01/09-01/11 and " +
		"ICSID Case No. ARB/15/29, then petition  no. 1 again, and ICC-01/09-02/11-1."
	got := RelatedCases(body)
	want := []string{"Petition No. 1", "Case No. ICC-01/09-01/11", "ICSID Case No. ARB/15/29", "ICC-01/09-02/11-1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RelatedCases = %q, want %q", got, want)
	}
	if got := RelatedCases("no references"); got == nil || len(got) != 0 {
		t.Errorf("expected an empty list, got %v", got)
	}
}

func TestSummary(t *testing.T) {
	if got := Summary("  short  ", 10); got != "short" {
		t.Errorf("Summary = %q", got)
	}
	long := strings.Repeat("é", 250)
	got := Summary(long, 200)
	if !strings.HasSuffix(got, "...") || len([]rune(got)) != 203 {
		t.Errorf("Summary length = %d", len([]rune(got)))
	}
}

func TestEntry(t *testing.T) {
	e := Entry(Item{
		Title:   "Sworn in to the compensation panel",
		Content: "On 4 September 2025 he was appointed to the panel.",
		Date:    "unknown",
		URL:     "https://example.com/video",
		Source:  "YouTube",
		Type:    "Video Recording",
	}, fixedNow())
	if *e.EntryDate != "2025-09-04" {
		t.Errorf("date taken from text = %q", *e.EntryDate)
	}
	if *e.EventType != "Government Appointment" || *e.ConfidenceLevel != "High" {
		t.Errorf("entry = %+v", e)
	}
	if len(e.Sources) != 1 || e.Sources[0].SourceType != "Video Recording" || e.Sources[0].SourceDate != "2025-09-04" {
		t.Errorf("sources = %+v", e.Sources)
	}

	bare := Entry(Item{Title: "Untitled talk"}, fixedNow())
	if *bare.EntryDate != "2025-09-04" || *bare.ConfidenceLevel != "Medium" || bare.Sources != nil {
		t.Errorf("bare entry = %+v", bare)
	}
	if *bare.Description != "Untitled talk" {
		t.Errorf("description = %q", *bare.Description)
	}
}

func TestLoad(t *testing.T) {
	items, err := Load(strings.NewReader(`[{"title": "A", "url": "https://a", "source": "Kenya Law", "date": "2024-01-02"}]`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(items) != 1 || items[0].Source != "Kenya Law" {
		t.Errorf("items = %+v", items)
	}
	if _, err := Load(strings.NewReader(`{"not": "a list"}`)); err == nil {
		t.Error("expected an error for a non-array document")
	}
}

var batch = []Item{
	{Title: "Appointed Solicitor General", Date: "2018-07-01", URL: "https://example.com/sg", Source: "Daily Nation",
		Content: "He was appointed Solicitor General."},
	{Title: "Election petition hearing", Date: "1 September 2017", URL: "https://example.com/petition", Source: "Kenya Law",
		Content: "Petition No. 1 of 2017 was heard at the Supreme Court."},
	{Title: "Election petition hearing", Date: "2017-09-01", Source: "Duplicate in the same batch"},
	{Title: "  ", Date: "2020-01-01"},
}

func TestRunMergesAndLogs(t *testing.T) {
	svc := newService(t, store.AllFeatures()...)
	ctx := context.Background()

	rep, err := Run(ctx, svc, batch, Options{Source: "news", Posts: true, Now: fixedNow})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Found != 4 || rep.Added != 2 || rep.Posts != 2 || rep.Skipped != 1 || rep.Failed != 1 {
		t.Fatalf("report = %+v", rep)
	}
	if rep.Status != StatusPartial || !rep.Logged {
		t.Errorf("status = %q, logged = %v", rep.Status, rep.Logged)
	}

	entries, err := svc.GetTimelineEntries(ctx, content.ListOptions{})
	if err != nil {
		t.Fatalf("GetTimelineEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	petition := entries[1]
	if petition.EntryDate != "2017-09-01" || petition.Significance != "High" {
		t.Errorf("petition entry = %+v", petition)
	}
	if len(petition.RelatedCases) != 1 || len(petition.Sources) != 1 {
		t.Errorf("petition refs = %v, sources = %v", petition.RelatedCases, petition.Sources)
	}

	post, err := svc.GetPost(ctx, content.Slugify("Election petition hearing"))
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if post.Category != "Election Law" || post.Author != "Research Team" {
		t.Errorf("post = %+v", post)
	}

	again, err := Run(ctx, svc, batch[:2], Options{Source: "news", Posts: true, Now: fixedNow})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if again.Added != 0 || again.Skipped != 2 || again.Status != StatusSuccess {
		t.Errorf("second report = %+v", again)
	}

	log, err := svc.GetScrapingLog(ctx, 0)
	if err != nil {
		t.Fatalf("GetScrapingLog: %v", err)
	}
	if len(log) != 2 {
		t.Fatalf("log entries = %d, want 2", len(log))
	}
	var first content.LogEntry
	for _, e := range log {
		if e.Status == StatusPartial {
			first = e
		}
	}
	if first.Source != "news" || first.Status != StatusPartial || first.ItemsFound != 4 || first.ItemsAdded != 2 {
		t.Errorf("first run log = %+v", first)
	}
	if !strings.Contains(first.Message, "1 failed") {
		t.Errorf("message = %q", first.Message)
	}
}

func TestRunSkipsCitedURL(t *testing.T) {
	svc := newService(t, store.AllFeatures()...)
	ctx := context.Background()
	if _, err := Run(ctx, svc, batch[:1], Options{Now: fixedNow}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	moved := batch[0]
	moved.Title = "Solicitor General appointment confirmed"
	rep, err := Run(ctx, svc, []Item{moved}, Options{Now: fixedNow})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Added != 0 || rep.Skipped != 1 {
		t.Errorf("report = %+v", rep)
	}
}

func TestRunWithoutScrapingLog(t *testing.T) {
	svc := newService(t)
	rep, err := Run(context.Background(), svc, batch[:1], Options{Now: fixedNow})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Added != 1 || rep.Logged {
		t.Errorf("report = %+v", rep)
	}
}
