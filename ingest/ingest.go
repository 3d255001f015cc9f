// Package ingest merges scraped news and court items into the dossier. Each
// item is dated, classified and turned into a timeline entry (and optionally
// a case writeup); items already present are skipped, and every run is
// recorded in the scraping log.
//
// Fetching is not done here. Items arrive as JSON produced by whatever
// collected them.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/eringen/dossier/content"
	"github.com/eringen/dossier/store"
)

const (
	summaryLength = 200
	defaultAuthor = "Research Team"

	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Item is one scraped article, ruling or video.
type Item struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Date      string `json:"date"`
	URL       string `json:"url"`
	Source    string `json:"source"`
	Type      string `json:"type"`
	EventType string `json:"event_type,omitempty"`
}

// Load decodes a JSON array of items.
func Load(r io.Reader) ([]Item, error) {
	var items []Item
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("ingest: decode items: %w", err)
	}
	return items, nil
}

// Options tune a run.
type Options struct {
	// Source names the run in the scraping log.
	Source string
	// Posts also creates a case writeup for every new item.
	Posts bool
	// Now dates items whose text carries no date. Defaults to time.Now.
	Now func() time.Time
}

// Report counts what a run did.
type Report struct {
	Found   int      `json:"found"`
	Added   int      `json:"added"`
	Posts   int      `json:"posts"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Status  string   `json:"status"`
	Logged  bool     `json:"logged"`
	Errors  []string `json:"errors,omitempty"`
}

func (r Report) status() string {
	switch {
	case r.Failed == 0:
		return StatusSuccess
	case r.Added > 0:
		return StatusPartial
	default:
		return StatusFailed
	}
}

func (r Report) message() string {
	msg := fmt.Sprintf("%d new, %d already present", r.Added, r.Skipped)
	if r.Failed > 0 {
		msg += fmt.Sprintf(", %d failed: %s", r.Failed, strings.Join(r.Errors, "; "))
	}
	return msg
}

// Entry builds the timeline entry for an item. Items without a recognizable
// date are dated today.
func Entry(it Item, now time.Time) content.TimelineInput {
	date, ok := ParseDate(it.Date)
	if !ok {
		if date, ok = ParseDate(it.Title + " " + it.Content); !ok {
			date = now.Format("2006-01-02")
		}
	}
	body := it.Content
	if strings.TrimSpace(body) == "" {
		body = it.Title
	}
	eventType := it.EventType
	if eventType == "" {
		eventType = EventType(it.Title, body)
	}
	confidence := "Medium"
	var sources []content.Source
	if it.URL != "" {
		confidence = "High"
		sources = []content.Source{itemSource(it, date)}
	}
	return content.TimelineInput{
		EntryDate:       content.Str(date),
		EventType:       content.Str(eventType),
		Title:           content.Str(strings.TrimSpace(it.Title)),
		Description:     content.Str(Summary(body, summaryLength)),
		Significance:    content.Str(Significance(body)),
		LegalContext:    content.Str(LegalContext(body)),
		RelatedCases:    RelatedCases(body),
		ConfidenceLevel: content.Str(confidence),
		Sources:         sources,
	}
}

func itemSource(it Item, date string) content.Source {
	kind := it.Type
	if kind == "" {
		kind = "News Article"
	}
	return content.Source{
		URL:         it.URL,
		Title:       it.Title,
		Publication: it.Source,
		SourceDate:  date,
		SourceType:  kind,
	}
}

// Post builds the case writeup for an item and its timeline entry.
func Post(it Item, e content.TimelineInput) content.PostInput {
	body := strings.TrimSpace(it.Content)
	return content.PostInput{
		Title:           e.Title,
		PublicationDate: e.EntryDate,
		Author:          content.Str(defaultAuthor),
		Category:        content.Str(Category(it.Title, body)),
		Tags:            []string{*e.EventType},
		Excerpt:         e.Description,
		MainContent:     content.Str(body),
		Significance:    e.Significance,
		CaseType:        e.EventType,
		Sources:         e.Sources,
	}
}

// Run merges items into the store. An item is skipped when an entry with the
// same date and title exists, or when an existing entry already cites its
// URL. Failures of single items are counted and the run goes on. The run is
// recorded in the scraping log when that table exists.
func Run(ctx context.Context, svc *content.Service, items []Item, opts Options) (Report, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Source == "" {
		opts.Source = "ingest"
	}
	rep := Report{Found: len(items)}

	existing, err := svc.GetTimelineEntries(ctx, content.ListOptions{})
	if err != nil {
		return rep, fmt.Errorf("ingest: timeline: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	cited := make(map[string]bool)
	for _, e := range existing {
		seen[key(e.EntryDate, e.Title)] = true
		for _, s := range e.Sources {
			cited[s.URL] = true
		}
	}

	now := opts.Now()
	for _, it := range items {
		if strings.TrimSpace(it.Title) == "" {
			rep.fail(it, errors.New("missing title"))
			continue
		}
		e := Entry(it, now)
		k := key(*e.EntryDate, *e.Title)
		if seen[k] || (it.URL != "" && cited[it.URL]) {
			rep.Skipped++
			continue
		}
		if _, err := svc.CreateTimelineEntry(ctx, e); err != nil {
			rep.fail(it, err)
			continue
		}
		seen[k] = true
		if it.URL != "" {
			cited[it.URL] = true
		}
		rep.Added++

		if opts.Posts {
			_, err := svc.CreatePost(ctx, Post(it, e))
			switch {
			case store.HasCode(err, store.CodeUniqueViolation):
			case err != nil:
				rep.fail(it, err)
			default:
				rep.Posts++
			}
		}
	}

	rep.Status = rep.status()
	_, err = svc.LogScrape(ctx, content.LogEntry{
		Source:     opts.Source,
		Status:     rep.Status,
		ItemsFound: rep.Found,
		ItemsAdded: rep.Added,
		Message:    rep.message(),
	})
	switch {
	case errors.Is(err, content.ErrFeatureUnavailable):
	case err != nil:
		return rep, fmt.Errorf("ingest: log run: %w", err)
	default:
		rep.Logged = true
	}
	return rep, nil
}

func (r *Report) fail(it Item, err error) {
	r.Failed++
	r.Errors = append(r.Errors, fmt.Sprintf("%q: %v", it.Title, err))
}

func key(date, title string) string {
	return strings.TrimSpace(date) + "\x00" + strings.TrimSpace(title)
}
