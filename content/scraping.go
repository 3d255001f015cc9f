package content

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/eringen/dossier/store"
)

const (
	scrapingTable = "scraping_log"

	// DefaultLogLimit is the number of scraping runs returned when no limit
	// is given.
	DefaultLogLimit = 50
)

// GetScrapingLog returns the most recent scraping runs, newest first. It
// returns an empty list when the log table does not exist.
func (s *Service) GetScrapingLog(ctx context.Context, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	q := store.From(scrapingTable).Order("scraping_date", true).Range(0, limit)
	rows, err := s.selectWithFallback(ctx, opScrapingLog, q)
	if err != nil {
		return nil, err
	}
	out := make([]LogEntry, 0, len(rows))
	for _, row := range rows {
		var e LogEntry
		if err := decodeRow(row, &e); err != nil {
			return nil, fmt.Errorf("decoding log entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// LogScrape records a scraping run. IDs are ULIDs so they sort by time.
func (s *Service) LogScrape(ctx context.Context, e LogEntry) (LogEntry, error) {
	if e.ScrapingDate.IsZero() {
		e.ScrapingDate = s.now()
	}
	if e.ID == "" {
		id, err := ulid.New(ulid.Timestamp(e.ScrapingDate), rand.Reader)
		if err != nil {
			return LogEntry{}, fmt.Errorf("generating log id: %w", err)
		}
		e.ID = id.String()
	}
	rows, err := s.db.Insert(ctx, scrapingTable, store.Row{
		"id":            e.ID,
		"scraping_date": e.ScrapingDate,
		"source":        e.Source,
		"status":        e.Status,
		"items_found":   e.ItemsFound,
		"items_added":   e.ItemsAdded,
		"message":       e.Message,
	})
	if err != nil {
		if store.HasCode(err, store.CodeResourceNotFound) {
			return LogEntry{}, &FeatureUnavailableError{
				Feature:  store.FeatureScrapingLog,
				Message:  "Scraping log not available. Please create the scraping_log table.",
				Guidance: "dossier migrate --feature scraping_log",
			}
		}
		return LogEntry{}, wrap(opScrapingLog, err)
	}
	row, err := store.Single(rows)
	if err != nil {
		return LogEntry{}, wrap(opScrapingLog, err)
	}
	var out LogEntry
	if err := decodeRow(row, &out); err != nil {
		return LogEntry{}, fmt.Errorf("decoding log entry: %w", err)
	}
	return out, nil
}
