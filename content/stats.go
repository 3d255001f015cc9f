package content

import (
	"context"
	"fmt"

	"github.com/eringen/dossier/store"
)

const statsProcedure = "dashboard_stats"

// Stats returns the dashboard counters from the dashboard_stats procedure,
// or counts them here when the procedure is missing.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.Call(ctx, statsProcedure, nil)
	if err != nil {
		if a := decide(opStats, err); a == computeLocally {
			s.fallback(opStats, a, err)
			return s.countStats(ctx)
		}
		return Stats{}, wrap(opStats, err)
	}
	row, err := store.Single(rows)
	if err != nil {
		return Stats{}, wrap(opStats, err)
	}
	var st Stats
	if err := decodeRow(row, &st); err != nil {
		return Stats{}, fmt.Errorf("decoding stats: %w", err)
	}
	return st, nil
}

func (s *Service) countStats(ctx context.Context) (Stats, error) {
	var st Stats
	posts, err := s.db.Select(ctx, store.From(postsTable).Select("significance"))
	if err != nil {
		return Stats{}, wrap(opStats, err)
	}
	st.TotalPosts = len(posts)
	for _, p := range posts {
		if p["significance"] == "High" {
			st.HighSignificancePosts++
		}
	}
	entries, err := s.db.Select(ctx, store.From(timelineTable).Select("event_type"))
	if err != nil {
		return Stats{}, wrap(opStats, err)
	}
	st.TotalTimelineEntries = len(entries)
	for _, e := range entries {
		switch e["event_type"] {
		case "Government Appointment":
			st.Appointments++
		case "Legal Case":
			st.LegalCases++
		}
	}
	return st, nil
}

// Capabilities probes each optional schema feature with a minimal query and
// reports which ones the store has.
func (s *Service) Capabilities(ctx context.Context) (Capabilities, error) {
	var c Capabilities
	probes := []struct {
		ok  *bool
		run func() error
	}{
		{&c.Archive, s.probeSelect(ctx, store.From(postsTable).Select("is_archived"))},
		{&c.TimelineSources, s.probeSelect(ctx, store.From(timelineSources.table).Select("id"))},
		{&c.PostSources, s.probeSelect(ctx, store.From(postSources.table).Select("id"))},
		{&c.ScrapingLog, s.probeSelect(ctx, store.From(scrapingTable).Select("id"))},
		{&c.Stats, func() error {
			_, err := s.db.Call(ctx, statsProcedure, nil)
			return err
		}},
	}
	for _, p := range probes {
		err := p.run()
		switch {
		case err == nil:
			*p.ok = true
		case decide(opProbe, err) == featureUnavailable:
			*p.ok = false
		default:
			return Capabilities{}, wrap(opProbe, err)
		}
	}
	return c, nil
}

func (s *Service) probeSelect(ctx context.Context, q store.Query) func() error {
	return func() error {
		_, err := s.db.Select(ctx, q.Range(0, 1))
		return err
	}
}
