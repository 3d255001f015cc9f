package content

import (
	"sort"
	"strings"
)

// PostFilter narrows a post listing in memory. Zero fields match everything.
type PostFilter struct {
	Term     string // matched against title, excerpt and tags
	Category string
	Tag      string
	Year     string // publication year, e.g. "2024"
}

// FilterPosts returns the posts matching f, preserving order.
func FilterPosts(posts []Post, f PostFilter) []Post {
	term := strings.ToLower(strings.TrimSpace(f.Term))
	tag := strings.ToLower(strings.TrimSpace(f.Tag))
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Year != "" && !strings.HasPrefix(p.PublicationDate, f.Year) {
			continue
		}
		if tag != "" && !hasTag(p.Tags, tag) {
			continue
		}
		if term != "" && !postMatches(p, term) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func postMatches(p Post, term string) bool {
	if strings.Contains(strings.ToLower(p.Title), term) ||
		strings.Contains(strings.ToLower(p.Excerpt), term) {
		return true
	}
	for _, t := range p.Tags {
		if strings.Contains(strings.ToLower(t), term) {
			return true
		}
	}
	return false
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.ToLower(strings.TrimSpace(t)) == tag {
			return true
		}
	}
	return false
}

// TimelineFilter narrows a timeline listing in memory.
type TimelineFilter struct {
	Term      string // matched against title, description and event type
	EventType string
	Year      string
}

// FilterTimeline returns the entries matching f, preserving order.
func FilterTimeline(entries []TimelineEntry, f TimelineFilter) []TimelineEntry {
	term := strings.ToLower(strings.TrimSpace(f.Term))
	out := make([]TimelineEntry, 0, len(entries))
	for _, e := range entries {
		if f.EventType != "" && e.EventType != f.EventType {
			continue
		}
		if f.Year != "" && !strings.HasPrefix(e.EntryDate, f.Year) {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(e.Title), term) &&
			!strings.Contains(strings.ToLower(e.Description), term) &&
			!strings.Contains(strings.ToLower(e.EventType), term) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Years lists the distinct publication years of posts, newest first.
func Years(posts []Post) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range posts {
		if len(p.PublicationDate) < 4 {
			continue
		}
		y := p.PublicationDate[:4]
		if !seen[y] {
			seen[y] = true
			out = append(out, y)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}
