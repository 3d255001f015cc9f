package dossier

import (
	"net/url"
	"path"
	"strings"

	"github.com/eringen/dossier/content"
)

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// FilterEmpty removes empty/whitespace-only strings from a slice.
func FilterEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SplitList parses a comma-separated form value into a de-duplicated list.
func SplitList(s string) []string {
	out := content.Dedupe(FilterEmpty(strings.Split(s, ",")))
	if out == nil {
		return []string{}
	}
	return out
}

// RelatedPosts returns up to max posts that share a tag or the category with
// current, in their original order.
func RelatedPosts(current content.Post, posts []content.Post, max int) []content.Post {
	tagSet := make(map[string]struct{})
	for _, t := range current.Tags {
		if tag := strings.ToLower(strings.TrimSpace(t)); tag != "" {
			tagSet[tag] = struct{}{}
		}
	}
	var related []content.Post
	for _, p := range posts {
		if len(related) == max {
			break
		}
		if p.PostID == current.PostID {
			continue
		}
		if current.Category != "" && p.Category == current.Category {
			related = append(related, p)
			continue
		}
		for _, t := range p.Tags {
			if _, ok := tagSet[strings.ToLower(strings.TrimSpace(t))]; ok {
				related = append(related, p)
				break
			}
		}
	}
	return related
}
