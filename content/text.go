package content

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Slugify derives the post key from a title: lowercase ASCII letters and
// digits, with every other run of characters collapsed to a single "-" and no
// leading or trailing separator.
func Slugify(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

var wordRe = regexp.MustCompile(`\w+`)

// WordCount counts the words across the given text sections.
func WordCount(sections ...string) int {
	n := 0
	for _, s := range sections {
		n += len(wordRe.FindAllStringIndex(s, -1))
	}
	return n
}

// ReadingTime formats the reading time at 200 words per minute.
func ReadingTime(words int) string {
	minutes := (words + 199) / 200
	return fmt.Sprintf("%d min read", minutes)
}

// Dedupe drops blank and repeated entries, keeping first occurrences in order.
func Dedupe(vals []string) []string {
	if vals == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(vals))
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		k := strings.ToLower(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

// validDate reports whether s is an ISO date or an RFC 3339 timestamp.
func validDate(s string) bool {
	s = strings.TrimSpace(s)
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return true
	}
	_, err := time.Parse(time.RFC3339, s)
	return err == nil
}

func validateTitle(title *string, required bool) error {
	if title == nil {
		if required {
			return fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		return nil
	}
	if strings.TrimSpace(*title) == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
	}
	return nil
}

func validateDate(field string, date *string) error {
	if date == nil {
		return nil
	}
	if !validDate(*date) {
		return fmt.Errorf("%w: %s %q is not an ISO date", ErrInvalidInput, field, *date)
	}
	return nil
}
