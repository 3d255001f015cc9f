package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/eringen/dossier/content"
)

var months = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4,
	"may": 5, "june": 6, "july": 7, "august": 8,
	"september": 9, "october": 10, "november": 11, "december": 12,
}

const monthNames = `(January|February|March|April|May|June|July|August|September|October|November|December)`

var (
	reISODate   = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	reDayMonth  = regexp.MustCompile(`(?i)(\d{1,2})\s+` + monthNames + `\s+(\d{4})`)
	reMonthDay  = regexp.MustCompile(`(?i)` + monthNames + `\s+(\d{1,2}),?\s+(\d{4})`)
	reCaseRefs  = regexp.MustCompile(`(?i)\b(?:ICSID\s+Case|Case|Petition)\s+No\.?\s*[A-Z0-9][A-Z0-9/-]*|ICC-\d+/\d+-\d+/\d+-\d+`)
	reSpaceRuns = regexp.MustCompile(`\s+`)
)

// ParseDate finds a date in free text and returns it as YYYY-MM-DD. It
// understands ISO dates, "2 March 2023" and "March 2, 2023".
func ParseDate(s string) (string, bool) {
	var date string
	if m := reISODate.FindString(s); m != "" {
		date = m
	} else if m := reDayMonth.FindStringSubmatch(s); m != nil {
		date = formatDate(m[3], m[2], m[1])
	} else if m := reMonthDay.FindStringSubmatch(s); m != nil {
		date = formatDate(m[3], m[1], m[2])
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return "", false
	}
	return date, true
}

func formatDate(year, month, day string) string {
	d, _ := strconv.Atoi(day)
	return fmt.Sprintf("%s-%02d-%02d", year, months[strings.ToLower(month)], d)
}

type rule struct {
	words []string
	value string
}

// eventRules are tried in order; the first rule with a matching word wins.
var eventRules = []rule{
	{[]string{"appointment"}, "Government Appointment"},
	{[]string{"case"}, "Legal Case"},
	{[]string{"court"}, "Court Appearance"},
	{[]string{"judgment"}, "Legal Judgment"},
	{[]string{"submission"}, "Legal Submission"},
	{[]string{"statement"}, "Public Statement"},
	{[]string{"award"}, "Recognition/Award"},
	{[]string{"education"}, "Educational Milestone"},
	{[]string{"appointed", "nomination", "confirmed"}, "Government Appointment"},
	{[]string{"hearing", "trial", "proceeding"}, "Court Appearance"},
	{[]string{"ruling", "decision", "verdict"}, "Legal Judgment"},
	{[]string{"argument", "brief"}, "Legal Submission"},
}

var significanceRules = []rule{
	{[]string{"supreme court", "solicitor general", "icc", "constitutional amendment"}, "High"},
	{[]string{"high court", "court of appeal", "government appointment"}, "Medium"},
}

var contextRules = []rule{
	{[]string{"constitutional"}, "Constitutional law matter involving interpretation of the constitution"},
	{[]string{"election"}, "Electoral law case related to democratic processes"},
	{[]string{"international"}, "International law matter involving cross-border legal issues"},
	{[]string{"criminal"}, "Criminal law case involving serious criminal charges"},
	{[]string{"investment"}, "Investment law dispute involving international arbitration"},
	{[]string{"administrative"}, "Administrative law matter involving government operations"},
}

var categoryRules = []rule{
	{[]string{"election", "petition"}, "Election Law"},
	{[]string{"icc", "international criminal court"}, "International Criminal Court"},
	{[]string{"international criminal", "tribunal"}, "International Criminal Law"},
	{[]string{"constitution"}, "Constitutional Law"},
	{[]string{"investment", "icsid", "arbitration"}, "International Investment Law"},
	{[]string{"appointed", "appointment", "sworn in"}, "Government Appointments"},
	{[]string{"solicitor general", "attorney general"}, "Government Legal Affairs"},
}

func match(rules []rule, text, fallback string) string {
	text = strings.ToLower(text)
	for _, r := range rules {
		for _, w := range r.words {
			if strings.Contains(text, w) {
				return r.value
			}
		}
	}
	return fallback
}

// EventType classifies an item by the words in its title and body.
func EventType(title, body string) string {
	return match(eventRules, title+" "+body, "Legal Event")
}

// Significance grades an item High, Medium or Low.
func Significance(body string) string {
	return match(significanceRules, body, "Low")
}

// LegalContext names the area of law an item concerns.
func LegalContext(body string) string {
	return match(contextRules, body, "General legal matter")
}

// Category picks the post category for an item.
func Category(title, body string) string {
	return match(categoryRules, title+" "+body, "General Legal")
}

// RelatedCases extracts petition, case and ICC/ICSID case numbers.
func RelatedCases(body string) []string {
	refs := reCaseRefs.FindAllString(body, -1)
	for i, r := range refs {
		refs[i] = reSpaceRuns.ReplaceAllString(r, " ")
	}
	out := content.Dedupe(refs)
	if out == nil {
		return []string{}
	}
	return out
}

// Summary shortens body to at most n characters, marking a cut with "...".
func Summary(body string, n int) string {
	body = strings.TrimSpace(body)
	r := []rune(body)
	if len(r) <= n {
		return body
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}
