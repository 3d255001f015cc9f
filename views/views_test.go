package views

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/eringen/dossier/auth"
	"github.com/eringen/dossier/content"
)

var testSite = Site{Name: "Dossier", URL: "https://dossier.example", Author: "Jane Advocate"}

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestPostEscapesContent(t *testing.T) {
	post := content.Post{
		PostID:      "petition",
		Title:       `Petition <script>alert(1)</script>`,
		Category:    "Election Law",
		Tags:        []string{"a&b"},
		MainContent: "Ruling delivered.[^1] Appeal pending.[^2]",
		Sources: []content.Source{
			{URL: "javascript:alert(1)", Title: "Bad link"},
			{URL: "https://example.com/ruling", Title: "Ruling"},
		},
	}
	out := renderString(t, Post(PostPage{Site: testSite, Post: post}))

	if strings.Contains(out, "<script>alert") {
		t.Error("title was not escaped")
	}
	if !strings.Contains(out, "a&amp;b") {
		t.Error("tag was not escaped")
	}
	if strings.Contains(out, `href="javascript:`) {
		t.Error("unsafe source URL rendered as a link")
	}
	if !strings.Contains(out, `id="source-2"`) || !strings.Contains(out, `href="#source-2"`) {
		t.Error("expected the second citation to link to its source")
	}
	if !strings.Contains(out, `<link rel="canonical" href="https://dossier.example/blog/petition/">`) {
		t.Error("missing canonical link")
	}
}

func TestArticleJsonLD(t *testing.T) {
	post := content.Post{
		PostID:   "appeal",
		Title:    "Appeal </script>",
		Author:   "Research Team",
		Tags:     []string{"ICC", "appeals"},
		Category: "International Criminal Court",
		Sources:  []content.Source{{URL: "https://example.com/a", Title: "Judgment"}},
	}
	ld := ArticleJsonLD(testSite, post)
	if strings.Contains(ld, "</script>") {
		t.Fatal("JSON-LD can close the script element")
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(ld), &data); err != nil {
		t.Fatalf("invalid JSON-LD: %v", err)
	}
	if data["url"] != "https://dossier.example/blog/appeal/" {
		t.Errorf("url = %v", data["url"])
	}
	if data["keywords"] != "ICC, appeals" {
		t.Errorf("keywords = %v", data["keywords"])
	}
	cites, ok := data["citation"].([]any)
	if !ok || len(cites) != 1 {
		t.Errorf("citation = %v", data["citation"])
	}
}

func TestPersonJsonLD(t *testing.T) {
	ld := PersonJsonLD(testSite, content.Profile{
		FullName:     "Jane Advocate",
		LawFirm:      "Advocate & Co",
		Institutions: []string{"University of Nairobi"},
	})
	var data map[string]any
	if err := json.Unmarshal([]byte(ld), &data); err != nil {
		t.Fatalf("invalid JSON-LD: %v", err)
	}
	if data["@type"] != "Person" || data["worksFor"] == nil || data["alumniOf"] == nil {
		t.Errorf("unexpected person: %v", data)
	}
	if _, ok := data["jobTitle"]; ok {
		t.Error("empty jobTitle should be omitted")
	}
}

func TestAdminShowsLoginOrDashboard(t *testing.T) {
	out := renderString(t, Admin(AdminPage{Site: testSite, CSRF: "tok", LoginFailed: true}))
	if !strings.Contains(out, "Sign in") || !strings.Contains(out, "Invalid credentials") {
		t.Error("expected the login form with the failure notice")
	}
	if !strings.Contains(out, `value="tok"`) {
		t.Error("expected the CSRF token in the form")
	}

	out = renderString(t, Admin(AdminPage{
		Site:  testSite,
		User:  &auth.User{Username: "admin", Role: "admin"},
		Posts: []content.Post{{PostID: "x", Title: "Archived one", IsArchived: true}},
	}))
	if !strings.Contains(out, "Dashboard") || !strings.Contains(out, "Archived") {
		t.Error("expected the dashboard with the post status")
	}
	if !strings.Contains(out, "dossier migrate --feature archive") {
		t.Error("expected guidance for the missing archive feature")
	}
	if !strings.Contains(out, `href="/blog/x/"`) {
		t.Error("expected a link to the post")
	}
}

func TestAdminStatsRenderNumbers(t *testing.T) {
	out := renderString(t, Admin(AdminPage{
		Site:  testSite,
		User:  &auth.User{Username: "admin", Role: "admin"},
		Stats: content.Stats{TotalPosts: 12, LegalCases: 3},
	}))
	if !strings.Contains(out, "<dt>Posts</dt><dd>12</dd>") {
		t.Errorf("post count not rendered as a number: %s", out)
	}
	if !strings.Contains(out, "<dt>Legal cases</dt><dd>3</dd>") {
		t.Error("legal case count not rendered")
	}
	if strings.Contains(out, "%!") {
		t.Error("found a formatting verb error in the output")
	}
}

func TestCompanyPage(t *testing.T) {
	out := renderString(t, Company(CompanyPage{Site: testSite, Company: content.Company{
		FirmName:    "Advocate & Partners LLP",
		Established: "2019",
		Vision:      "Justice for all",
		FoundingPartners: []content.Partner{{
			Name:                "Jane Advocate",
			Title:               "Managing Partner",
			GovernmentPositions: []content.Position{{Position: "Solicitor General", Organization: "Republic", Period: "2018-2022"}},
		}},
		Values: []string{"Integrity"},
		AreasOfPractice: []content.PracticeArea{{
			Name:         "Election Law",
			NotableCases: []string{"Presidential Petition <2017>"},
		}},
	}}))

	for _, want := range []string{
		"<h1>Advocate &amp; Partners LLP</h1>",
		"Established 2019",
		"<dt>Vision</dt><dd>Justice for all</dd>",
		"Solicitor General, Republic",
		"<li>Integrity</li>",
		"<h4>Notable cases</h4>",
		"Presidential Petition &lt;2017&gt;",
		`<link rel="canonical" href="https://dossier.example/company/">`,
		`"@type":"LegalService"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q", want)
		}
	}
	if strings.Contains(out, "<dt>Mission</dt>") {
		t.Error("empty mission should be omitted")
	}
	if strings.Contains(out, "<h4>Services</h4>") {
		t.Error("empty service list should be omitted")
	}
}

func TestCompanyFallsBackToSiteName(t *testing.T) {
	out := renderString(t, Company(CompanyPage{Site: testSite}))
	if !strings.Contains(out, "<h1>Dossier</h1>") {
		t.Error("expected the site name as the heading")
	}
	if strings.Contains(out, "Founding partners") || strings.Contains(out, "Areas of practice") {
		t.Error("empty sections should be omitted")
	}
}

func TestTimelineEntryAnchors(t *testing.T) {
	out := renderString(t, Timeline(TimelinePage{Site: testSite, Entries: []content.TimelineEntry{{
		ID:           "7",
		EntryDate:    "2017-09-01",
		Title:        "Petition heard",
		RelatedCases: []string{"Petition No. 1", "Petition No. 2"},
		Sources:      []content.Source{{URL: "https://example.com/a", Title: "Report"}},
	}}}))
	if !strings.Contains(out, `id="entry-7"`) || !strings.Contains(out, `id="entry-7-source-1"`) {
		t.Error("expected entry and source anchors")
	}
	if !strings.Contains(out, "Related: Petition No. 1; Petition No. 2") {
		t.Error("expected related cases")
	}
}
