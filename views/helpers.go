package views

import (
	"encoding/json"
	"html"
	"net/url"
	"path"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/dossier/content"
	"github.com/eringen/dossier/markdown"
)

// buildURL joins path segments onto a base URL, ensuring a trailing slash.
func buildURL(base string, pathSegments ...string) string {
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

// PostURL is the canonical URL of a post.
func PostURL(site Site, p content.Post) string {
	return buildURL(site.URL, "blog", p.PostID)
}

func postPath(id string) templ.SafeURL {
	return templ.SafeURL("/blog/" + url.PathEscape(id) + "/")
}

func tagURL(tag string) templ.SafeURL {
	return templ.SafeURL("/?tag=" + url.QueryEscape(tag))
}

func pageTitle(site Site, meta PageMeta) string {
	if meta.Title == "" {
		return site.Name
	}
	return meta.Title + " | " + site.Name
}

func pageDescription(site Site, meta PageMeta) string {
	if meta.Description == "" {
		return site.Description
	}
	return meta.Description
}

func ogType(meta PageMeta) string {
	if meta.OGType == "" {
		return "website"
	}
	return meta.OGType
}

// jsonLD wraps a JSON-LD document in its script element. json.Marshal escapes
// '<', so the document cannot close the element early.
func jsonLD(doc string) templ.Component {
	return templ.Raw(`<script type="application/ld+json">` + doc + `</script>`)
}

func homeMeta(p HomePage) PageMeta {
	if p.Profile.FullName == "" {
		return PageMeta{URL: buildURL(p.Site.URL), JSONLD: WebsiteJsonLD(p.Site)}
	}
	return PageMeta{URL: buildURL(p.Site.URL), OGType: "profile", JSONLD: PersonJsonLD(p.Site, p.Profile)}
}

func postMeta(p PostPage) PageMeta {
	return PageMeta{
		Title:       p.Post.Title,
		Description: p.Post.Excerpt,
		URL:         PostURL(p.Site, p.Post),
		OGType:      "article",
		JSONLD:      ArticleJsonLD(p.Site, p.Post),
	}
}

func companyMeta(p CompanyPage) PageMeta {
	return PageMeta{
		Title:       companyName(p),
		Description: p.Company.FirmDescription,
		URL:         buildURL(p.Site.URL, "company"),
		JSONLD:      OrganizationJsonLD(p.Site, p.Company),
	}
}

func companyName(p CompanyPage) string {
	if p.Company.FirmName == "" {
		return p.Site.Name
	}
	return p.Company.FirmName
}

type section struct {
	Title string
	Body  string
}

// postSections lists the non-empty body sections of a writeup in reading
// order. The main content has no heading.
func postSections(p content.Post) []section {
	var out []section
	for _, sec := range []section{
		{"Introduction", p.Introduction},
		{"", p.MainContent},
		{"Conclusion", p.Conclusion},
		{"Legal implications", p.LegalImplications},
	} {
		if strings.TrimSpace(sec.Body) != "" {
			out = append(out, sec)
		}
	}
	return out
}

func hasFacts(p content.Post) bool {
	return p.CaseType != "" || p.Outcome != "" || p.Significance != ""
}

func postStatus(p content.Post) string {
	if p.IsArchived {
		return "Archived"
	}
	return "Published"
}

// sourceHref is the link target of a source, or "" when its URL is not safe
// to link.
func sourceHref(raw string) templ.SafeURL {
	return templ.SafeURL(html.UnescapeString(markdown.SafeURL(raw)))
}

func sourceTitle(s content.Source) string {
	if s.Title == "" {
		return s.URL
	}
	return s.Title
}

func sourceDetails(s content.Source) string {
	var details []string
	for _, d := range []string{s.Publication, s.SourceDate, s.SourceType, s.CaseNumber} {
		if d != "" {
			details = append(details, d)
		}
	}
	return strings.Join(details, " · ")
}

func positionLine(pos content.Position) string {
	if pos.Organization == "" {
		return pos.Position
	}
	return pos.Position + ", " + pos.Organization
}

func missingFeatures(c content.Capabilities) []string {
	var out []string
	for _, f := range []struct {
		ok   bool
		name string
	}{
		{c.Archive, "archive"},
		{c.TimelineSources, "timeline_sources"},
		{c.PostSources, "blog_sources"},
		{c.ScrapingLog, "scraping_log"},
		{c.Stats, "dashboard_stats"},
	} {
		if !f.ok {
			out = append(out, f.name)
		}
	}
	return out
}

func marshalLD(data map[string]any) string {
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func person(name string) map[string]string {
	return map[string]string{"@type": "Person", "name": name}
}

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block.
func WebsiteJsonLD(site Site) string {
	data := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     site.Name,
		"url":      buildURL(site.URL),
	}
	if site.Description != "" {
		data["description"] = site.Description
	}
	if site.Author != "" {
		data["about"] = person(site.Author)
	}
	return marshalLD(data)
}

// ArticleJsonLD produces a Schema.org Article JSON-LD block for a writeup.
// Cited sources are listed under "citation".
func ArticleJsonLD(site Site, p content.Post) string {
	postURL := PostURL(site, p)
	data := map[string]any{
		"@context":      "https://schema.org",
		"@type":         "Article",
		"headline":      p.Title,
		"description":   p.Excerpt,
		"datePublished": p.PublicationDate,
		"url":           postURL,
		"wordCount":     p.WordCount,
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  site.Name,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if !p.UpdatedAt.IsZero() {
		data["dateModified"] = p.UpdatedAt.Format("2006-01-02")
	}
	if p.Author != "" {
		data["author"] = person(p.Author)
	}
	if p.Category != "" {
		data["articleSection"] = p.Category
	}
	if len(p.Tags) > 0 {
		data["keywords"] = strings.Join(p.Tags, ", ")
	}
	if len(p.Sources) > 0 {
		cites := make([]map[string]string, 0, len(p.Sources))
		for _, s := range p.Sources {
			cites = append(cites, map[string]string{
				"@type": "CreativeWork",
				"name":  s.Title,
				"url":   s.URL,
			})
		}
		data["citation"] = cites
	}
	return marshalLD(data)
}

// PersonJsonLD produces a Schema.org Person block for the profile.
func PersonJsonLD(site Site, pr content.Profile) string {
	data := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Person",
		"name":     pr.FullName,
		"url":      buildURL(site.URL),
	}
	if pr.CurrentPosition != "" {
		data["jobTitle"] = pr.CurrentPosition
	}
	if pr.LawFirm != "" {
		data["worksFor"] = map[string]string{"@type": "Organization", "name": pr.LawFirm}
	}
	if pr.FeaturedImageURL != "" {
		data["image"] = pr.FeaturedImageURL
	}
	if len(pr.Institutions) > 0 {
		alumni := make([]map[string]string, 0, len(pr.Institutions))
		for _, name := range pr.Institutions {
			alumni = append(alumni, map[string]string{"@type": "EducationalOrganization", "name": name})
		}
		data["alumniOf"] = alumni
	}
	return marshalLD(data)
}

// OrganizationJsonLD produces a Schema.org LegalService block for the firm.
func OrganizationJsonLD(site Site, c content.Company) string {
	name := c.FirmName
	if name == "" {
		name = site.Name
	}
	data := map[string]any{
		"@context": "https://schema.org",
		"@type":    "LegalService",
		"name":     name,
		"url":      buildURL(site.URL, "company"),
	}
	if c.FirmDescription != "" {
		data["description"] = c.FirmDescription
	}
	if c.Established != "" {
		data["foundingDate"] = c.Established
	}
	if len(c.FoundingPartners) > 0 {
		founders := make([]map[string]string, 0, len(c.FoundingPartners))
		for _, p := range c.FoundingPartners {
			founders = append(founders, person(p.Name))
		}
		data["founder"] = founders
	}
	if len(c.AreasOfPractice) > 0 {
		areas := make([]string, 0, len(c.AreasOfPractice))
		for _, a := range c.AreasOfPractice {
			areas = append(areas, a.Name)
		}
		data["knowsAbout"] = areas
	}
	return marshalLD(data)
}
