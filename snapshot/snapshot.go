// Package snapshot moves content between the store and the JSON files the
// static microsite reads from its data directory.
//
// The files nest post bodies under "content", reading metadata under
// "metadata" and source dates and kinds under "date" and "type", which is
// the layout the microsite reads. Export writes that layout and Import reads
// it back.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/pretty"

	"github.com/eringen/dossier/content"
	"github.com/eringen/dossier/store"
)

const (
	// BlogFile holds the published posts.
	BlogFile = "blog.json"
	// ChronologyFile holds the profile, the posts in date order and the
	// timeline.
	ChronologyFile = "kennedy-ogetto-cases-chronological.json"
	// CompanyFile holds the firm record.
	CompanyFile = "company-profile.json"

	chronologyKey = "kennedy_ogetto_cases"
)

type source struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Publication string `json:"publication"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	CaseNumber  string `json:"case_number,omitempty"`
}

type postBody struct {
	Introduction string `json:"introduction"`
	MainContent  string `json:"main_content"`
	Conclusion   string `json:"conclusion"`
}

type postMeta struct {
	ReadingTime       string `json:"reading_time"`
	WordCount         int    `json:"word_count"`
	CaseType          string `json:"case_type"`
	Outcome           string `json:"outcome"`
	Significance      string `json:"significance"`
	LegalImplications string `json:"legal_implications"`
}

type social struct {
	TwitterSummary  string `json:"twitter_summary"`
	LinkedInSummary string `json:"linkedin_summary"`
}

type post struct {
	PostID          string   `json:"post_id"`
	Title           string   `json:"title"`
	Slug            string   `json:"slug"`
	PublicationDate string   `json:"publication_date"`
	Author          string   `json:"author"`
	Category        string   `json:"category"`
	Tags            []string `json:"tags"`
	Excerpt         string   `json:"excerpt"`
	Content         postBody `json:"content"`
	Metadata        postMeta `json:"metadata"`
	SocialSharing   social   `json:"social_sharing"`
	Sources         []source `json:"sources"`
}

type entryMeta struct {
	ConfidenceLevel string `json:"confidence_level"`
}

type entry struct {
	ID           string    `json:"id,omitempty"`
	Date         string    `json:"date"`
	EventType    string    `json:"event_type"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Significance string    `json:"significance"`
	LegalContext string    `json:"legal_context"`
	RelatedCases []string  `json:"related_cases"`
	Metadata     entryMeta `json:"metadata"`
	Sources      []source  `json:"sources"`
}

type personal struct {
	FullName         string `json:"full_name"`
	CurrentPosition  string `json:"current_position"`
	PreviousPosition string `json:"previous_position"`
	LawFirm          string `json:"law_firm"`
	CareerSpan       string `json:"career_span"`
	Specialization   string `json:"specialization"`
}

type education struct {
	Undergraduate string   `json:"undergraduate"`
	Graduate      string   `json:"graduate"`
	Professional  string   `json:"professional"`
	Institutions  []string `json:"institutions"`
}

type image struct {
	URL     string `json:"url"`
	AltText string `json:"alt_text"`
	Caption string `json:"caption"`
}

type cases struct {
	PersonalProfile personal  `json:"personal_profile"`
	Education       education `json:"educational_background"`
	FeaturedImage   image     `json:"featured_image"`
	BlogPosts       []post    `json:"blog_posts"`
	Timeline        []entry   `json:"timeline"`
}

type blogDoc struct {
	Blog struct {
		Posts []post `json:"posts"`
	} `json:"blog"`
}

type chronologyDoc map[string]cases

type company struct {
	FirmName         string                 `json:"firm_name"`
	FirmDescription  string                 `json:"firm_description"`
	Established      string                 `json:"established"`
	Vision           string                 `json:"vision"`
	Mission          string                 `json:"mission"`
	FoundingPartners []content.Partner      `json:"founding_partners"`
	Values           []string               `json:"values"`
	AreasOfPractice  []content.PracticeArea `json:"areas_of_practice"`
}

type companyDoc struct {
	CompanyProfile *company `json:"company_profile"`
}

func fromCompany(c content.Company) company {
	return company{
		FirmName:         c.FirmName,
		FirmDescription:  c.FirmDescription,
		Established:      c.Established,
		Vision:           c.Vision,
		Mission:          c.Mission,
		FoundingPartners: c.FoundingPartners,
		Values:           c.Values,
		AreasOfPractice:  c.AreasOfPractice,
	}
}

func (c company) input() content.CompanyInput {
	in := content.CompanyInput{
		FirmName:         content.Str(c.FirmName),
		FirmDescription:  content.Str(c.FirmDescription),
		Established:      content.Str(c.Established),
		Vision:           content.Str(c.Vision),
		Mission:          content.Str(c.Mission),
		FoundingPartners: c.FoundingPartners,
		Values:           c.Values,
		AreasOfPractice:  c.AreasOfPractice,
	}
	if in.FoundingPartners == nil {
		in.FoundingPartners = []content.Partner{}
	}
	if in.Values == nil {
		in.Values = []string{}
	}
	if in.AreasOfPractice == nil {
		in.AreasOfPractice = []content.PracticeArea{}
	}
	return in
}

func fromSources(in []content.Source) []source {
	out := make([]source, 0, len(in))
	for _, s := range in {
		out = append(out, source{
			URL:         s.URL,
			Title:       s.Title,
			Publication: s.Publication,
			Date:        s.SourceDate,
			Type:        s.SourceType,
			CaseNumber:  s.CaseNumber,
		})
	}
	return out
}

func toSources(in []source) []content.Source {
	out := make([]content.Source, 0, len(in))
	for _, s := range in {
		out = append(out, content.Source{
			URL:         s.URL,
			Title:       s.Title,
			Publication: s.Publication,
			SourceDate:  s.Date,
			SourceType:  s.Type,
			CaseNumber:  s.CaseNumber,
		})
	}
	return out
}

func fromPost(p content.Post) post {
	return post{
		PostID:          p.PostID,
		Title:           p.Title,
		Slug:            p.Slug,
		PublicationDate: p.PublicationDate,
		Author:          p.Author,
		Category:        p.Category,
		Tags:            p.Tags,
		Excerpt:         p.Excerpt,
		Content: postBody{
			Introduction: p.Introduction,
			MainContent:  p.MainContent,
			Conclusion:   p.Conclusion,
		},
		Metadata: postMeta{
			ReadingTime:       p.ReadingTime,
			WordCount:         p.WordCount,
			CaseType:          p.CaseType,
			Outcome:           p.Outcome,
			Significance:      p.Significance,
			LegalImplications: p.LegalImplications,
		},
		SocialSharing: social{
			TwitterSummary:  p.TwitterSummary,
			LinkedInSummary: p.LinkedInSummary,
		},
		Sources: fromSources(p.Sources),
	}
}

func (p post) input() content.PostInput {
	in := content.PostInput{
		Title:             content.Str(p.Title),
		Category:          content.Str(p.Category),
		Tags:              p.Tags,
		Excerpt:           content.Str(p.Excerpt),
		Introduction:      content.Str(p.Content.Introduction),
		MainContent:       content.Str(p.Content.MainContent),
		Conclusion:        content.Str(p.Content.Conclusion),
		Significance:      content.Str(p.Metadata.Significance),
		CaseType:          content.Str(p.Metadata.CaseType),
		Outcome:           content.Str(p.Metadata.Outcome),
		LegalImplications: content.Str(p.Metadata.LegalImplications),
		TwitterSummary:    content.Str(p.SocialSharing.TwitterSummary),
		LinkedInSummary:   content.Str(p.SocialSharing.LinkedInSummary),
		Sources:           toSources(p.Sources),
	}
	if p.PublicationDate != "" {
		in.PublicationDate = content.Str(p.PublicationDate)
	}
	if p.Author != "" {
		in.Author = content.Str(p.Author)
	}
	if p.Category == "" {
		in.Category = content.Str("General Legal")
	}
	if p.Metadata.Significance == "" {
		in.Significance = content.Str("Medium")
	}
	return in
}

func fromEntry(e content.TimelineEntry) entry {
	return entry{
		ID:           e.ID,
		Date:         e.EntryDate,
		EventType:    e.EventType,
		Title:        e.Title,
		Description:  e.Description,
		Significance: e.Significance,
		LegalContext: e.LegalContext,
		RelatedCases: e.RelatedCases,
		Metadata:     entryMeta{ConfidenceLevel: e.ConfidenceLevel},
		Sources:      fromSources(e.Sources),
	}
}

func (e entry) input() content.TimelineInput {
	eventType := e.EventType
	if eventType == "" {
		eventType = "Legal Event"
	}
	confidence := e.Metadata.ConfidenceLevel
	if confidence == "" {
		confidence = "High"
	}
	return content.TimelineInput{
		EntryDate:       content.Str(e.Date),
		EventType:       content.Str(eventType),
		Title:           content.Str(e.Title),
		Description:     content.Str(e.Description),
		Significance:    content.Str(e.Significance),
		LegalContext:    content.Str(e.LegalContext),
		RelatedCases:    e.RelatedCases,
		ConfidenceLevel: content.Str(confidence),
		Sources:         toSources(e.Sources),
	}
}

// Export writes the published posts, the timeline, the profile and the firm
// record into dir and returns the paths it wrote. Archived posts are left
// out.
func Export(ctx context.Context, svc *content.Service, dir string) ([]string, error) {
	posts, err := svc.GetPosts(ctx, content.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("snapshot: posts: %w", err)
	}
	entries, err := svc.GetTimelineEntries(ctx, content.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("snapshot: timeline: %w", err)
	}
	profile, err := svc.GetProfile(ctx)
	if err != nil && !errors.Is(err, content.ErrNotFound) {
		return nil, fmt.Errorf("snapshot: profile: %w", err)
	}
	firm, err := svc.GetCompany(ctx)
	if err != nil && !errors.Is(err, content.ErrNotFound) {
		return nil, fmt.Errorf("snapshot: company: %w", err)
	}
	firmDoc := fromCompany(firm)

	var blog blogDoc
	blog.Blog.Posts = make([]post, 0, len(posts))
	for _, p := range posts {
		blog.Blog.Posts = append(blog.Blog.Posts, fromPost(p))
	}

	chron := cases{
		PersonalProfile: personal{
			FullName:         profile.FullName,
			CurrentPosition:  profile.CurrentPosition,
			PreviousPosition: profile.PreviousPosition,
			LawFirm:          profile.LawFirm,
			CareerSpan:       profile.CareerSpan,
			Specialization:   profile.Specialization,
		},
		Education: education{
			Undergraduate: profile.Undergraduate,
			Graduate:      profile.Graduate,
			Professional:  profile.Professional,
			Institutions:  profile.Institutions,
		},
		FeaturedImage: image{
			URL:     profile.FeaturedImageURL,
			AltText: profile.FeaturedImageAlt,
			Caption: profile.FeaturedImageCaption,
		},
		BlogPosts: append([]post(nil), blog.Blog.Posts...),
		Timeline:  make([]entry, 0, len(entries)),
	}
	sort.SliceStable(chron.BlogPosts, func(i, j int) bool {
		return chron.BlogPosts[i].PublicationDate < chron.BlogPosts[j].PublicationDate
	})
	for _, e := range entries {
		chron.Timeline = append(chron.Timeline, fromEntry(e))
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	var written []string
	for name, doc := range map[string]any{
		BlogFile:       blog,
		ChronologyFile: chronologyDoc{chronologyKey: chron},
		CompanyFile:    companyDoc{CompanyProfile: &firmDoc},
	} {
		path := filepath.Join(dir, name)
		if err := writeJSON(path, doc); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	sort.Strings(written)
	return written, nil
}

// writeJSON replaces path with the indented encoding of v. The file is
// written next to path first so readers never see a partial document.
func writeJSON(path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("snapshot: encode %s: %w", filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(pretty.Pretty(raw)); err != nil {
		tmp.Close()
		return fmt.Errorf("snapshot: write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Result counts what Import loaded.
type Result struct {
	Profile  bool `json:"profile"`
	Company  bool `json:"company"`
	Posts    int  `json:"posts"`
	Skipped  int  `json:"skipped"`
	Timeline int  `json:"timeline"`
}

// Import loads the files Export writes. Any file may be missing, but not
// all of them. Posts whose slug already exists and timeline entries with the
// date and title of an existing entry are skipped, so importing the same
// directory twice changes nothing. When the chronology has no timeline its
// blog_posts are loaded as timeline entries instead.
func Import(ctx context.Context, svc *content.Service, dir string) (Result, error) {
	var res Result
	var blog blogDoc
	blogFound, err := readJSON(filepath.Join(dir, BlogFile), &blog)
	if err != nil {
		return res, err
	}
	var chron chronologyDoc
	chronFound, err := readJSON(filepath.Join(dir, ChronologyFile), &chron)
	if err != nil {
		return res, err
	}
	var firm companyDoc
	companyFound, err := readJSON(filepath.Join(dir, CompanyFile), &firm)
	if err != nil {
		return res, err
	}
	if !blogFound && !chronFound && !companyFound {
		return res, fmt.Errorf("snapshot: no data files in %s", dir)
	}

	if firm.CompanyProfile != nil {
		if _, err := svc.UpdateCompany(ctx, firm.CompanyProfile.input()); err != nil {
			return res, fmt.Errorf("snapshot: company: %w", err)
		}
		res.Company = true
	}

	if c, ok := chron[chronologyKey]; ok {
		if err := importProfile(ctx, svc, c); err != nil {
			return res, err
		}
		res.Profile = true
	}

	for _, p := range blog.Blog.Posts {
		_, err := svc.CreatePost(ctx, p.input())
		switch {
		case store.HasCode(err, store.CodeUniqueViolation):
			res.Skipped++
		case err != nil:
			return res, fmt.Errorf("snapshot: post %q: %w", p.Title, err)
		default:
			res.Posts++
		}
	}

	c := chron[chronologyKey]
	entries := c.Timeline
	if len(entries) == 0 {
		for _, p := range c.BlogPosts {
			entries = append(entries, entry{
				Date:         p.PublicationDate,
				Title:        p.Title,
				Description:  p.Excerpt,
				Significance: p.Metadata.Significance,
				Sources:      p.Sources,
			})
		}
	}
	if len(entries) == 0 {
		return res, nil
	}
	existing, err := svc.GetTimelineEntries(ctx, content.ListOptions{})
	if err != nil {
		return res, fmt.Errorf("snapshot: timeline: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[entryKey(e.EntryDate, e.Title)] = true
	}
	for _, e := range entries {
		key := entryKey(e.Date, e.Title)
		if seen[key] {
			res.Skipped++
			continue
		}
		if _, err := svc.CreateTimelineEntry(ctx, e.input()); err != nil {
			return res, fmt.Errorf("snapshot: timeline %q: %w", e.Title, err)
		}
		seen[key] = true
		res.Timeline++
	}
	return res, nil
}

// entryKey identifies a timeline entry across imports.
func entryKey(date, title string) string {
	return strings.TrimSpace(date) + "\x00" + strings.TrimSpace(title)
}

func importProfile(ctx context.Context, svc *content.Service, c cases) error {
	in := content.ProfileInput{
		FullName:             content.Str(c.PersonalProfile.FullName),
		CurrentPosition:      content.Str(c.PersonalProfile.CurrentPosition),
		PreviousPosition:     content.Str(c.PersonalProfile.PreviousPosition),
		LawFirm:              content.Str(c.PersonalProfile.LawFirm),
		CareerSpan:           content.Str(c.PersonalProfile.CareerSpan),
		Specialization:       content.Str(c.PersonalProfile.Specialization),
		Undergraduate:        content.Str(c.Education.Undergraduate),
		Graduate:             content.Str(c.Education.Graduate),
		Professional:         content.Str(c.Education.Professional),
		Institutions:         c.Education.Institutions,
		FeaturedImageURL:     content.Str(c.FeaturedImage.URL),
		FeaturedImageAlt:     content.Str(c.FeaturedImage.AltText),
		FeaturedImageCaption: content.Str(c.FeaturedImage.Caption),
	}
	if _, err := svc.UpdateProfile(ctx, in); err != nil {
		return fmt.Errorf("snapshot: profile: %w", err)
	}
	return nil
}

func readJSON(path string, v any) (bool, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("snapshot: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("snapshot: decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}
