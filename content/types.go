package content

import (
	"encoding/json"
	"time"
)

// Categories are the post categories offered by the admin form.
var Categories = []string{
	"Election Law",
	"International Criminal Law",
	"International Criminal Court",
	"Constitutional Law",
	"International Investment Law",
	"Government Appointments",
	"Government Legal Affairs",
	"General Legal",
}

// EventTypes are the timeline event types.
var EventTypes = []string{
	"Government Appointment",
	"Legal Case",
	"Court Appearance",
	"Legal Event",
}

// SourceTypes classify a cited source.
var SourceTypes = []string{
	"News Article",
	"Court Document",
	"Legal Brief",
	"Press Release",
	"Official Statement",
}

// Levels is used for both post significance and timeline confidence.
var Levels = []string{"High", "Medium", "Low"}

// Source is a citation attached to a post or timeline entry.
type Source struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Publication string `json:"publication"`
	SourceDate  string `json:"source_date"`
	SourceType  string `json:"source_type"`
	CaseNumber  string `json:"case_number,omitempty"`
}

// Post is a case writeup.
type Post struct {
	ID                int64     `json:"id"`
	PostID            string    `json:"post_id"`
	Slug              string    `json:"slug"`
	Title             string    `json:"title"`
	Category          string    `json:"category"`
	Tags              []string  `json:"tags"`
	Excerpt           string    `json:"excerpt"`
	Introduction      string    `json:"introduction"`
	MainContent       string    `json:"main_content"`
	Conclusion        string    `json:"conclusion"`
	Significance      string    `json:"significance"`
	PublicationDate   string    `json:"publication_date"`
	ReadingTime       string    `json:"reading_time"`
	WordCount         int       `json:"word_count"`
	Author            string    `json:"author"`
	CaseType          string    `json:"case_type"`
	Outcome           string    `json:"outcome"`
	LegalImplications string    `json:"legal_implications"`
	TwitterSummary    string    `json:"twitter_summary"`
	LinkedInSummary   string    `json:"linkedin_summary"`
	IsArchived        bool      `json:"is_archived"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	Sources           []Source  `json:"sources"`
}

// PostInput carries the fields of a create or update. Nil fields are left
// untouched; a nil Tags or Sources slice means "unchanged" while an empty one
// clears the list.
type PostInput struct {
	Title             *string  `json:"title,omitempty"`
	Category          *string  `json:"category,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	Excerpt           *string  `json:"excerpt,omitempty"`
	Introduction      *string  `json:"introduction,omitempty"`
	MainContent       *string  `json:"main_content,omitempty"`
	Conclusion        *string  `json:"conclusion,omitempty"`
	Significance      *string  `json:"significance,omitempty"`
	PublicationDate   *string  `json:"publication_date,omitempty"`
	Author            *string  `json:"author,omitempty"`
	CaseType          *string  `json:"case_type,omitempty"`
	Outcome           *string  `json:"outcome,omitempty"`
	LegalImplications *string  `json:"legal_implications,omitempty"`
	TwitterSummary    *string  `json:"twitter_summary,omitempty"`
	LinkedInSummary   *string  `json:"linkedin_summary,omitempty"`
	Sources           []Source `json:"sources,omitempty"`
}

// TimelineEntry is a dated career event.
type TimelineEntry struct {
	ID              string    `json:"id"`
	EntryDate       string    `json:"entry_date"`
	EventType       string    `json:"event_type"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Significance    string    `json:"significance"`
	LegalContext    string    `json:"legal_context"`
	RelatedCases    []string  `json:"related_cases"`
	ConfidenceLevel string    `json:"confidence_level"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Sources         []Source  `json:"sources"`
}

// TimelineInput carries the fields of a timeline create or update. Keys the
// form sends that are not part of the entry end up in Extra and are never
// written.
type TimelineInput struct {
	EntryDate       *string        `json:"entry_date,omitempty"`
	EventType       *string        `json:"event_type,omitempty"`
	Title           *string        `json:"title,omitempty"`
	Description     *string        `json:"description,omitempty"`
	Significance    *string        `json:"significance,omitempty"`
	LegalContext    *string        `json:"legal_context,omitempty"`
	RelatedCases    []string       `json:"related_cases,omitempty"`
	ConfidenceLevel *string        `json:"confidence_level,omitempty"`
	Sources         []Source       `json:"sources,omitempty"`
	Extra           map[string]any `json:"-"`
}

// UnmarshalJSON decodes the known fields and collects everything else into
// Extra.
func (in *TimelineInput) UnmarshalJSON(data []byte) error {
	type plain TimelineInput
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range timelineInputKeys {
		delete(all, k)
	}
	if len(all) > 0 {
		p.Extra = all
	}
	*in = TimelineInput(p)
	return nil
}

var timelineInputKeys = []string{
	"entry_date", "event_type", "title", "description", "significance",
	"legal_context", "related_cases", "confidence_level", "sources",
}

// LogEntry is one run of the content scraper.
type LogEntry struct {
	ID           string    `json:"id"`
	ScrapingDate time.Time `json:"scraping_date"`
	Source       string    `json:"source"`
	Status       string    `json:"status"`
	ItemsFound   int       `json:"items_found"`
	ItemsAdded   int       `json:"items_added"`
	Message      string    `json:"message"`
}

// Profile is the single biography record.
type Profile struct {
	ID                   int64     `json:"id"`
	FullName             string    `json:"full_name"`
	CurrentPosition      string    `json:"current_position"`
	PreviousPosition     string    `json:"previous_position"`
	LawFirm              string    `json:"law_firm"`
	CareerSpan           string    `json:"career_span"`
	Specialization       string    `json:"specialization"`
	Undergraduate        string    `json:"undergraduate"`
	Graduate             string    `json:"graduate"`
	Professional         string    `json:"professional"`
	Institutions         []string  `json:"institutions"`
	FeaturedImageURL     string    `json:"featured_image_url"`
	FeaturedImageAlt     string    `json:"featured_image_alt"`
	FeaturedImageCaption string    `json:"featured_image_caption"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ProfileInput is a partial profile update.
type ProfileInput struct {
	FullName             *string  `json:"full_name,omitempty"`
	CurrentPosition      *string  `json:"current_position,omitempty"`
	PreviousPosition     *string  `json:"previous_position,omitempty"`
	LawFirm              *string  `json:"law_firm,omitempty"`
	CareerSpan           *string  `json:"career_span,omitempty"`
	Specialization       *string  `json:"specialization,omitempty"`
	Undergraduate        *string  `json:"undergraduate,omitempty"`
	Graduate             *string  `json:"graduate,omitempty"`
	Professional         *string  `json:"professional,omitempty"`
	Institutions         []string `json:"institutions,omitempty"`
	FeaturedImageURL     *string  `json:"featured_image_url,omitempty"`
	FeaturedImageAlt     *string  `json:"featured_image_alt,omitempty"`
	FeaturedImageCaption *string  `json:"featured_image_caption,omitempty"`
}

// ListOptions pages a listing. A zero Limit returns every row.
type ListOptions struct {
	Limit           int
	Offset          int
	IncludeArchived bool
}

// Stats are the dashboard counters.
type Stats struct {
	TotalPosts            int `json:"total_posts"`
	HighSignificancePosts int `json:"high_significance_posts"`
	TotalTimelineEntries  int `json:"total_timeline_entries"`
	Appointments          int `json:"appointments"`
	LegalCases            int `json:"legal_cases"`
}

// Capabilities reports which optional schema features the store has.
type Capabilities struct {
	Archive         bool `json:"archive"`
	TimelineSources bool `json:"timeline_sources"`
	PostSources     bool `json:"blog_sources"`
	ScrapingLog     bool `json:"scraping_log"`
	Stats           bool `json:"dashboard_stats"`
}

// Str returns a pointer to s, for building inputs.
func Str(s string) *string { return &s }

// Company is the single record describing the law firm.
type Company struct {
	ID               int64          `json:"id"`
	FirmName         string         `json:"firm_name"`
	FirmDescription  string         `json:"firm_description"`
	Established      string         `json:"established"`
	Vision           string         `json:"vision"`
	Mission          string         `json:"mission"`
	FoundingPartners []Partner      `json:"founding_partners"`
	Values           []string       `json:"firm_values"`
	AreasOfPractice  []PracticeArea `json:"areas_of_practice"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Partner is a founding partner of the firm.
type Partner struct {
	Name                    string     `json:"name"`
	Title                   string     `json:"title"`
	Qualifications          string     `json:"qualifications,omitempty"`
	GovernmentPositions     []Position `json:"government_positions,omitempty"`
	InternationalExperience []string   `json:"international_experience,omitempty"`
}

// Position is a public office a partner held.
type Position struct {
	Position     string `json:"position"`
	Organization string `json:"organization,omitempty"`
	Period       string `json:"period"`
}

// PracticeArea is one of the firm's areas of practice.
type PracticeArea struct {
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	Services           []string `json:"services,omitempty"`
	LegislationCovered []string `json:"legislation_covered,omitempty"`
	NotableCases       []string `json:"notable_cases,omitempty"`
	ClientTypes        []string `json:"client_types,omitempty"`
	TargetGroups       []string `json:"target_groups,omitempty"`
}

// CompanyInput is a partial company update. A nil list is left unchanged and
// an empty one clears it.
type CompanyInput struct {
	FirmName         *string        `json:"firm_name,omitempty"`
	FirmDescription  *string        `json:"firm_description,omitempty"`
	Established      *string        `json:"established,omitempty"`
	Vision           *string        `json:"vision,omitempty"`
	Mission          *string        `json:"mission,omitempty"`
	FoundingPartners []Partner      `json:"founding_partners,omitempty"`
	Values           []string       `json:"firm_values,omitempty"`
	AreasOfPractice  []PracticeArea `json:"areas_of_practice,omitempty"`
}
