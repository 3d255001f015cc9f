// Package views holds the server-rendered pages as templ components. The
// *_templ.go files are generated from the .templ sources by templ generate.
package views

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.960 generate

import (
	"github.com/eringen/dossier/auth"
	"github.com/eringen/dossier/content"
)

// Site holds the site-wide settings every page needs.
type Site struct {
	Name        string
	URL         string
	Description string
	Author      string
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head>.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website", "article" or "profile"
	JSONLD      string
}

type HomePage struct {
	Site       Site
	Profile    content.Profile
	Posts      []content.Post
	Timeline   []content.TimelineEntry
	Filter     content.PostFilter
	Categories []string
	Years      []string
}

type PostPage struct {
	Site    Site
	Post    content.Post
	Related []content.Post
}

type TimelinePage struct {
	Site       Site
	Entries    []content.TimelineEntry
	Filter     content.TimelineFilter
	EventTypes []string
}

type CompanyPage struct {
	Site    Site
	Company content.Company
}

// AdminPage is the admin shell. With a nil User it shows the sign-in form.
type AdminPage struct {
	Site         Site
	User         *auth.User
	CSRF         string
	LoginFailed  bool
	Message      string
	Posts        []content.Post
	Stats        content.Stats
	Capabilities content.Capabilities
}
