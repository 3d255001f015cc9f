package dossier

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/dossier/auth"
	"github.com/eringen/dossier/content"
	"github.com/eringen/dossier/store"
	"github.com/eringen/dossier/views"
)

const recentTimeline = 5

func postFilter(c echo.Context) content.PostFilter {
	return content.PostFilter{
		Term:     strings.TrimSpace(c.QueryParam("q")),
		Category: c.QueryParam("category"),
		Tag:      c.QueryParam("tag"),
		Year:     c.QueryParam("year"),
	}
}

func timelineFilter(c echo.Context) content.TimelineFilter {
	return content.TimelineFilter{
		Term:      strings.TrimSpace(c.QueryParam("q")),
		EventType: c.QueryParam("type"),
		Year:      c.QueryParam("year"),
	}
}

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	all, err := a.Cache.Posts(ctx, content.PostFilter{})
	if err != nil {
		return err
	}
	f := postFilter(c)
	entries, err := a.Cache.Timeline(ctx, content.TimelineFilter{})
	if err != nil {
		return err
	}
	if len(entries) > recentTimeline {
		entries = entries[:recentTimeline]
	}
	profile, err := a.Content.GetProfile(ctx)
	if err != nil && !errors.Is(err, content.ErrNotFound) {
		return err
	}
	return Render(c, a.Views.Home(views.HomePage{
		Site:       a.site(),
		Profile:    profile,
		Posts:      content.FilterPosts(all, f),
		Timeline:   entries,
		Filter:     f,
		Categories: content.Categories,
		Years:      content.Years(all),
	}))
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := a.Cache.Post(ctx, c.Param("slug"))
	if err != nil {
		return err
	}
	posts, err := a.Cache.Posts(ctx, content.PostFilter{})
	if err != nil {
		return err
	}
	return Render(c, a.Views.Post(views.PostPage{
		Site:    a.site(),
		Post:    post,
		Related: RelatedPosts(post, posts, 3),
	}))
}

func (a *App) handleTimeline(c echo.Context) error {
	f := timelineFilter(c)
	entries, err := a.Cache.Timeline(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Timeline(views.TimelinePage{
		Site:       a.site(),
		Entries:    entries,
		Filter:     f,
		EventTypes: content.EventTypes,
	}))
}

func (a *App) handleCompany(c echo.Context) error {
	company, err := a.Content.GetCompany(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, a.Views.Company(views.CompanyPage{
		Site:    a.site(),
		Company: company,
	}))
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.Posts(c.Request().Context(), content.PostFilter{})
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.Posts(c.Request().Context(), content.PostFilter{})
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func handleBlogRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/")
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(a.staticDir + "/favicon.svg")
}

func (a *App) handleRobots(c echo.Context) error {
	return c.File(a.staticDir + "/robots.txt")
}

// listOptions reads ?limit= and ?offset=. A missing limit means all rows.
func listOptions(c echo.Context) (content.ListOptions, error) {
	var opts content.ListOptions
	for name, dst := range map[string]*int{"limit": &opts.Limit, "offset": &opts.Offset} {
		v := c.QueryParam(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, echo.NewHTTPError(http.StatusBadRequest, name+" must be a non-negative integer")
		}
		*dst = n
	}
	return opts, nil
}

func (a *App) apiPosts(c echo.Context) error {
	opts, err := listOptions(c)
	if err != nil {
		return err
	}
	posts, err := a.Content.GetPosts(c.Request().Context(), opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, content.FilterPosts(posts, postFilter(c)))
}

func (a *App) apiPost(c echo.Context) error {
	post, err := a.Content.GetPost(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if post.IsArchived {
		return content.ErrNotFound
	}
	return c.JSON(http.StatusOK, post)
}

func (a *App) apiTimeline(c echo.Context) error {
	opts, err := listOptions(c)
	if err != nil {
		return err
	}
	entries, err := a.Content.GetTimelineEntries(c.Request().Context(), opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, content.FilterTimeline(entries, timelineFilter(c)))
}

func (a *App) apiTimelineEntry(c echo.Context) error {
	entry, err := a.Content.GetTimelineEntry(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

func (a *App) apiProfile(c echo.Context) error {
	profile, err := a.Content.GetProfile(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

func (a *App) apiCompany(c echo.Context) error {
	company, err := a.Content.GetCompany(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, company)
}

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	Guidance string `json:"guidance,omitempty"`
}

// classify maps an error to a status and a body that is safe to show.
func classify(err error) (int, errorBody) {
	var he *echo.HTTPError
	var fu *content.FeatureUnavailableError
	switch {
	case errors.As(err, &he):
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		return he.Code, errorBody{Error: msg}
	case errors.Is(err, content.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: "Not found"}
	case errors.As(err, &fu):
		return http.StatusConflict, errorBody{Error: fu.Message, Code: string(fu.Feature), Guidance: fu.Guidance}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorBody{Error: auth.ErrInvalidCredentials.Error()}
	case errors.Is(err, content.ErrInvalidInput):
		return http.StatusBadRequest, errorBody{Error: err.Error()}
	case store.HasCode(err, store.CodeUniqueViolation):
		return http.StatusConflict, errorBody{Error: "An item with that key already exists", Code: store.CodeUniqueViolation}
	default:
		return http.StatusInternalServerError, errorBody{Error: "Something went wrong"}
	}
}

func wantsJSON(c echo.Context) bool {
	req := c.Request()
	return isAPIPath(req.URL.Path) ||
		strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) ||
		strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, body := classify(err)
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	if wantsJSON(c) {
		_ = c.JSON(code, body)
		return
	}
	switch {
	case code == http.StatusNotFound:
		_ = RenderStatus(c, code, a.Views.NotFound(a.site()))
	case code >= 500:
		_ = RenderStatus(c, code, a.Views.ServerError(a.site()))
	default:
		_ = c.String(code, body.Error)
	}
}
