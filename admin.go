package dossier

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/dossier/auth"
	"github.com/eringen/dossier/content"
	"github.com/eringen/dossier/snapshot"
	"github.com/eringen/dossier/views"
)

func (a *App) handleAdmin(c echo.Context) error {
	u, err := a.CurrentUser(c)
	if err != nil {
		return err
	}
	return a.renderAdmin(c, http.StatusOK, u, false)
}

func (a *App) renderAdmin(c echo.Context, code int, u *auth.User, loginFailed bool) error {
	page := views.AdminPage{
		Site:        a.site(),
		User:        u,
		CSRF:        CsrfToken(c),
		LoginFailed: loginFailed,
		Message:     c.QueryParam("msg"),
	}
	if u != nil {
		ctx := c.Request().Context()
		var err error
		if page.Posts, err = a.Content.GetPosts(ctx, content.ListOptions{IncludeArchived: true}); err != nil {
			return err
		}
		if page.Stats, err = a.Content.Stats(ctx); err != nil {
			return err
		}
		if page.Capabilities, err = a.Content.Capabilities(ctx); err != nil {
			return err
		}
	}
	return RenderStatus(c, code, a.Views.Admin(page))
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request")
	}
	sess, err := a.Auth.SignIn(c.Request().Context(), cookieSlot{c}, req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			return err
		}
		a.loginLimiter.Record(ip)
		if wantsJSON(c) {
			return err
		}
		return a.renderAdmin(c, http.StatusUnauthorized, nil, true)
	}
	a.loginLimiter.Reset(ip)
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, sess)
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminLogout(c echo.Context) error {
	if err := a.Auth.SignOut(c.Request().Context(), cookieSlot{c}); err != nil {
		return err
	}
	if wantsJSON(c) {
		return c.NoContent(http.StatusNoContent)
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) adminMe(c echo.Context) error {
	u, err := a.CurrentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func bindJSON(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON body")
	}
	return nil
}

// listFields are the form fields holding comma-separated lists.
var listFields = map[string]bool{
	"tags":          true,
	"related_cases": true,
	"institutions":  true,
	"firm_values":   true,
}

// bindInput binds a JSON body, or a form-encoded one whose field names are
// the JSON keys. Only the first value of a form field is used.
func bindInput(c echo.Context, dst any) error {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ct, echo.MIMEApplicationForm) {
		return bindJSON(c, dst)
	}
	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form body")
	}
	doc := make(map[string]any, len(form))
	for k, vals := range form {
		if k == "_csrf" || len(vals) == 0 {
			continue
		}
		if listFields[k] {
			doc[k] = SplitList(vals[0])
		} else {
			doc[k] = vals[0]
		}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form body")
	}
	return nil
}

func (a *App) adminListPosts(c echo.Context) error {
	opts, err := listOptions(c)
	if err != nil {
		return err
	}
	opts.IncludeArchived = c.QueryParam("archived") != "false"
	posts, err := a.Content.GetPosts(c.Request().Context(), opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, content.FilterPosts(posts, postFilter(c)))
}

func (a *App) adminGetPost(c echo.Context) error {
	post, err := a.Content.GetPost(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

// written answers a successful write and drops the read cache.
func (a *App) written(c echo.Context, code int, v any) error {
	a.Cache.Invalidate()
	return c.JSON(code, v)
}

func (a *App) adminCreatePost(c echo.Context) error {
	var in content.PostInput
	if err := bindInput(c, &in); err != nil {
		return err
	}
	post, err := a.Content.CreatePost(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return a.written(c, http.StatusCreated, post)
}

func (a *App) adminUpdatePost(c echo.Context) error {
	var in content.PostInput
	if err := bindInput(c, &in); err != nil {
		return err
	}
	post, err := a.Content.UpdatePost(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return err
	}
	return a.written(c, http.StatusOK, post)
}

func (a *App) adminDeletePost(c echo.Context) error {
	post, err := a.Content.DeletePost(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return a.written(c, http.StatusOK, post)
}

func (a *App) adminArchivePost(c echo.Context) error {
	post, err := a.Content.ArchivePost(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return a.written(c, http.StatusOK, post)
}

func (a *App) adminUnarchivePost(c echo.Context) error {
	post, err := a.Content.UnarchivePost(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return a.written(c, http.StatusOK, post)
}

func (a *App) adminListTimeline(c echo.Context) error {
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

func (a *App) adminGetTimeline(c echo.Context) error {
	return a.apiTimelineEntry(c)
}

func (a *App) adminCreateTimeline(c echo.Context) error {
	var in content.TimelineInput
	if err := bindInput(c, &in); err != nil {
		return err
	}
	entry, err := a.Content.CreateTimelineEntry(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return a.written(c, http.StatusCreated, entry)
}

func (a *App) adminUpdateTimeline(c echo.Context) error {
	var in content.TimelineInput
	if err := bindInput(c, &in); err != nil {
		return err
	}
	entry, err := a.Content.UpdateTimelineEntry(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return err
	}
	return a.written(c, http.StatusOK, entry)
}

func (a *App) adminDeleteTimeline(c echo.Context) error {
	entry, err := a.Content.DeleteTimelineEntry(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return a.written(c, http.StatusOK, entry)
}

func (a *App) adminUpdateProfile(c echo.Context) error {
	var in content.ProfileInput
	if err := bindInput(c, &in); err != nil {
		return err
	}
	profile, err := a.Content.UpdateProfile(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return a.written(c, http.StatusOK, profile)
}

func (a *App) adminUpdateCompany(c echo.Context) error {
	var in content.CompanyInput
	if err := bindInput(c, &in); err != nil {
		return err
	}
	company, err := a.Content.UpdateCompany(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return a.written(c, http.StatusOK, company)
}

func (a *App) adminScrapingLog(c echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		limit = n
	}
	entries, err := a.Content.GetScrapingLog(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

func (a *App) adminLogScrape(c echo.Context) error {
	var e content.LogEntry
	if err := bindJSON(c, &e); err != nil {
		return err
	}
	e, err := a.Content.LogScrape(c.Request().Context(), e)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, e)
}

func (a *App) adminStats(c echo.Context) error {
	st, err := a.Content.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func (a *App) adminCapabilities(c echo.Context) error {
	caps, err := a.Content.Capabilities(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, caps)
}

func (a *App) adminSnapshot(c echo.Context) error {
	files, err := snapshot.Export(c.Request().Context(), a.Content, a.Config.SnapshotDir)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string][]string{"files": files})
}
