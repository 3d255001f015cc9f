package dossier

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/eringen/dossier/auth"
)

const (
	tokenKey = "token"
	userKey  = "dossier.user"
)

func (a *App) setupMiddleware() {
	e := a.Echo

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)

	e.HTTPErrorHandler = a.httpErrorHandler

	e.Pre(middleware.NonWWWRedirect())

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			c.Logger().Infof("%s %s -> %d (%s)", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	e.Use(middleware.Recover())

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/public/")
		},
	}))

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' https: data:; font-src 'self'; connect-src 'self'",
		HSTSMaxAge:            31536000,
	}))

	e.Use(session.Middleware(a.newSessionStore()))

	e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		ContextKey:     middleware.DefaultCSRFConfig.ContextKey,
		TokenLookup:    "header:X-CSRF-Token,form:_csrf",
		CookieName:     "_csrf",
		CookiePath:     "/",
		CookieSameSite: http.SameSiteLaxMode,
		CookieSecure:   a.Config.CookieSecure,
		ErrorHandler: func(err error, c echo.Context) error {
			return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
		},
	}))

	e.Use(middleware.AddTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		RedirectCode: http.StatusMovedPermanently,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.HasPrefix(path, "/public") ||
				strings.HasPrefix(path, uploadsPath) ||
				isAPIPath(path) ||
				path == "/sitemap.xml" || path == "/feed.xml" || path == "/robots.txt"
		},
	}))

	e.Use(cacheControlMiddleware)
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/admin/api/")
}

func cacheControlMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		switch {
		case strings.HasPrefix(path, "/public/"), strings.HasPrefix(path, uploadsPath+"/"):
			c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		case path == "/sitemap.xml" || path == "/feed.xml" || path == "/robots.txt":
			c.Response().Header().Set("Cache-Control", "public, max-age=86400")
		case strings.HasPrefix(path, "/admin"):
			c.Response().Header().Set("Cache-Control", "no-store")
		case strings.HasPrefix(path, "/api/"):
			c.Response().Header().Set("Cache-Control", "public, max-age=60")
		default:
			c.Response().Header().Set("Cache-Control", "public, max-age=3600")
		}
		return next(c)
	}
}

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(auth.SessionTTL / time.Second),
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}

// cookieSlot keeps the session token in the signed dossier_session cookie.
type cookieSlot struct {
	c echo.Context
}

func (s cookieSlot) Load() (string, error) {
	sess, err := session.Get(auth.SlotName, s.c)
	if err != nil {
		// A cookie that no longer verifies is treated as no session.
		return "", nil
	}
	token, _ := sess.Values[tokenKey].(string)
	return token, nil
}

func (s cookieSlot) Store(token string, expires time.Time) error {
	sess, err := session.Get(auth.SlotName, s.c)
	if sess == nil {
		return err
	}
	maxAge := int(time.Until(expires) / time.Second)
	if maxAge < 1 {
		maxAge = 1
	}
	sess.Options.MaxAge = maxAge
	sess.Values[tokenKey] = token
	return sess.Save(s.c.Request(), s.c.Response())
}

func (s cookieSlot) Clear() error {
	sess, err := session.Get(auth.SlotName, s.c)
	if sess == nil {
		return err
	}
	if _, ok := sess.Values[tokenKey]; !ok && sess.IsNew {
		return nil
	}
	delete(sess.Values, tokenKey)
	sess.Options.MaxAge = -1
	return sess.Save(s.c.Request(), s.c.Response())
}

// CurrentUser returns the signed-in user for the request, or nil.
func (a *App) CurrentUser(c echo.Context) (*auth.User, error) {
	if u, ok := c.Get(userKey).(*auth.User); ok {
		return u, nil
	}
	u, err := a.Auth.CurrentUser(c.Request().Context(), cookieSlot{c})
	if err != nil || u == nil {
		return nil, err
	}
	c.Set(userKey, u)
	return u, nil
}

// requireAdmin rejects requests without a valid session.
func (a *App) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, err := a.CurrentUser(c)
		if err != nil {
			return err
		}
		if u == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Sign in required")
		}
		return next(c)
	}
}

// CsrfToken extracts the CSRF token from the Echo context.
func CsrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}
