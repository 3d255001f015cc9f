package dossier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/eringen/dossier/auth"
	"github.com/eringen/dossier/content"
	"github.com/eringen/dossier/store"
)

const (
	testCSRF     = "test-csrf-token"
	testUser     = "admin"
	testPassword = "correct horse battery"
)

func newTestApp(t *testing.T, features ...store.Feature) *App {
	t.Helper()
	ctx := context.Background()
	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.EnsureSchema(ctx, features...); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	a := New(SiteConfig{
		SessionSecret: "test-secret",
		UploadDir:     t.TempDir(),
		SnapshotDir:   t.TempDir(),
		LogLevel:      "error",
	}, WithBackend(db), WithStaticDir(t.TempDir()))
	if err := a.Setup(ctx); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	if _, err := a.Auth.CreateUser(ctx, auth.NewUser{Username: testUser, Password: testPassword}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return a
}

// request builds a request that carries a matching CSRF cookie and header.
// A non-empty body is sent as JSON.
func request(method, target, body string, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set("X-CSRF-Token", testCSRF)
	req.AddCookie(&http.Cookie{Name: "_csrf", Value: testCSRF})
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func serve(a *App, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, a *App) *http.Cookie {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":%q}`, testUser, testPassword)
	rec := serve(a, request(http.MethodPost, "/admin/login/", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SlotName {
			return c
		}
	}
	t.Fatal("login did not set the session cookie")
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func createPost(t *testing.T, a *App, title, date string) content.Post {
	t.Helper()
	p, err := a.Content.CreatePost(context.Background(), content.PostInput{
		Title:           content.Str(title),
		PublicationDate: content.Str(date),
		MainContent:     content.Str("Filed before the court.[^1]"),
		Sources:         []content.Source{{URL: "https://example.com/filing", Title: "Filing"}},
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	return p
}

func TestPublicAPIHidesArchivedPosts(t *testing.T) {
	a := newTestApp(t, store.AllFeatures()...)
	createPost(t, a, "Presidential Petition", "2022-09-05")
	createPost(t, a, "Old Brief", "2019-01-10")
	if _, err := a.Content.ArchivePost(context.Background(), "old-brief"); err != nil {
		t.Fatalf("ArchivePost: %v", err)
	}

	rec := serve(a, request(http.MethodGet, "/api/posts", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var posts []content.Post
	decodeBody(t, rec, &posts)
	if len(posts) != 1 || posts[0].PostID != "presidential-petition" {
		t.Fatalf("unexpected posts: %+v", posts)
	}
	if len(posts[0].Sources) != 1 {
		t.Errorf("expected sources on the listing, got %+v", posts[0].Sources)
	}

	rec = serve(a, request(http.MethodGet, "/api/posts/old-brief", ""))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an archived post, got %d", rec.Code)
	}
	var body errorBody
	decodeBody(t, rec, &body)
	if body.Error != "Not found" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestListOptionsRejectsBadLimit(t *testing.T) {
	a := newTestApp(t)
	rec := serve(a, request(http.MethodGet, "/api/posts?limit=abc", ""))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAdminAPIRequiresSession(t *testing.T) {
	a := newTestApp(t)
	rec := serve(a, request(http.MethodGet, "/admin/api/posts", ""))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body errorBody
	decodeBody(t, rec, &body)
	if body.Error != "Sign in required" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	a := newTestApp(t)
	rec := serve(a, request(http.MethodPost, "/admin/login/", `{"username":"admin","password":"nope-nope"}`))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body errorBody
	decodeBody(t, rec, &body)
	if body.Error != auth.ErrInvalidCredentials.Error() {
		t.Errorf("error = %q", body.Error)
	}
}

func TestLoginRequiresCSRFToken(t *testing.T) {
	a := newTestApp(t)
	req := httptest.NewRequest(http.MethodPost, "/admin/login/", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := serve(a, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	a := newTestApp(t)
	bad := `{"username":"admin","password":"wrong-password"}`
	for i := 0; i < 5; i++ {
		if rec := serve(a, request(http.MethodPost, "/admin/login/", bad)); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, rec.Code)
		}
	}
	rec := serve(a, request(http.MethodPost, "/admin/login/", bad))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestAdminPostLifecycle(t *testing.T) {
	a := newTestApp(t, store.AllFeatures()...)
	session := login(t, a)

	rec := serve(a, request(http.MethodPost, "/admin/api/posts",
		`{"title":"Election Petition","publication_date":"2024-01-02","main_content":"one two three","tags":["elections","elections"]}`, session))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var post content.Post
	decodeBody(t, rec, &post)
	if post.PostID != "election-petition" || post.WordCount != 3 {
		t.Fatalf("unexpected post: %+v", post)
	}
	if len(post.Tags) != 1 {
		t.Errorf("expected deduplicated tags, got %v", post.Tags)
	}

	rec = serve(a, request(http.MethodPut, "/admin/api/posts/election-petition", `{"excerpt":"Annulled"}`, session))
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &post)
	if post.Excerpt != "Annulled" || post.Title != "Election Petition" {
		t.Errorf("unexpected update result: %+v", post)
	}

	rec = serve(a, request(http.MethodPost, "/admin/api/posts/election-petition/archive", "", session))
	if rec.Code != http.StatusOK {
		t.Fatalf("archive: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := serve(a, request(http.MethodGet, "/api/posts/election-petition", "")); rec.Code != http.StatusNotFound {
		t.Errorf("archived post still public: %d", rec.Code)
	}
	rec = serve(a, request(http.MethodPost, "/admin/api/posts/election-petition/unarchive", "", session))
	if rec.Code != http.StatusOK {
		t.Fatalf("unarchive: expected 200, got %d", rec.Code)
	}

	rec = serve(a, request(http.MethodDelete, "/admin/api/posts/election-petition", "", session))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	if rec := serve(a, request(http.MethodGet, "/api/posts/election-petition", "")); rec.Code != http.StatusNotFound {
		t.Errorf("deleted post still served: %d", rec.Code)
	}
}

func TestAdminCreateRejectsInvalidInput(t *testing.T) {
	a := newTestApp(t)
	session := login(t, a)
	rec := serve(a, request(http.MethodPost, "/admin/api/posts", `{"title":"  "}`, session))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	rec = serve(a, request(http.MethodPost, "/admin/api/posts", `{"title":`, session))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", rec.Code)
	}
}

func TestArchiveWithoutFeatureConflicts(t *testing.T) {
	a := newTestApp(t)
	session := login(t, a)
	createPost(t, a, "Plain Post", "2020-02-02")

	rec := serve(a, request(http.MethodPost, "/admin/api/posts/plain-post/archive", "", session))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	var body errorBody
	decodeBody(t, rec, &body)
	if body.Code != string(store.FeatureArchive) || !strings.Contains(body.Guidance, "migrate") {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestAdminTimelineAndCapabilities(t *testing.T) {
	a := newTestApp(t, store.FeatureTimelineSources)
	session := login(t, a)

	rec := serve(a, request(http.MethodPost, "/admin/api/timeline",
		`{"entry_date":"2018-07-01","event_type":"Government Appointment","title":"Appointed","color":"red","sources":[{"url":"https://example.com/gazette","title":"Gazette"}]}`, session))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var entry content.TimelineEntry
	decodeBody(t, rec, &entry)
	if entry.ID == "" || len(entry.Sources) != 1 {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	rec = serve(a, request(http.MethodGet, "/api/timeline/"+entry.ID, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("public get: expected 200, got %d", rec.Code)
	}

	rec = serve(a, request(http.MethodGet, "/admin/api/capabilities", "", session))
	if rec.Code != http.StatusOK {
		t.Fatalf("capabilities: expected 200, got %d", rec.Code)
	}
	var caps content.Capabilities
	decodeBody(t, rec, &caps)
	if !caps.TimelineSources || caps.Archive || caps.PostSources {
		t.Errorf("unexpected capabilities: %+v", caps)
	}

	rec = serve(a, request(http.MethodGet, "/admin/api/stats", "", session))
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", rec.Code)
	}
	var st content.Stats
	decodeBody(t, rec, &st)
	if st.TotalTimelineEntries != 1 || st.Appointments != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	a := newTestApp(t)
	session := login(t, a)

	if rec := serve(a, request(http.MethodGet, "/admin/api/me", "", session)); rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rec.Code)
	}
	req := request(http.MethodPost, "/admin/logout/", "", session)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	if rec := serve(a, req); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", rec.Code)
	}
	// The old cookie still verifies but its token is gone from the store.
	if rec := serve(a, request(http.MethodGet, "/admin/api/me", "", session)); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestPagesRenderAndFollowWrites(t *testing.T) {
	a := newTestApp(t, store.AllFeatures()...)
	session := login(t, a)

	rec := serve(a, request(http.MethodGet, "/", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("home: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentType), "text/html") {
		t.Errorf("home content type = %q", rec.Header().Get(echo.HeaderContentType))
	}

	// The home page filled the read cache; a write through the admin API
	// must drop it.
	rec = serve(a, request(http.MethodPost, "/admin/api/posts",
		`{"title":"Fresh <Case>","publication_date":"2024-05-01","main_content":"Decided.[^1]","sources":[{"url":"https://example.com/a","title":"A"}]}`, session))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", rec.Code)
	}

	rec = serve(a, request(http.MethodGet, "/blog/fresh-case/", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("post page: expected 200, got %d", rec.Code)
	}
	html := rec.Body.String()
	if !strings.Contains(html, "Fresh &lt;Case&gt;") {
		t.Error("expected the escaped title on the post page")
	}
	if !strings.Contains(html, `href="#source-1"`) {
		t.Error("expected the citation to link to its source")
	}

	if rec := serve(a, request(http.MethodGet, "/timeline/", "")); rec.Code != http.StatusOK {
		t.Fatalf("timeline: expected 200, got %d", rec.Code)
	}
	rec = serve(a, request(http.MethodGet, "/feed.xml", ""))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/blog/fresh-case/") {
		t.Fatalf("feed: %d %s", rec.Code, rec.Body.String())
	}
	rec = serve(a, request(http.MethodGet, "/sitemap.xml", ""))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/timeline/") {
		t.Fatalf("sitemap: %d", rec.Code)
	}
}

func TestNotFound(t *testing.T) {
	a := newTestApp(t)

	rec := serve(a, request(http.MethodGet, "/blog/missing/", ""))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Page not found") {
		t.Error("expected the not-found page")
	}

	rec = serve(a, request(http.MethodGet, "/api/timeline/missing", ""))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body errorBody
	decodeBody(t, rec, &body)
	if body.Error == "" {
		t.Error("expected a JSON error body")
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	a := newTestApp(t, store.AllFeatures()...)
	session := login(t, a)
	createPost(t, a, "Snapshot Case", "2021-01-01")

	rec := serve(a, request(http.MethodPost, "/admin/api/snapshot", "", session))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out map[string][]string
	decodeBody(t, rec, &out)
	if len(out["files"]) != 3 {
		t.Errorf("unexpected files: %v", out)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"http error", echo.NewHTTPError(http.StatusTeapot, "short and stout"), http.StatusTeapot},
		{"not found", content.ErrNotFound, http.StatusNotFound},
		{"feature", &content.FeatureUnavailableError{Feature: store.FeatureArchive, Message: "m"}, http.StatusConflict},
		{"credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{"input", fmt.Errorf("%w: title is required", content.ErrInvalidInput), http.StatusBadRequest},
		{"unique", &store.Error{Code: store.CodeUniqueViolation, Message: "dup"}, http.StatusConflict},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := classify(tt.err)
			if code != tt.code {
				t.Errorf("code = %d, want %d", code, tt.code)
			}
			if code == http.StatusInternalServerError && strings.Contains(body.Error, "disk") {
				t.Errorf("internal error leaked: %q", body.Error)
			}
		})
	}
}

func TestAdminAcceptsFormEncodedInput(t *testing.T) {
	a := newTestApp(t, store.AllFeatures()...)
	session := login(t, a)

	form := url.Values{
		"_csrf":            {testCSRF},
		"title":            {"Form Case"},
		"publication_date": {"2024-02-01"},
		"tags":             {" Petitions, Election Law ,petitions,, "},
	}
	req := request(http.MethodPost, "/admin/api/posts", form.Encode(), session)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := serve(a, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var post content.Post
	decodeBody(t, rec, &post)
	if want := []string{"Petitions", "Election Law"}; fmt.Sprint(post.Tags) != fmt.Sprint(want) {
		t.Errorf("tags = %q, want %q", post.Tags, want)
	}

	form = url.Values{
		"entry_date":    {"2017-09-01"},
		"event_type":    {"Legal Case"},
		"title":         {"Petition filed"},
		"related_cases": {"Petition No. 1, Petition No. 2"},
	}
	req = request(http.MethodPost, "/admin/api/timeline", form.Encode(), session)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec = serve(a, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("timeline create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var entry content.TimelineEntry
	decodeBody(t, rec, &entry)
	if len(entry.RelatedCases) != 2 || entry.RelatedCases[1] != "Petition No. 2" {
		t.Errorf("related cases = %q", entry.RelatedCases)
	}
}

func TestCompanyProfile(t *testing.T) {
	a := newTestApp(t, store.AllFeatures()...)
	session := login(t, a)

	rec := serve(a, request(http.MethodPut, "/admin/api/company",
		`{"firm_name":"Advocate & Partners","established":"2019","firm_values":["Integrity","Integrity","Excellence"],
		"founding_partners":[{"name":"Jane Advocate","title":"Managing Partner"}]}`, session))
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = serve(a, request(http.MethodGet, "/api/company", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("api: expected 200, got %d", rec.Code)
	}
	var c content.Company
	decodeBody(t, rec, &c)
	if c.FirmName != "Advocate & Partners" || len(c.Values) != 2 || len(c.FoundingPartners) != 1 {
		t.Errorf("unexpected company: %+v", c)
	}

	rec = serve(a, request(http.MethodGet, "/company/", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("page: expected 200, got %d", rec.Code)
	}
	if html := rec.Body.String(); !strings.Contains(html, "Advocate &amp; Partners") || !strings.Contains(html, "Jane Advocate") {
		t.Error("expected the firm name and partner on the company page")
	}
}
