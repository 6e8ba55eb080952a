package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steemit/bookmarks/internal/anon"
	"github.com/steemit/bookmarks/internal/auth"
	"github.com/steemit/bookmarks/internal/bookmark"
	"github.com/steemit/bookmarks/internal/cache"
	"github.com/steemit/bookmarks/internal/db"
	"github.com/steemit/bookmarks/internal/models"
	"github.com/steemit/bookmarks/internal/render"
	"github.com/steemit/bookmarks/pkg/config"
)

const testSessionSecret = "session-secret-0123456789"

type testServer struct {
	engine    *gin.Engine
	database  *db.DB
	bookmarks *db.BookmarkRepository
	posts     map[string]*models.Post
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			URL:         filepath.Join(t.TempDir(), "api.db"),
			TablePrefix: "wp_",
		},
		Cache: config.CacheConfig{Backend: "memory", TTL: time.Minute, Prefix: "bookmarkpost:"},
		Auth: config.AuthConfig{
			SessionSecret: testSessionSecret,
			SessionCookie: "host_session",
			NonceSecret:   "nonce-secret-0123456789",
			NonceLifetime: 24 * time.Hour,
			AdminRoles:    []string{"administrator"},
		},
		Anonymous: config.AnonymousConfig{
			CookieName: "bookmarks",
			CookiePath: "/",
			Secret:     "anon-secret-0123456789",
			TTL:        30 * 24 * time.Hour,
			MaxEntries: 500,
		},
		Bookmarks: config.BookmarksConfig{RejectInvalidPostID: true},
		Site:      config.SiteConfig{URL: "https://example.com", AssetsURL: "https://example.com/assets"},
	}
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig(t)
	for _, m := range mutate {
		m(cfg)
	}

	database, err := db.New(&cfg.Database, "ERROR")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	ctx := context.Background()
	require.NoError(t, database.Migrate(ctx))
	require.NoError(t, database.AutoMigrate(&models.Post{}))

	posts := map[string]*models.Post{
		"hello":  {Title: "Hello", Slug: "hello", Status: models.PostStatusPublish, Type: models.PostTypePost},
		"second": {Title: "Second", Slug: "second", Status: models.PostStatusPublish, Type: models.PostTypePost},
		"draft":  {Title: "Draft", Slug: "draft", Status: "draft", Type: models.PostTypePost},
	}
	for _, p := range posts {
		require.NoError(t, database.Create(p).Error)
	}

	repo := db.NewRepository(database.DB)
	postRepo := db.NewPostRepository(repo)
	_, err = postRepo.EnsureListPage(ctx, "bookmarks-list", "Bookmarks List")
	require.NoError(t, err)
	listPage, err := postRepo.GetBySlug(ctx, "bookmarks-list", models.PostTypePage)
	require.NoError(t, err)
	posts["list"] = listPage

	store, err := cache.New(&cfg.Cache, &cfg.Redis)
	require.NoError(t, err)

	bookmarks := db.NewBookmarkRepository(repo)
	renderer, err := render.New(cfg.Site)
	require.NoError(t, err)

	router := NewRouter(Deps{
		Service:   bookmark.NewService(bookmarks, anon.NewTracker(&cfg.Anonymous), store, bookmark.OptionsFromConfig(cfg)),
		Posts:     postRepo,
		Renderer:  renderer,
		Sessions:  auth.NewSessionResolver(&cfg.Auth),
		Nonces:    auth.NewNonceManager(&cfg.Auth),
		Anonymous: cfg.Anonymous,
		Health:    map[string]HealthChecker{"database": database},
	})

	return &testServer{
		engine:    router.Engine(),
		database:  database,
		bookmarks: bookmarks,
		posts:     posts,
	}
}

func sessionCookie(t *testing.T, userID, role string) *http.Cookie {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"jti":  "sess-" + userID,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSessionSecret))
	require.NoError(t, err)
	return &http.Cookie{Name: "host_session", Value: token}
}

func (s *testServer) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil), cookies...)
}

func (s *testServer) ajax(form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/ajax", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req, cookies...)
}

func (s *testServer) nonce(t *testing.T, cookies ...*http.Cookie) string {
	t.Helper()
	w := s.get("/bookmarks/nonce", cookies...)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		AjaxURL string `json:"ajax_url"`
		Nonce   string `json:"nonce"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "/ajax", body.AjaxURL)
	return body.Nonce
}

func idString(p *models.Post) string {
	return strconv.FormatInt(p.ID, 10)
}

func anonCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "bookmarks" {
			return c
		}
	}
	return nil
}

func TestToggle_Anonymous(t *testing.T) {
	s := newTestServer(t)
	nonce := s.nonce(t)
	postID := idString(s.posts["hello"])

	w := s.ajax(url.Values{"action": {"toggle_bookmark"}, "post_id": {postID}, "nonce": {nonce}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "added", w.Body.String())

	cookie := anonCookie(w)
	require.NotNil(t, cookie)
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, 30*24*3600, cookie.MaxAge)

	w = s.get("/bookmarks/list", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<a href="https://example.com/hello/">Hello</a>`)

	w = s.ajax(url.Values{"action": {"toggle_bookmark"}, "post_id": {postID}, "nonce": {nonce}}, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "removed", w.Body.String())

	// Anonymous bookmarks never reach the store
	count, err := s.bookmarks.CountForPost(context.Background(), s.posts["hello"].ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestToggle_Authenticated(t *testing.T) {
	s := newTestServer(t)
	session := sessionCookie(t, "7", "subscriber")
	nonce := s.nonce(t, session)
	post := s.posts["hello"]

	w := s.ajax(url.Values{"action": {"toggle_bookmark"}, "post_id": {idString(post)}, "nonce": {nonce}}, session)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "added", w.Body.String())
	assert.Nil(t, anonCookie(w), "logged-in users get no anonymous cookie")

	exists, err := s.bookmarks.Exists(context.Background(), 7, post.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	w = s.get("/posts/"+idString(post)+"/bookmark-button", session)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Unbookmark")

	w = s.ajax(url.Values{"action": {"toggle_bookmark"}, "post_id": {idString(post)}, "nonce": {nonce}}, session)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "removed", w.Body.String())
}

func TestToggle_NonceRequired(t *testing.T) {
	s := newTestServer(t)
	session := sessionCookie(t, "7", "subscriber")
	otherNonce := s.nonce(t, sessionCookie(t, "8", "subscriber"))
	postID := idString(s.posts["hello"])

	for name, nonce := range map[string]string{
		"missing":       "",
		"garbage":       "abcdefghij",
		"other session": otherNonce,
	} {
		t.Run(name, func(t *testing.T) {
			w := s.ajax(url.Values{"action": {"toggle_bookmark"}, "post_id": {postID}, "nonce": {nonce}}, session)
			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Equal(t, "-1", w.Body.String())
		})
	}

	count, err := s.bookmarks.CountForPost(context.Background(), s.posts["hello"].ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestAjax_UnknownAction(t *testing.T) {
	s := newTestServer(t)

	w := s.ajax(url.Values{"action": {"delete_everything"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "0", w.Body.String())

	w = s.ajax(url.Values{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "0", w.Body.String())
}

func TestToggle_InvalidPostID(t *testing.T) {
	t.Run("rejected by default", func(t *testing.T) {
		s := newTestServer(t)
		nonce := s.nonce(t)

		for _, raw := range []string{"", "abc", "0", "-4", "12abc"} {
			w := s.ajax(url.Values{"action": {"toggle_bookmark"}, "post_id": {raw}, "nonce": {nonce}})
			assert.Equal(t, http.StatusBadRequest, w.Code, raw)
			assert.Nil(t, anonCookie(w))
		}
	})

	t.Run("coerced when rejection is off", func(t *testing.T) {
		s := newTestServer(t, func(c *config.Config) { c.Bookmarks.RejectInvalidPostID = false })
		session := sessionCookie(t, "7", "subscriber")
		nonce := s.nonce(t, session)

		w := s.ajax(url.Values{"action": {"toggle_bookmark"}, "post_id": {"abc"}, "nonce": {nonce}}, session)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "added", w.Body.String())

		exists, err := s.bookmarks.Exists(context.Background(), 7, 0)
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestRefreshBookmarksList(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	for _, slug := range []string{"hello", "draft", "second"} {
		_, err := s.bookmarks.Add(ctx, 7, s.posts[slug].ID)
		require.NoError(t, err)
	}
	_, err := s.bookmarks.Add(ctx, 7, 9999)
	require.NoError(t, err)

	// Read-only, so no nonce is needed
	w := s.ajax(url.Values{"action": {"refresh_bookmarks_list"}}, sessionCookie(t, "7", "subscriber"))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, `<ul class="bookmark-post-list">`))
	assert.Contains(t, body, ">Hello</a>")
	assert.Contains(t, body, ">Second</a>")
	assert.NotContains(t, body, "Draft")
	assert.NotContains(t, body, "refresh-bookmark-post-button")

	w = s.ajax(url.Values{"action": {"refresh_bookmarks_list"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `<p class="no-bookmark-post-message">You have no bookmarks.</p>`, w.Body.String())
}

func TestListContainer(t *testing.T) {
	s := newTestServer(t)
	_, err := s.bookmarks.Add(context.Background(), 7, s.posts["hello"].ID)
	require.NoError(t, err)

	w := s.get("/bookmarks/list", sessionCookie(t, "7", "subscriber"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<div id="bookmark-post-list-container">`)
	assert.Contains(t, w.Body.String(), "Refresh Bookmarks")

	w = s.get("/bookmarks/list")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "You have no bookmarks.")
	assert.NotContains(t, w.Body.String(), "Refresh Bookmarks")
}

func TestRefreshBookmarkCount(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	post := s.posts["hello"]
	for _, user := range []int64{1, 2, 3} {
		_, err := s.bookmarks.Add(ctx, user, post.ID)
		require.NoError(t, err)
	}

	admin := sessionCookie(t, "1", "administrator")
	w := s.ajax(url.Values{
		"action":  {"refresh_bookmark_count"},
		"post_id": {idString(post)},
		"nonce":   {s.nonce(t, admin)},
	}, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3", w.Body.String())

	subscriber := sessionCookie(t, "2", "subscriber")
	w = s.ajax(url.Values{
		"action":  {"refresh_bookmark_count"},
		"post_id": {idString(post)},
		"nonce":   {s.nonce(t, subscriber)},
	}, subscriber)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.ajax(url.Values{"action": {"refresh_bookmark_count"}, "post_id": {idString(post)}}, admin)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "-1", w.Body.String())
}

func TestMetaBox(t *testing.T) {
	s := newTestServer(t)
	post := s.posts["hello"]
	_, err := s.bookmarks.Add(context.Background(), 5, post.ID)
	require.NoError(t, err)
	admin := sessionCookie(t, "1", "administrator")

	w := s.get("/admin/posts/"+idString(post)+"/bookmark-count", admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<span id="bookmark-count">1</span>`)
	assert.Contains(t, w.Body.String(), "Refresh Count")

	w = s.get("/admin/posts/"+idString(s.posts["list"])+"/bookmark-count", admin)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.get("/admin/posts/"+idString(post)+"/bookmark-count", sessionCookie(t, "5", "subscriber"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestButton(t *testing.T) {
	s := newTestServer(t)

	w := s.get("/posts/" + idString(s.posts["hello"]) + "/bookmark-button")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `data-post_id="`+idString(s.posts["hello"])+`">Bookmark</button>`)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	w = s.get("/posts/" + idString(s.posts["list"]) + "/bookmark-button")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = s.get("/posts/424242/bookmark-button")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.get("/posts/abc/bookmark-button")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndRequestID(t *testing.T) {
	s := newTestServer(t)

	w := s.get("/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"OK"`)

	req := httptest.NewRequest(http.MethodGet, "/bookmarks/nonce", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	w = s.do(req)
	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))

	w = s.get("/bookmarks/nonce")
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	require.NoError(t, s.database.Close())
	w = s.get("/.well-known/healthcheck.json")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		body   string
	}{
		{err: bookmark.ErrInvalidNonce, status: http.StatusForbidden, body: "-1"},
		{err: bookmark.ErrInvalidPostID, status: http.StatusBadRequest},
		{err: bookmark.ErrForbidden, status: http.StatusForbidden},
		{err: fmt.Errorf("add bookmark: %w", bookmark.ErrStorage), status: http.StatusServiceUnavailable},
		{err: context.DeadlineExceeded, status: http.StatusInternalServerError},
		{err: errUnknownAction, status: http.StatusBadRequest, body: "0"},
	}
	for _, tt := range tests {
		status, body := statusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		if tt.body != "" {
			assert.Equal(t, tt.body, body)
		}
	}
}
