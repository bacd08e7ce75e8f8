package internal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tutorial-blog/pkg/config"
	"tutorial-blog/pkg/database"
	"tutorial-blog/pkg/jwt"
	"tutorial-blog/pkg/logger"
	"tutorial-blog/pkg/middleware"
	"tutorial-blog/services/blog/internal/repo/persistent"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	redis  *mr.Miniredis
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "blog.db"))
	require.NoError(t, err)
	require.NoError(t, persistent.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &config.Config{
		RateLimitPerMinute: rateLimit,
		CORSAllowOrigins:   []string{"http://localhost:3000"},
	}

	router, err := NewRouter(Deps{
		Config:      cfg,
		Logger:      logger.New(),
		DB:          db,
		RedisClient: client,
		JWTService:  jwt.NewServiceWithTTL("test-secret-key", time.Hour),
	})
	require.NoError(t, err)

	return &testServer{router: router, db: db, redis: m}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(t *testing.T, username string) string {
	t.Helper()
	body := `{"username":"` + username + `","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := s.do(req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var response struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotEmpty(t, response.Token)
	return response.Token
}

func (s *testServer) submitPost(token string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/posts/add/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	}
	return s.do(req)
}

func (s *testServer) postCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, s.db.Table("posts").Count(&count).Error)
	return count
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 100)
	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCreateThenView(t *testing.T) {
	s := newTestServer(t, 100)
	token := s.register(t, "alice")

	w := s.submitPost(token, url.Values{"title": {"My first post"}, "text": {"Hello, blog!"}})
	require.Equal(t, http.StatusFound, w.Code)
	location := w.Header().Get("Location")
	assert.Regexp(t, `^/posts/\d+/$`, location)

	w = s.do(httptest.NewRequest(http.MethodGet, location, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "My first post")
	assert.Contains(t, w.Body.String(), "Hello, blog!")
	assert.Contains(t, w.Body.String(), "alice")
}

func TestTitleTooLongIsRejected(t *testing.T) {
	s := newTestServer(t, 100)
	token := s.register(t, "alice")

	w := s.submitPost(token, url.Values{"title": {strings.Repeat("t", 256)}, "text": {"body"}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ensure this value has at most 255 characters (it has 256).")
	assert.Equal(t, int64(0), s.postCount(t))
}

func TestUnknownPostIsNotFound(t *testing.T) {
	s := newTestServer(t, 100)

	for _, path := range []string{"/posts/999/", "/posts/abc/", "/posts/0/"} {
		w := s.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/posts/999", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnonymousSubmitIsUnauthorized(t *testing.T) {
	s := newTestServer(t, 100)

	for _, values := range []url.Values{
		{"title": {"fine"}, "text": {"fine"}},
		{"title": {strings.Repeat("t", 256)}},
		{},
	} {
		w := s.submitPost("", values)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "<h1>You are not authorized for adding post</h1>", w.Body.String())
	}

	w := s.submitPost("not-a-token", url.Values{"title": {"x"}, "text": {"y"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, int64(0), s.postCount(t))
}

func TestListReturnsEveryCreatedPost(t *testing.T) {
	s := newTestServer(t, 100)
	token := s.register(t, "alice")

	const n = 4
	locations := make([]string, 0, n)
	for i := 0; i < n; i++ {
		w := s.submitPost(token, url.Values{"title": {"post"}, "text": {"body"}})
		require.Equal(t, http.StatusFound, w.Code)
		locations = append(locations, w.Header().Get("Location"))
	}

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Posts []struct {
			ID uint `json:"id"`
		} `json:"posts"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, n, list.Count)
	assert.Len(t, list.Posts, n)

	for _, location := range locations {
		w := s.do(httptest.NewRequest(http.MethodGet, location, nil))
		assert.Equal(t, http.StatusOK, w.Code, location)
	}

	w = s.do(httptest.NewRequest(http.MethodGet, "/posts/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthorComesFromSession(t *testing.T) {
	s := newTestServer(t, 100)
	s.register(t, "mallory")
	aliceToken := s.register(t, "alice")

	var mallory struct{ ID string }
	require.NoError(t, s.db.Table("users").Select("id").Where("username = ?", "mallory").Scan(&mallory).Error)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts",
		strings.NewReader(`{"title":"t","text":"x","author":"`+mallory.ID+`","author_id":"`+mallory.ID+`"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+aliceToken)
	w := s.do(req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		AuthorID string `json:"author_id"`
		Author   struct {
			Username string `json:"username"`
		} `json:"author"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEqual(t, mallory.ID, created.AuthorID)
	assert.Equal(t, "alice", created.Author.Username)
}

func TestUnreadableBodyRerendersForm(t *testing.T) {
	s := newTestServer(t, 100)
	token := s.register(t, "alice")

	req := httptest.NewRequest(http.MethodPost, "/posts/add/", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	w := s.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "This field is required.")
	assert.Equal(t, int64(0), s.postCount(t))
}

func TestTokenForMissingUserIsUnauthorized(t *testing.T) {
	s := newTestServer(t, 100)

	token, err := jwt.NewServiceWithTTL("test-secret-key", time.Hour).
		GenerateToken("00000000-0000-0000-0000-000000000000", "ghost")
	require.NoError(t, err)

	w := s.submitPost(token, url.Values{"title": {"a"}, "text": {"b"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "<h1>You are not authorized for adding post</h1>", w.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts", strings.NewReader(`{"title":"a","text":"b"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w = s.do(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, int64(0), s.postCount(t))
}

func TestAPIAnonymousCreateIsUnauthorized(t *testing.T) {
	s := newTestServer(t, 100)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts", strings.NewReader(`{"title":""}`))
	req.Header.Set("Content-Type", "application/json")
	w := s.do(req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, int64(0), s.postCount(t))
}

func TestLoginFormAndLogout(t *testing.T) {
	s := newTestServer(t, 100)
	s.register(t, "alice")

	form := url.Values{"username": {"alice"}, "password": {"wrong-password"}}
	req := httptest.NewRequest(http.MethodPost, "/accounts/login/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := s.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Please enter a correct username and password.")

	form.Set("password", "password123")
	req = httptest.NewRequest(http.MethodPost, "/accounts/login/?next=/posts/add/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = s.do(req)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/posts/add/", w.Header().Get("Location"))

	var session *http.Cookie
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == middleware.SessionCookieName {
			session = cookie
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	w = s.submitPost(session.Value, url.Values{"title": {"t"}, "text": {"x"}})
	require.Equal(t, http.StatusFound, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/accounts/logout/", nil)
	req.AddCookie(session)
	w = s.do(req)
	require.Equal(t, http.StatusFound, w.Code)

	// the old token is revoked even if a client keeps sending it
	w = s.submitPost(session.Value, url.Values{"title": {"t"}, "text": {"x"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, int64(1), s.postCount(t))
}

func TestAPIMe(t *testing.T) {
	s := newTestServer(t, 100)
	token := s.register(t, "alice")

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = s.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestRegisterDuplicateIsConflict(t *testing.T) {
	s := newTestServer(t, 100)
	s.register(t, "alice")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/register",
		strings.NewReader(`{"username":"alice","password":"password123"}`))
	req.Header.Set("Content-Type", "application/json")
	w := s.do(req)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAPIRateLimit(t *testing.T) {
	s := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// HTML pages are not limited
	for i := 0; i < 5; i++ {
		w := s.do(httptest.NewRequest(http.MethodGet, "/posts/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestLoginFormRateLimitRendersPage(t *testing.T) {
	s := newTestServer(t, 2)

	form := url.Values{"username": {"alice"}, "password": {"wrong-password"}}
	login := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/accounts/login/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return s.do(req)
	}

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, login().Code)
	}
	w := login()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Too many login attempts.")
	assert.Contains(t, w.Body.String(), `value="alice"`)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, 100)

	s.submitPost("", url.Values{})

	w := s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "blog_unauthorized_post_attempts_total")
}

func TestUnknownRoutes(t *testing.T) {
	s := newTestServer(t, 100)

	w := s.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Not Found")

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, w.Body.String())
}
