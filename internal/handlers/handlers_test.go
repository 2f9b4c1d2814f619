package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/testdesk/internal/access"
	"github.com/huangang/testdesk/internal/config"
	"github.com/huangang/testdesk/internal/middleware"
	"github.com/huangang/testdesk/internal/models"
	"github.com/huangang/testdesk/internal/search"
	"github.com/huangang/testdesk/internal/services"
	"github.com/huangang/testdesk/internal/storage"
	"github.com/huangang/testdesk/internal/testutil"
	"github.com/huangang/testdesk/internal/utils"
	"github.com/huangang/testdesk/internal/validation"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var registerOnce sync.Once

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("test-secret-for-handlers")
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type listPage struct {
	Items []struct {
		ID        uint   `json:"id"`
		Title     string `json:"title"`
		DisplayID string `json:"display_id"`
	} `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Pages    int   `json:"pages"`
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	registerOnce.Do(func() {
		require.NoError(t, validation.RegisterGin())
	})

	db := testutil.NewDB(t)
	store := storage.NewLocalStoreFs(afero.NewMemMapFs())
	auth := services.NewAuthService(db, &config.JWTConfig{ExpireHour: 1, RefreshExpireHour: 24}, nil)

	projects := NewProjectHandler(services.NewProjectService(db))
	members := NewProjectMemberHandler(services.NewMemberService(db, services.NewSyncQueue()))
	documents := NewDocumentHandler(services.NewDocumentService(db, store, 1))
	searchHandler := NewSearchHandler(services.NewQuickSearchService(db))
	authHandler := NewAuthHandler(auth, true)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)

	protected := api.Group("", middleware.AuthRequired())
	protected.GET("/auth/me", authHandler.GetCurrentUser)
	protected.GET("/projects", projects.List)
	protected.GET("/projects/:id", projects.GetByID)
	protected.POST("/projects", middleware.RolesRequired(access.RoleAdmin, access.RoleClient), projects.Create)
	protected.POST("/projects/:id/members", members.Add)
	protected.POST("/projects/:id/membership/verify", members.Verify)
	protected.GET("/projects/:id/documents", documents.List)
	protected.POST("/projects/:id/documents", documents.Upload)
	protected.GET("/documents/:id/download", documents.Download)
	protected.GET("/search", searchHandler.Search)

	return &testServer{router: r, db: db}
}

func (s *testServer) do(t *testing.T, method, path string, user *models.User, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if user != nil {
		token, err := utils.GenerateToken(user.ID, user.Username, user.Role, 1)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) doJSON(t *testing.T, method, path string, user *models.User, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		require.NoError(t, err)
	}
	return s.do(t, method, path, user, body, "application/json")
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data), string(env.Data))
	}
	return env
}

func TestProjectList_ScopedByRole(t *testing.T) {
	s := newTestServer(t)
	owner := testutil.CreateUser(t, s.db, "owner", models.RoleClient)
	other := testutil.CreateUser(t, s.db, "other", models.RoleClient)
	tester := testutil.CreateUser(t, s.db, "tester", models.RoleTester)
	admin := testutil.CreateUser(t, s.db, "admin", models.RoleAdmin)

	base := time.Now().Add(-time.Hour)
	for i := 1; i <= 3; i++ {
		testutil.CreateProject(t, s.db, owner.ID, fmt.Sprintf("Owned %d", i), i, base.Add(time.Duration(i)*time.Minute))
	}
	foreign := testutil.CreateProject(t, s.db, other.ID, "Foreign", 4, base.Add(10*time.Minute))
	testutil.AddMember(t, s.db, foreign.ID, tester.ID, models.RoleTester, testutil.Bool(true))

	var page listPage
	w := s.doJSON(t, "GET", "/api/projects?page=1&page_size=2", owner, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &page)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, 2, page.Pages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Owned 3", page.Items[0].Title)
	assert.Equal(t, "PRJ-0003", page.Items[0].DisplayID)

	page = listPage{}
	w = s.doJSON(t, "GET", "/api/projects", tester, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Foreign", page.Items[0].Title)
	assert.Equal(t, search.DefaultPageSize, page.PageSize)

	page = listPage{}
	w = s.doJSON(t, "GET", "/api/projects?search=PRJ-0004", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, foreign.ID, page.Items[0].ID)

	w = s.doJSON(t, "GET", fmt.Sprintf("/api/projects/%d", foreign.ID), owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.doJSON(t, "GET", "/api/projects/abc", owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.doJSON(t, "GET", "/api/projects", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProjectCreate_RolesAndValidation(t *testing.T) {
	s := newTestServer(t)
	client := testutil.CreateUser(t, s.db, "client", models.RoleClient)
	tester := testutil.CreateUser(t, s.db, "tester", models.RoleTester)

	w := s.doJSON(t, "POST", "/api/projects", tester, map[string]string{"title": "Nope"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.doJSON(t, "POST", "/api/projects", client, map[string]string{"description": "no title"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var env struct {
		Errors []struct {
			Field string `json:"field"`
			Rule  string `json:"rule"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotEmpty(t, env.Errors)
	assert.Equal(t, "title", env.Errors[0].Field)
	assert.Equal(t, "required", env.Errors[0].Rule)

	var created models.Project
	w = s.doJSON(t, "POST", "/api/projects", client, map[string]string{"title": "Checkout"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decode(t, w, &created)
	assert.Equal(t, "PRJ-0001", created.DisplayID)
	assert.Equal(t, client.ID, created.UserID)
}

func TestMembership_InviteThenVerify(t *testing.T) {
	s := newTestServer(t)
	owner := testutil.CreateUser(t, s.db, "owner", models.RoleClient)
	tester := testutil.CreateUser(t, s.db, "tester", models.RoleTester)
	project := testutil.CreateProject(t, s.db, owner.ID, "Alpha", 1, time.Now())
	projectPath := fmt.Sprintf("/api/projects/%d", project.ID)

	w := s.doJSON(t, "POST", projectPath+"/members", owner, map[string]uint{"user_id": tester.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.doJSON(t, "POST", projectPath+"/members", owner, map[string]uint{"user_id": tester.ID})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Pending invitations keep the project hidden.
	w = s.doJSON(t, "GET", projectPath, tester, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.doJSON(t, "POST", projectPath+"/membership/verify", tester, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.doJSON(t, "GET", projectPath, tester, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func uploadBody(t *testing.T, fileName string, content []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("description", "signed off"))
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestDocument_UploadAndDownload(t *testing.T) {
	s := newTestServer(t)
	owner := testutil.CreateUser(t, s.db, "owner", models.RoleClient)
	stranger := testutil.CreateUser(t, s.db, "stranger", models.RoleClient)
	project := testutil.CreateProject(t, s.db, owner.ID, "Alpha", 1, time.Now())

	body, contentType := uploadBody(t, "plan.txt", []byte("hello testers"))
	w := s.do(t, "POST", fmt.Sprintf("/api/projects/%d/documents", project.ID), owner, body, contentType)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var doc models.Document
	decode(t, w, &doc)
	assert.Equal(t, "plan.txt", doc.Name)
	assert.Equal(t, "signed off", doc.Description)
	assert.EqualValues(t, 13, doc.Size)

	w = s.do(t, "GET", fmt.Sprintf("/api/documents/%d/download", doc.ID), owner, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello testers", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename=plan.txt`)

	w = s.do(t, "GET", fmt.Sprintf("/api/documents/%d/download", doc.ID), stranger, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	big, bigType := uploadBody(t, "huge.bin", bytes.Repeat([]byte("x"), 2<<20))
	w = s.do(t, "POST", fmt.Sprintf("/api/projects/%d/documents", project.ID), owner, big, bigType)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var page listPage
	w = s.do(t, "GET", fmt.Sprintf("/api/projects/%d/documents", project.ID), owner, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page)
	assert.EqualValues(t, 1, page.Total)
}

func TestQuickSearch_RequiresQuery(t *testing.T) {
	s := newTestServer(t)
	admin := testutil.CreateUser(t, s.db, "admin", models.RoleAdmin)
	testutil.CreateProject(t, s.db, admin.ID, "Payments", 1, time.Now())

	w := s.doJSON(t, "GET", "/api/search", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var result struct {
		Projects struct {
			Total int64 `json:"total"`
		} `json:"projects"`
	}
	w = s.doJSON(t, "GET", "/api/search?q=pay", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &result)
	assert.EqualValues(t, 1, result.Projects.Total)
}

func TestAuth_LoginSetsSessionCookie(t *testing.T) {
	s := newTestServer(t)
	hash, err := utils.HashPassword("secret-pass")
	require.NoError(t, err)
	user := testutil.CreateUser(t, s.db, "carla", models.RoleClient)
	require.NoError(t, s.db.Model(user).Update("password", hash).Error)

	w := s.doJSON(t, "POST", "/api/auth/login", nil, map[string]string{"username": "carla", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.doJSON(t, "POST", "/api/auth/login", nil, map[string]string{"username": "carla", "password": "secret-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	decode(t, w, &tokens)
	require.NotEmpty(t, tokens.RefreshToken)

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.True(t, session.Secure)
	assert.Equal(t, tokens.AccessToken, session.Value)

	req, _ := http.NewRequest("GET", "/api/auth/me", nil)
	req.AddCookie(session)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	w = s.doJSON(t, "POST", "/api/auth/refresh", nil, map[string]string{"refresh_token": tokens.RefreshToken})
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.doJSON(t, "POST", "/api/auth/refresh", nil, map[string]string{"refresh_token": tokens.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "refresh tokens are single use")
}

func TestFail_StatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("project %w", services.ErrNotFound), http.StatusNotFound},
		{services.ErrForbidden, http.StatusForbidden},
		{services.ErrUserDisabled, http.StatusForbidden},
		{services.ErrConflict, http.StatusConflict},
		{fmt.Errorf("%w: bad date", services.ErrInvalidInput), http.StatusBadRequest},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrInvalidToken, http.StatusUnauthorized},
		{fmt.Errorf("%w: dial tcp", search.ErrUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("create project: %w", errors.New("sql: database is closed")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request, _ = http.NewRequest("GET", "/", nil)
		fail(c, tt.err)
		if w.Code != tt.want {
			t.Errorf("fail(%v) status = %d, expected %d", tt.err, w.Code, tt.want)
		}
	}
}

func TestHealth(t *testing.T) {
	db := testutil.NewDB(t)
	h := NewHealthHandler(db, services.NewSyncQueue())

	r := gin.New()
	r.GET("/health", h.CheckHealth)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"queue_mode":"sync"`)

	sqlDB, _ := db.DB()
	require.NoError(t, sqlDB.Close())
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetrics(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner", models.RoleClient)
	tester := testutil.CreateUser(t, db, "tester", models.RoleTester)
	p := testutil.CreateProject(t, db, owner.ID, "Alpha", 1, time.Now())
	testutil.AddMember(t, db, p.ID, tester.ID, models.RoleTester, testutil.Bool(false))

	r := gin.New()
	r.GET("/metrics", NewMetricsHandler(db, services.NewSyncQueue()).Metrics)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "testdesk_projects_total 1\n")
	assert.Contains(t, body, "testdesk_users_active 2\n")
	assert.Contains(t, body, "testdesk_invitations_pending 1\n")
	assert.Contains(t, body, "testdesk_queue_async_enabled 0\n")
}

func TestDocumentList_DatabaseDownIs503(t *testing.T) {
	srv := newTestServer(t)
	owner := testutil.CreateUser(t, srv.db, "owner", models.RoleClient)
	p := testutil.CreateProject(t, srv.db, owner.ID, "Alpha", 1, time.Now())

	sqlDB, err := srv.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w := srv.do(t, http.MethodGet, fmt.Sprintf("/api/projects/%d/documents", p.ID), owner, nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
