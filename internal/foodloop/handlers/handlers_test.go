package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"foodloop/internal/foodloop/models"
	"foodloop/internal/foodloop/repository"
	"foodloop/internal/foodloop/service"
)

// testConfig leaves room for slow runs (-race) over fiber's 1s default.
var testConfig = fiber.TestConfig{Timeout: 10 * time.Second, FailOnTimeout: true}

type testServer struct {
	app      *fiber.App
	accounts *service.AccountService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	db, err := repository.OpenSQLite(filepath.Join(dir, "db", "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.New(db)
	require.NoError(t, repo.Init(context.Background()))

	log := zap.NewNop()
	sessions := service.NewSessionManager("handler-secret", time.Hour)
	accounts := service.NewAccountService(repo, sessions, log, service.WithBcryptCost(bcrypt.MinCost))
	storage := service.NewFileStorage(filepath.Join(dir, "uploads"))

	app := fiber.New()
	Register(app, Services{
		Repo:      repo,
		Sessions:  sessions,
		Accounts:  accounts,
		Donations: service.NewDonationService(repo, storage, log),
		Messages:  service.NewMessageService(repo, log),
		Chat:      service.NewChatService(nil, 10),
		Maps:      service.NewMapService(repo),
	}, log)

	return &testServer{app: app, accounts: accounts}
}

// login создаёт пользователя напрямую через сервис (включая admin) и возвращает токен.
func (s *testServer) login(t *testing.T, role models.Role, email string) string {
	t.Helper()
	_, err := s.accounts.CreateAccount(context.Background(), service.RegisterInput{
		Name: string(role), Email: email, Password: "password123", Role: role, Lat: 40.4, Lng: -3.7,
	})
	require.NoError(t, err)

	var out struct {
		Token string `json:"token"`
	}
	s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "password123"}, http.StatusOK, &out)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, wantStatus int, out any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	s.send(t, req, wantStatus, out)
}

func (s *testServer) send(t *testing.T, req *http.Request, wantStatus int, out any) {
	t.Helper()
	resp, err := s.app.Test(req, testConfig)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, wantStatus, resp.StatusCode, string(data))
	if out != nil {
		require.NoError(t, json.Unmarshal(data, out))
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/health/live", "/health/ready", "/health/startup"} {
		var out map[string]string
		s.do(t, http.MethodGet, path, "", nil, http.StatusOK, &out)
		assert.NotEmpty(t, out["status"])
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	var user models.User
	s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Dora", "email": "dora@example.com", "password": "password123", "role": "donor",
	}, http.StatusCreated, &user)
	assert.Equal(t, models.RoleDonor, user.Role)

	s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Dora", "email": "dora@example.com", "password": "password123", "role": "donor",
	}, http.StatusConflict, nil)
	s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Root", "email": "root@example.com", "password": "password123", "role": "admin",
	}, http.StatusForbidden, nil)

	var login struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "dora@example.com", "password": "password123"}, http.StatusOK, &login)
	assert.Equal(t, user.ID, login.User.ID)

	s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "dora@example.com", "password": "nope-nope"}, http.StatusUnauthorized, nil)

	var me models.User
	s.do(t, http.MethodGet, "/api/auth/me", login.Token, nil, http.StatusOK, &me)
	assert.Equal(t, "dora@example.com", me.Email)

	s.do(t, http.MethodGet, "/api/auth/me", "", nil, http.StatusUnauthorized, nil)
	s.do(t, http.MethodGet, "/api/auth/me", "forged", nil, http.StatusUnauthorized, nil)
}

func TestDonationLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	donor := s.login(t, models.RoleDonor, "donor@example.com")
	admin := s.login(t, models.RoleAdmin, "admin@example.com")
	receiver := s.login(t, models.RoleReceiver, "ngo@example.com")
	driver := s.login(t, models.RoleDriver, "driver@example.com")

	s.do(t, http.MethodPost, "/api/donations", driver, map[string]any{"title": "x", "quantity": 1}, http.StatusForbidden, nil)

	var d models.Donation
	s.do(t, http.MethodPost, "/api/donations", donor, map[string]any{
		"title": "Sandwiches", "quantity": 30, "unit": "pcs", "lat": 40.42, "lng": -3.70,
	}, http.StatusCreated, &d)
	require.Equal(t, models.StatusPending, d.Status)

	base := "/api/donations/" + d.ID
	s.do(t, http.MethodPost, base+"/approve", donor, nil, http.StatusForbidden, nil)
	s.do(t, http.MethodPost, base+"/deliver", admin, nil, http.StatusConflict, nil)
	s.do(t, http.MethodPost, base+"/approve", admin, nil, http.StatusOK, &d)
	s.do(t, http.MethodPost, base+"/claim", receiver, nil, http.StatusOK, &d)
	s.do(t, http.MethodPost, base+"/assign", driver, nil, http.StatusOK, &d)
	assert.Equal(t, models.StatusAssigned, d.Status)
	s.do(t, http.MethodPost, base+"/pickup", driver, nil, http.StatusOK, &d)
	s.do(t, http.MethodPost, base+"/deliver", driver, nil, http.StatusOK, &d)
	assert.Equal(t, models.StatusDelivered, d.Status)

	var list []models.Donation
	s.do(t, http.MethodGet, "/api/donations?status=delivered", admin, nil, http.StatusOK, &list)
	require.Len(t, list, 1)

	s.do(t, http.MethodGet, "/api/donations?status=eaten", admin, nil, http.StatusBadRequest, nil)
	s.do(t, http.MethodGet, "/api/donations/missing", admin, nil, http.StatusNotFound, nil)

	var stats models.Stats
	s.do(t, http.MethodGet, "/api/public/stats", "", nil, http.StatusOK, &stats)
	assert.Equal(t, 30, stats.MealsServed)
	assert.Equal(t, 1, stats.Donors)

	var pins []models.Location
	s.do(t, http.MethodGet, "/api/map/locations", donor, nil, http.StatusOK, &pins)
	s.do(t, http.MethodGet, "/api/map/locations?role=admin", donor, nil, http.StatusForbidden, nil)
}

func TestDonationPhoto(t *testing.T) {
	s := newTestServer(t)
	donor := s.login(t, models.RoleDonor, "donor@example.com")

	var d models.Donation
	s.do(t, http.MethodPost, "/api/donations", donor, map[string]any{"title": "Pie", "quantity": 2}, http.StatusCreated, &d)

	upload := func(filename string, content []byte, want int) {
		body := &bytes.Buffer{}
		w := multipart.NewWriter(body)
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/donations/"+d.ID+"/photo", body)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+donor)
		s.send(t, req, want, nil)
	}

	upload("pie.txt", []byte("text"), http.StatusBadRequest)
	upload("pie.jpg", []byte("jpeg-bytes"), http.StatusCreated)

	req := httptest.NewRequest(http.MethodGet, "/api/donations/"+d.ID+"/photo", nil)
	req.Header.Set("Authorization", "Bearer "+donor)
	resp, err := s.app.Test(req, testConfig)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
}

func TestContactAndAdminReply(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, models.RoleAdmin, "admin@example.com")
	donor := s.login(t, models.RoleDonor, "donor@example.com")

	var m models.ContactMessage
	s.do(t, http.MethodPost, "/api/contact", "", map[string]string{
		"name": "Eve", "email": "eve@example.com", "subject": "Hi", "message": "Can I help?",
	}, http.StatusCreated, &m)

	s.do(t, http.MethodGet, "/api/admin/messages", donor, nil, http.StatusForbidden, nil)
	s.do(t, http.MethodPost, "/api/admin/messages/"+m.ID+"/reply", admin, map[string]string{"body": "Yes!"}, http.StatusCreated, nil)
	s.do(t, http.MethodPost, "/api/admin/messages/nope/reply", admin, map[string]string{"body": "Yes!"}, http.StatusNotFound, nil)

	var items []models.ContactMessage
	s.do(t, http.MethodGet, "/api/admin/messages", admin, nil, http.StatusOK, &items)
	require.Len(t, items, 1)
	assert.True(t, items[0].Replied)
}

func TestChatAndRoute(t *testing.T) {
	s := newTestServer(t)

	var chat service.ChatResponse
	s.do(t, http.MethodPost, "/api/chat", "", map[string]any{"message": "/lang fr"}, http.StatusOK, &chat)
	assert.Equal(t, "fr", chat.Language)
	require.Len(t, chat.History, 2)

	s.do(t, http.MethodPost, "/api/chat", "", map[string]any{"message": ""}, http.StatusBadRequest, nil)

	var route models.Route
	s.do(t, http.MethodGet, "/api/map/route?from=40.41,-3.70&to=40.45,-3.69", "", nil, http.StatusOK, &route)
	assert.Greater(t, route.DistanceKm, 0.0)
	assert.NotEmpty(t, route.Points)

	s.do(t, http.MethodGet, "/api/map/route?from=oops&to=40.45,-3.69", "", nil, http.StatusBadRequest, nil)

	var cfgs []map[string]any
	s.do(t, http.MethodGet, "/api/map/roles", "", nil, http.StatusOK, &cfgs)
	assert.Len(t, cfgs, 4)
}
