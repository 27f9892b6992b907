package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-school-library/internal/handler"
	"go-school-library/internal/lifecycle"
	"go-school-library/internal/middleware"
	"go-school-library/internal/model"
	"go-school-library/internal/repository"
	"go-school-library/internal/service"
	"go-school-library/internal/testutil"
	"go-school-library/internal/ws"
	"go-school-library/pkg/clock"
	"go-school-library/pkg/jwt"
)

const (
	adminEmail    = "admin@sekolah.sch.id"
	adminPassword = "admin123"
)

type server struct {
	app   *fiber.App
	db    *gorm.DB
	users repository.UserRepository
	roles repository.RoleRepository
}

// newServer wires the full API on an in-memory database. The clock is pinned to
// Monday 2025-01-06.
func newServer(t *testing.T) *server {
	t.Helper()

	db := testutil.NewDB(t)
	log := zap.NewNop()
	clk := clock.Fixed{At: time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)}
	tokens := jwt.NewManager("test-secret", time.Hour, "perpustakaan")
	hub := ws.NewHub(log)

	userRepo := repository.NewUserRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	bookRepo := repository.NewBookRepo(db)
	borrowingRepo := repository.NewBorrowingRepo(db)
	notificationRepo := repository.NewNotificationRepo(db)

	require.NoError(t, service.SeedDefaults(privilegeRepo, roleRepo, userRepo, adminEmail, adminPassword, log))

	notifications := service.NewNotificationService(notificationRepo, userRepo, hub, log)
	borrowings := service.NewBorrowingService(
		borrowingRepo, bookRepo, userRepo, notifications, db,
		service.BorrowingConfig{Policy: lifecycle.DefaultPolicy(), MaxActiveLoans: 3},
		clk, log,
	)
	catalog := service.NewCatalogService(bookRepo, categoryRepo, borrowingRepo, db, hub, log)

	app := fiber.New(fiber.Config{ErrorHandler: handler.NewErrorHandler(log)})
	handler.SetupRoutes(app, handler.Handlers{
		Auth:         handler.NewAuthHandler(service.NewAuthService(userRepo, tokens)),
		User:         handler.NewUserHandler(service.NewUserService(userRepo, privilegeRepo, roleRepo)),
		Role:         handler.NewRoleHandler(roleRepo, privilegeRepo),
		Category:     handler.NewCategoryHandler(service.NewCategoryService(categoryRepo, bookRepo)),
		Book:         handler.NewBookHandler(catalog),
		Borrowing:    handler.NewBorrowingHandler(borrowings, clk),
		Notification: handler.NewNotificationHandler(notifications),
		Report:       handler.NewReportHandler(service.NewReportService(repository.NewReportRepo(db), borrowingRepo, clk), clk),
		WS:           handler.NewWSHandler(hub),
	}, middleware.RequireAuth(userRepo, tokens))

	return &server{app: app, db: db, users: userRepo, roles: roleRepo}
}

// student creates an active STUDENT account and returns its token.
func (s *server) student(t *testing.T, name string) string {
	t.Helper()
	role, err := s.roles.FindByCode(model.RoleStudent)
	require.NoError(t, err)

	email := uuid.NewString()[:8] + "@siswa.sch.id"
	user := &model.User{
		Email:          email,
		FullName:       name,
		IdentityNumber: "NIS-" + uuid.NewString()[:6],
		ClassName:      "X IPS 1",
		RoleID:         &role.ID,
		IsActive:       true,
		Privileges:     role.Privileges,
	}
	require.NoError(t, user.SetPassword("rahasia"))
	require.NoError(t, s.users.Create(user))
	return s.login(t, email, "rahasia")
}

func (s *server) login(t *testing.T, email, password string) string {
	t.Helper()
	res := s.do(t, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{"email": email, "password": password})
	require.Equal(t, http.StatusOK, res.status, string(res.body))
	return res.json(t)["token"].(string)
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r response) json(t *testing.T) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(r.body, &m), string(r.body))
	return m
}

func (r response) data(t *testing.T) map[string]interface{} {
	t.Helper()
	d, ok := r.json(t)["data"].(map[string]interface{})
	require.True(t, ok, string(r.body))
	return d
}

func (s *server) do(t *testing.T, method, path, token string, body interface{}) response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return response{status: res.StatusCode, header: res.Header, body: raw}
}
