package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	authsvc "estate-backend/internal/application/auth"
	"estate-backend/internal/domain"
	"estate-backend/internal/infrastructure/database"
	"estate-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUserFinder for tests: returns configured user or error.
type fakeUserFinder struct {
	user *domain.User
	err  error
}

func (f *fakeUserFinder) FindByEmailAndPassword(_ context.Context, email, password string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.user != nil && f.user.Email == email && password == "password123" {
		return f.user, nil
	}
	if f.user != nil && f.user.Email == email {
		return nil, authsvc.ErrIncorrectPassword
	}
	return nil, authsvc.ErrInvalidEmail
}

func setupAuthHandlers(t *testing.T, finder authsvc.UserFinder) (*Handlers, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	h := &Handlers{
		UserFinder: finder,
		Rdb:        rdb,
		Config: middleware.SessionConfig{
			AllowCrossSiteDev: false,
			IsProduction:      false,
		},
	}
	return h, rdb
}

// withUsers backs h with a real user store on in-memory sqlite.
func withUsers(t *testing.T, h *Handlers) {
	db, err := database.OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	svc := &authsvc.Service{DB: db}
	h.Users = svc
	h.UserFinder = svc
}

func postJSON(path string, body interface{}) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func sessionCookie(t *testing.T, resp *http.Response) string {
	for _, v := range resp.Header.Values("Set-Cookie") {
		if strings.HasPrefix(v, middleware.SessionCookieName+"=") {
			return strings.SplitN(v, ";", 2)[0]
		}
	}
	t.Fatalf("no %s cookie set", middleware.SessionCookieName)
	return ""
}

func TestLogin_EmptyBody(t *testing.T) {
	h, _ := setupAuthHandlers(t, &fakeUserFinder{user: &domain.User{}})
	app := fiber.New()
	app.Post("/login", h.Login)

	req := httptest.NewRequest("POST", "/login", nil)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLogin_MissingCredentials(t *testing.T) {
	h, _ := setupAuthHandlers(t, &fakeUserFinder{})
	app := fiber.New()
	app.Post("/login", h.Login)

	resp, err := app.Test(postJSON("/login", map[string]string{"email": "a@b.com"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLogin_InvalidEmail(t *testing.T) {
	h, _ := setupAuthHandlers(t, &fakeUserFinder{})
	app := fiber.New()
	app.Post("/login", h.Login)

	resp, err := app.Test(postJSON("/login", map[string]string{"email": "nonexistent@example.com", "password": "any"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_IncorrectPassword(t *testing.T) {
	h, _ := setupAuthHandlers(t, &fakeUserFinder{user: &domain.User{UserID: uuid.New(), Email: "test@example.com", Fullname: "Test User"}})
	app := fiber.New()
	app.Post("/login", h.Login)

	resp, err := app.Test(postJSON("/login", map[string]string{"email": "test@example.com", "password": "wrong"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_Success(t *testing.T) {
	h, rdb := setupAuthHandlers(t, &fakeUserFinder{user: &domain.User{UserID: uuid.New(), Email: "test@example.com", Fullname: "Test User"}})
	app := fiber.New()
	app.Use(middleware.Session(rdb, h.Config))
	app.Post("/login", h.Login)

	resp, err := app.Test(postJSON("/login", map[string]string{"email": "test@example.com", "password": "password123"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	out := decode(t, resp)
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, "Login successful", out["message"])
	data, _ := out["data"].(map[string]interface{})
	require.NotNil(t, data)
	user, _ := data["user"].(map[string]interface{})
	require.NotNil(t, user)
	assert.Equal(t, "test@example.com", user["email"])
	assert.Equal(t, "Test User", user["fullname"])

	assert.Contains(t, sessionCookie(t, resp), "estate.sid=s:")

	keys, err := rdb.Keys(context.Background(), "user_sessions:*").Result()
	require.NoError(t, err)
	assert.NotEmpty(t, keys, "expected user_sessions:* key in Redis")
	keys, err = rdb.Keys(context.Background(), middleware.SessionRedisPrefix+"*").Result()
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestLogin_NilUserFinder(t *testing.T) {
	h, _ := setupAuthHandlers(t, nil)
	app := fiber.New()
	app.Post("/login", h.Login)

	resp, err := app.Test(postJSON("/login", map[string]string{"email": "a@b.com", "password": "pass"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestRegister_CreatesUserAndSession(t *testing.T) {
	h, rdb := setupAuthHandlers(t, nil)
	withUsers(t, h)
	app := fiber.New()
	app.Use(middleware.Session(rdb, h.Config))
	app.Post("/register", h.Register)
	app.Post("/login", h.Login)

	body := map[string]string{"email": "Jane@Example.com", "password": "s3cret!pass", "fullname": "Jane O'Neil"}
	resp, err := app.Test(postJSON("/register", body))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	out := decode(t, resp)
	user := out["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "jane@example.com", user["email"])
	assert.NotEmpty(t, sessionCookie(t, resp))

	resp, err = app.Test(postJSON("/register", body))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, err = app.Test(postJSON("/login", map[string]string{"email": "jane@example.com", "password": "s3cret!pass"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRegister_InvalidInput(t *testing.T) {
	h, _ := setupAuthHandlers(t, nil)
	withUsers(t, h)
	app := fiber.New()
	app.Post("/register", h.Register)

	resp, err := app.Test(postJSON("/register", map[string]string{"email": "not-an-email", "password": "s3cret!pass", "fullname": "Jane"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	out := decode(t, resp)
	assert.Equal(t, "Invalid email format", out["error"].(map[string]interface{})["message"])
}

func TestMe_NoSession(t *testing.T) {
	h, _ := setupAuthHandlers(t, &fakeUserFinder{})
	app := fiber.New()
	app.Get("/me", h.Me)

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestMe_WithSessionUserInLocals(t *testing.T) {
	h, _ := setupAuthHandlers(t, &fakeUserFinder{})
	app := fiber.New()
	app.Get("/me", func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id":  "550e8400-e29b-41d4-a716-446655440000",
			"fullname": "Test",
			"email":    "test@example.com",
		})
		return h.Me(c)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	out := decode(t, resp)
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, "Authenticated", out["message"])
	data, _ := out["data"].(map[string]interface{})
	user, _ := data["user"].(map[string]interface{})
	assert.Equal(t, "test@example.com", user["email"])
}

func TestLogout_NoSession(t *testing.T) {
	h, _ := setupAuthHandlers(t, &fakeUserFinder{})
	app := fiber.New()
	app.Delete("/logout", h.Logout)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/logout", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Values("Set-Cookie"))
}

func TestLoginMeLogout_RoundTrip(t *testing.T) {
	uid := uuid.New()
	h, rdb := setupAuthHandlers(t, &fakeUserFinder{user: &domain.User{UserID: uid, Email: "test@example.com", Fullname: "Test User"}})
	h.Config.Secret = "round-trip-secret"
	app := fiber.New()
	app.Use(middleware.Session(rdb, h.Config))
	app.Post("/login", h.Login)
	app.Get("/me", h.Me)
	app.Delete("/logout", h.Logout)

	resp, err := app.Test(postJSON("/login", map[string]string{"email": "test@example.com", "password": "password123"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	cookie := sessionCookie(t, resp)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Cookie", cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("DELETE", "/logout", nil)
	req.Header.Set("Cookie", cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	ctx := context.Background()
	members, err := rdb.SMembers(ctx, "user_sessions:"+uid.String()).Result()
	require.NoError(t, err)
	assert.Empty(t, members)
	keys, err := rdb.Keys(ctx, middleware.SessionRedisPrefix+"*").Result()
	require.NoError(t, err)
	assert.Empty(t, keys)

	req = httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Cookie", cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
