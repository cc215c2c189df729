package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"estate-backend/internal/config"
	"estate-backend/internal/infrastructure/database"
	"estate-backend/internal/infrastructure/events"
	"estate-backend/internal/infrastructure/events/eventstest"
	"estate-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClient struct {
	t      *testing.T
	app    *fiber.App
	cookie string
}

func newTestApp(t *testing.T) (*testClient, *redis.Client, *eventstest.Recorder) {
	db, err := database.OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		(&Resources{DB: db, Rdb: rdb}).Close()
		mr.Close()
	})

	rec := &eventstest.Recorder{}
	app := NewApp(Deps{
		DB:             db,
		Rdb:            rdb,
		Events:         rec,
		Session:        middleware.SessionConfig{Secret: "router-test-secret"},
		Cors:           middleware.CORSConfig{AllowedSuffix: "estate.example"},
		HealthAdminKey: "admin-key",
	})
	return &testClient{t: t, app: app}, rdb, rec
}

func (tc *testClient) do(method, path string, body interface{}) (int, map[string]interface{}) {
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(tc.t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if tc.cookie != "" {
		req.Header.Set("Cookie", tc.cookie)
	}
	resp, err := tc.app.Test(req, -1)
	require.NoError(tc.t, err)
	for _, v := range resp.Header.Values("Set-Cookie") {
		if strings.HasPrefix(v, middleware.SessionCookieName+"=") {
			tc.cookie = strings.SplitN(v, ";", 2)[0]
		}
	}
	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func data(out map[string]interface{}) map[string]interface{} {
	d, _ := out["data"].(map[string]interface{})
	return d
}

func TestNewApp_UnknownRoute(t *testing.T) {
	tc, _, _ := newTestApp(t)
	status, out := tc.do("GET", "/api/v1/nowhere", nil)
	assert.Equal(t, 404, status)
	assert.Equal(t, "Route not found", out["error"].(map[string]interface{})["message"])
}

func TestNewApp_ProtectedRoutesNeedSession(t *testing.T) {
	tc, _, _ := newTestApp(t)
	for _, path := range []string{"/api/v1/favorites", "/api/v1/notifications", "/api/v1/users/me/properties"} {
		status, _ := tc.do("GET", path, nil)
		assert.Equal(t, 401, status, path)
	}
	status, _ := tc.do("POST", "/api/v1/properties", map[string]string{"title": "x"})
	assert.Equal(t, 401, status)
}

func TestNewApp_ListingLifecycle(t *testing.T) {
	owner, rdb, rec := newTestApp(t)
	status, _ := owner.do("POST", "/api/v1/auth/register", map[string]string{
		"email": "owner@example.com", "password": "0wner!pass", "fullname": "Olive Owner",
	})
	require.Equal(t, 201, status)

	status, out := owner.do("POST", "/api/v1/properties", map[string]interface{}{
		"title":    "Lake house",
		"price":    500000,
		"type":     "sale",
		"location": map[string]string{"city": "Madison"},
	})
	require.Equal(t, 201, status)
	id := data(out)["id"].(string)

	// A second user on the same app favorites the listing.
	fan := &testClient{t: t, app: owner.app}
	status, _ = fan.do("POST", "/api/v1/auth/register", map[string]string{
		"email": "fan@example.com", "password": "f4n!pass", "fullname": "Fran Fan",
	})
	require.Equal(t, 201, status)
	status, out = fan.do("GET", "/api/v1/properties/"+id, nil)
	require.Equal(t, 200, status)
	assert.Equal(t, float64(0), data(out)["favoritesCount"])
	status, _ = fan.do("POST", "/api/v1/favorites", map[string]string{"propertyId": id})
	require.Equal(t, 201, status)
	status, out = fan.do("GET", "/api/v1/properties/"+id, nil)
	require.Equal(t, 200, status)
	assert.Equal(t, float64(1), data(out)["favoritesCount"])
	status, _ = fan.do("POST", "/api/v1/favorites", map[string]string{"propertyId": id})
	assert.Equal(t, 409, status)

	status, out = fan.do("GET", "/api/v1/properties?q=lake", nil)
	require.Equal(t, 200, status)
	assert.Equal(t, float64(1), data(out)["total"])
	status, out = fan.do("GET", "/api/v1/sale/properties?city=madison", nil)
	require.Equal(t, 200, status)
	assert.Equal(t, float64(1), data(out)["total"])

	status, _ = fan.do("PUT", "/api/v1/properties/"+id, map[string]interface{}{"price": 1})
	assert.Equal(t, 404, status)

	status, _ = owner.do("PUT", "/api/v1/properties/"+id, map[string]interface{}{"price": 450000})
	require.Equal(t, 200, status)
	status, _ = owner.do("PATCH", "/api/v1/properties/"+id+"/status", map[string]string{"status": "pending"})
	require.Equal(t, 200, status)

	status, out = fan.do("GET", "/api/v1/notifications", nil)
	require.Equal(t, 200, status)
	assert.Equal(t, float64(2), data(out)["unreadCount"])
	status, out = fan.do("PATCH", "/api/v1/notifications/read-all", nil)
	require.Equal(t, 200, status)
	assert.Equal(t, float64(2), data(out)["updated"])

	status, out = owner.do("GET", "/api/v1/users/me/properties", nil)
	require.Equal(t, 200, status)
	assert.Equal(t, float64(1), data(out)["total"])

	status, _ = owner.do("DELETE", "/api/v1/properties/"+id, nil)
	require.Equal(t, 200, status)
	status, out = fan.do("GET", "/api/v1/favorites/ids", nil)
	require.Equal(t, 200, status)
	assert.Empty(t, data(out)["ids"])

	assert.Contains(t, rec.Subjects(), events.SubjectListingCreated)
	assert.Contains(t, rec.Subjects(), events.SubjectListingDeleted)

	n, err := rdb.Get(context.Background(), middleware.KeyReqTotal).Int()
	require.NoError(t, err)
	assert.Greater(t, n, 10)
}

func TestNewApp_HealthEndpoints(t *testing.T) {
	tc, _, _ := newTestApp(t)
	status, out := tc.do("GET", "/health/json", nil)
	assert.Equal(t, 200, status)
	assert.Equal(t, "ok", out["status"])

	status, _ = tc.do("GET", "/reset?key=wrong", nil)
	assert.Equal(t, 403, status)
	status, _ = tc.do("GET", "/reset?key=admin-key", nil)
	assert.Equal(t, 200, status)
}

func TestCreateApp_RequiresURLs(t *testing.T) {
	_, _, err := CreateApp(&config.Config{RedisURL: "redis://localhost:6379"})
	assert.EqualError(t, err, "DATABASE_URL is required")
	_, _, err = CreateApp(&config.Config{DatabaseURL: "sqlite::memory:"})
	assert.EqualError(t, err, "REDIS_URL is required")
}
