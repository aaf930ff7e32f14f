package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shift-tracker-backend/internal/db"
	"shift-tracker-backend/internal/model"
	"shift-tracker-backend/internal/store"
)

func newSQLiteStore(t *testing.T) store.DBStore {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gormDB, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return store.NewGormStore(gormDB)
}

func setupSubscriptionRouter(s store.DBStore) *gin.Engine {
	r := gin.New()
	handler := NewHandler(nil, s, nil)
	r.GET("/api/subscriptions", handler.GetSubscription)
	r.PUT("/api/subscriptions", handler.PutSubscription)
	r.DELETE("/api/subscriptions", handler.DeleteSubscription)
	return r
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestPutSubscription_InvalidBody(t *testing.T) {
	router := setupSubscriptionRouter(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/subscriptions", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())
}

func TestSubscriptionLifecycle(t *testing.T) {
	s := newSQLiteStore(t)
	router := setupSubscriptionRouter(s)
	endpoint := "https://push.example.com/send/abc%3D%3D"

	get := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/subscriptions?endpoint="+endpoint, nil))
		return w
	}

	assert.Equal(t, http.StatusNotFound, get().Code)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(http.MethodPut, "/api/subscriptions",
		`{"endpoint":"`+endpoint+`","p256dh":"key-1","auth":"auth-1"}`))
	require.Equal(t, http.StatusCreated, w.Code)

	// Re-registering replaces the keys.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(http.MethodPut, "/api/subscriptions",
		`{"endpoint":"`+endpoint+`","p256dh":"key-2","auth":"auth-2"}`))
	require.Equal(t, http.StatusCreated, w.Code)

	var stored []model.PushSubscription
	require.NoError(t, s.DB().Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, "key-2", stored[0].P256DH)

	w = get()
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"endpoint":"`+endpoint+`"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(http.MethodDelete, "/api/subscriptions", `{"endpoint":"`+endpoint+`"}`))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, http.StatusNotFound, get().Code)
}

func TestGetSubscription_DatabaseError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	router := setupSubscriptionRouter(store.NewGormStore(gormDB))

	endpoint := "https://push.example.com/x"
	mock.ExpectQuery(`SELECT \* FROM "push_subscriptions" WHERE endpoint = \$1`).
		WithArgs(endpoint, 1).
		WillReturnError(fmt.Errorf("connection refused"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/subscriptions?endpoint="+endpoint, nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSubscription_MissingEndpoint(t *testing.T) {
	router := setupSubscriptionRouter(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/subscriptions", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
