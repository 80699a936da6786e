package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/securenotes/backend/internal/document"
	"github.com/securenotes/backend/internal/ratelimit"
	"github.com/securenotes/backend/internal/session"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const jsonContentType = "application/json"

func newTestHandler(t *testing.T, limiter *ratelimit.Limiter) (http.Handler, func(time.Duration)) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:server_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&session.Session{}, &document.Document{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	current := time.Unix(1700000000, 0).UTC()
	clock := func() time.Time { return current }
	advance := func(d time.Duration) { current = current.Add(d) }

	sessions, err := session.NewService(session.ServiceConfig{Database: db, Clock: clock})
	if err != nil {
		t.Fatalf("failed to construct session service: %v", err)
	}
	documents, err := document.NewService(document.ServiceConfig{
		Database:    db,
		Clock:       clock,
		URLProvider: document.NewRandomURLProvider(),
	})
	if err != nil {
		t.Fatalf("failed to construct document service: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		Sessions:  sessions,
		Documents: documents,
		Limiter:   limiter,
		Logger:    zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to construct handler: %v", err)
	}
	return handler, advance
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var request *http.Request
	if body == "" {
		request = httptest.NewRequest(method, path, http.NoBody)
	} else {
		request = httptest.NewRequest(method, path, strings.NewReader(body))
		request.Header.Set("Content-Type", jsonContentType)
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}
