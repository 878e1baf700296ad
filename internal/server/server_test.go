package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gridfare/gridfare/internal/config"
	"github.com/gridfare/gridfare/internal/migration"
	sessiondomain "github.com/gridfare/gridfare/internal/session/domain"
	"github.com/gridfare/gridfare/pkg/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupServerTest(t *testing.T, cfg config.Config) (*Server, *gorm.DB, *snowflake.Node) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("unwrap sql db: %v", err)
	}
	if err := migration.RunMigrations(sqlDB); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new snowflake node: %v", err)
	}

	server := &Server{
		db:       conn,
		log:      zap.NewNop(),
		cfg:      cfg,
		sessions: repository.ProvideStore[sessiondomain.ChargingSession](conn),
	}
	return server, conn, node
}

func seedListSession(t *testing.T, db *gorm.DB, node *snowflake.Node, workspaceID snowflake.ID, status sessiondomain.SessionStatus, createdAt time.Time) *sessiondomain.ChargingSession {
	t.Helper()
	record := &sessiondomain.ChargingSession{
		ID:          node.Generate(),
		WorkspaceID: workspaceID,
		StationID:   10,
		EndUserID:   5,
		StartTime:   createdAt,
		Status:      status,
		Currency:    "EUR",
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return record
}

func TestTokenRequired(t *testing.T) {
	server, _, _ := setupServerTest(t, config.Config{InternalAPIToken: "sekret"})
	engine := server.Engine()

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions?workspace_id=1", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/sessions?workspace_id=1", nil)
	req.Header.Set("Authorization", "Bearer sekret")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}
}

func TestTokenOptionalWhenUnset(t *testing.T) {
	server, _, _ := setupServerTest(t, config.Config{})
	engine := server.Engine()

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions?workspace_id=1", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected open access without configured token, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	server, _, _ := setupServerTest(t, config.Config{})
	engine := server.Engine()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestListSessionsPaginates(t *testing.T) {
	server, db, node := setupServerTest(t, config.Config{})
	engine := server.Engine()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		seedListSession(t, db, node, 1, sessiondomain.SessionStatusCompleted, base.Add(time.Duration(i)*time.Minute))
	}
	seedListSession(t, db, node, 2, sessiondomain.SessionStatusCompleted, base)

	var body listSessionsResponse
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions?workspace_id=1&page_size=3", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Sessions) != 3 {
		t.Fatalf("expected first page of 3, got %d", len(body.Sessions))
	}
	if body.PageInfo == nil || !body.PageInfo.HasMore || body.PageInfo.NextPageToken == "" {
		t.Fatalf("expected next page token, got %+v", body.PageInfo)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/sessions?workspace_id=1&page_size=3&page_token="+body.PageInfo.NextPageToken, nil)
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var second listSessionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode second page: %v", err)
	}
	if len(second.Sessions) != 2 {
		t.Fatalf("expected second page of 2, got %d", len(second.Sessions))
	}
	if second.PageInfo == nil || second.PageInfo.HasMore {
		t.Fatalf("expected final page, got %+v", second.PageInfo)
	}

	seen := map[string]bool{}
	for _, item := range append(body.Sessions, second.Sessions...) {
		if seen[item.ID] {
			t.Fatalf("session %s returned twice", item.ID)
		}
		seen[item.ID] = true
		if item.WorkspaceID != "1" {
			t.Fatalf("expected workspace scoping, got session for %s", item.WorkspaceID)
		}
	}
}

func TestListSessionsValidation(t *testing.T) {
	server, _, _ := setupServerTest(t, config.Config{})
	engine := server.Engine()

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing workspace_id, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/sessions?workspace_id=1&page_token=%25bad", nil)
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad page token, got %d", rec.Code)
	}
}
