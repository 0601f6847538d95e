package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/propfolio/backend/internal/audit"
	"github.com/propfolio/backend/internal/authorization"
	"github.com/propfolio/backend/internal/clock"
	"github.com/propfolio/backend/internal/config"
	"github.com/propfolio/backend/internal/logger"
	"github.com/propfolio/backend/internal/migration"
	"github.com/propfolio/backend/internal/plan"
	"github.com/propfolio/backend/internal/project"
	"github.com/propfolio/backend/internal/quota"
	"github.com/propfolio/backend/internal/ratelimit"
	"github.com/propfolio/backend/internal/server"
	"github.com/propfolio/backend/internal/subscription"
	"github.com/propfolio/backend/internal/transaction"
	"github.com/propfolio/backend/pkg/db"
	"github.com/propfolio/backend/pkg/redisconn"
	"github.com/propfolio/backend/pkg/telemetry"
	"github.com/propfolio/backend/pkg/uow"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type testEnv struct {
	app     *fx.App
	server  *server.Server
	db      *gorm.DB
	node    *snowflake.Node
	httpSrv *httptest.Server
	baseURL string
}

var env *testEnv

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	setDefaultEnv()

	var err error
	env, err = startEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to start test environment:", err)
		os.Exit(1)
	}

	code := m.Run()
	env.shutdown()
	os.Exit(code)
}

func setDefaultEnv() {
	os.Setenv("ENVIRONMENT", "test")
	os.Setenv("DATABASE_TYPE", "sqlite")
	os.Setenv("DATABASE_NAME", "file:propfolio_e2e?mode=memory&cache=shared")
	os.Setenv("REDIS_ADDR", "")
	os.Setenv("RATE_LIMIT_ENABLED", "false")
	os.Setenv("SEED_DEFAULT_PLANS", "true")
}

func startEnv() (*testEnv, error) {
	e := &testEnv{}

	e.app = fx.New(
		fx.NopLogger,
		config.Module,
		logger.Module,
		telemetry.Module,
		fx.Provide(func() (*snowflake.Node, error) { return snowflake.NewNode(1) }),
		db.Module,
		redisconn.Module,
		clock.Module,
		uow.Module,
		migration.Module,

		audit.Module,
		plan.Module,
		subscription.Module,
		quota.Module,
		authorization.Module,
		ratelimit.Module,
		project.Module,
		transaction.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server) { s.RegisterRoutes() }),
		fx.Populate(&e.server, &e.db, &e.node),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.app.Start(ctx); err != nil {
		return nil, err
	}

	e.httpSrv = httptest.NewServer(e.server.Engine())
	e.baseURL = e.httpSrv.URL
	return e, nil
}

func (e *testEnv) shutdown() {
	if e == nil {
		return
	}
	if e.httpSrv != nil {
		e.httpSrv.Close()
	}
	if e.app != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = e.app.Stop(ctx)
	}
}

func doJSON(t *testing.T, method, path string, userID snowflake.ID, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, env.baseURL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("X-User-ID", userID.String())
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}

	out := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode response %q: %v", string(raw), err)
		}
	}
	return resp.StatusCode, out
}

func errorType(t *testing.T, body map[string]any) string {
	t.Helper()
	payload, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error payload, got %v", body)
	}
	typ, _ := payload["type"].(string)
	return typ
}

func dataField(t *testing.T, body map[string]any, key string) any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data payload, got %v", body)
	}
	return data[key]
}

func subscribe(t *testing.T, userID snowflake.ID, planCode string) {
	t.Helper()
	status, body := doJSON(t, http.MethodPost, "/api/subscription", userID, map[string]any{
		"plan_code": planCode,
	})
	if status != http.StatusOK {
		t.Fatalf("subscribe to %s: status %d, body %v", planCode, status, body)
	}
}

func createProject(t *testing.T, userID snowflake.ID, name string) string {
	t.Helper()
	status, body := doJSON(t, http.MethodPost, "/api/projects", userID, map[string]any{
		"name":     name,
		"city":     "Hamburg",
		"country":  "DE",
		"currency": "EUR",
	})
	if status != http.StatusOK {
		t.Fatalf("create project: status %d, body %v", status, body)
	}
	id, _ := dataField(t, body, "id").(string)
	if id == "" {
		t.Fatalf("project id missing in response: %v", body)
	}
	return id
}

func TestHealthCheck(t *testing.T) {
	resp, err := http.Get(env.baseURL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestRequiresIdentity(t *testing.T) {
	status, body := doJSON(t, http.MethodGet, "/api/projects", 0, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %v", status, body)
	}
}

func TestSubscriptionRequiredBeforeCreating(t *testing.T) {
	userID := env.node.Generate()

	status, body := doJSON(t, http.MethodPost, "/api/projects", userID, map[string]any{
		"name": "No plan yet",
	})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 without subscription, got %d: %v", status, body)
	}
}

func TestStarterPlanProjectQuota(t *testing.T) {
	userID := env.node.Generate()
	subscribe(t, userID, "starter")

	createProject(t, userID, "First property")

	status, body := doJSON(t, http.MethodPost, "/api/projects", userID, map[string]any{
		"name": "Second property",
	})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 at plan limit, got %d: %v", status, body)
	}
	if typ := errorType(t, body); typ != "quota_exceeded" {
		t.Fatalf("expected quota_exceeded, got %q", typ)
	}
}

func TestUpgradeLiftsQuota(t *testing.T) {
	userID := env.node.Generate()
	subscribe(t, userID, "starter")
	createProject(t, userID, "Only one allowed")

	subscribe(t, userID, "growth")
	createProject(t, userID, "Second after upgrade")
}

func TestRevenuePeriodConflict(t *testing.T) {
	userID := env.node.Generate()
	subscribe(t, userID, "growth")
	projectID := createProject(t, userID, "Rental flat")

	status, body := doJSON(t, http.MethodPost, "/api/transactions", userID, map[string]any{
		"project_id": projectID,
		"type":       "REVENUE",
		"category":   "rent",
		"amount":     95000,
		"currency":   "EUR",
		"start_date": "2024-01-01T00:00:00Z",
		"end_date":   "2024-02-15T00:00:00Z",
	})
	if status != http.StatusOK {
		t.Fatalf("create revenue: status %d, body %v", status, body)
	}

	status, body = doJSON(t, http.MethodPost, "/api/transactions", userID, map[string]any{
		"project_id": projectID,
		"type":       "REVENUE",
		"category":   "rent",
		"amount":     95000,
		"currency":   "EUR",
		"start_date": "2024-02-01T00:00:00Z",
		"end_date":   "2024-03-01T00:00:00Z",
	})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for overlapping revenue, got %d: %v", status, body)
	}
	if typ := errorType(t, body); typ != "period_overlap" {
		t.Fatalf("expected period_overlap, got %q", typ)
	}

	// Adjacent period: old end is exclusive, so this is allowed.
	status, body = doJSON(t, http.MethodPost, "/api/transactions", userID, map[string]any{
		"project_id": projectID,
		"type":       "REVENUE",
		"category":   "rent",
		"amount":     98000,
		"currency":   "EUR",
		"start_date": "2024-02-15T00:00:00Z",
		"end_date":   "2024-04-01T00:00:00Z",
	})
	if status != http.StatusOK {
		t.Fatalf("adjacent revenue should pass: status %d, body %v", status, body)
	}
}

func TestRecurringTransactionOccurrences(t *testing.T) {
	userID := env.node.Generate()
	subscribe(t, userID, "growth")
	projectID := createProject(t, userID, "Recurring cost")

	status, body := doJSON(t, http.MethodPost, "/api/transactions", userID, map[string]any{
		"project_id": projectID,
		"type":       "EXPENSE",
		"category":   "maintenance",
		"amount":     12000,
		"currency":   "EUR",
		"start_date": "2024-01-01T00:00:00Z",
		"end_date":   "2024-04-01T00:00:00Z",
		"recurrence": "RECURRING",
	})
	if status != http.StatusOK {
		t.Fatalf("create recurring: status %d, body %v", status, body)
	}

	occurrences, ok := body["occurrences"].([]any)
	if !ok {
		t.Fatalf("occurrences missing in response: %v", body)
	}
	if len(occurrences) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(occurrences))
	}
}

func TestOptimisticLockOverHTTP(t *testing.T) {
	userID := env.node.Generate()
	subscribe(t, userID, "growth")
	projectID := createProject(t, userID, "Versioned")

	status, body := doJSON(t, http.MethodPatch, "/api/projects/"+projectID, userID, map[string]any{
		"expected_version": 0,
		"name":             "Renamed once",
	})
	if status != http.StatusOK {
		t.Fatalf("first update: status %d, body %v", status, body)
	}

	status, body = doJSON(t, http.MethodPatch, "/api/projects/"+projectID, userID, map[string]any{
		"expected_version": 0,
		"name":             "Renamed again",
	})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for stale version, got %d: %v", status, body)
	}
	if typ := errorType(t, body); typ != "version_conflict" {
		t.Fatalf("expected version_conflict, got %q", typ)
	}
}

func TestAuditTrailVisible(t *testing.T) {
	userID := env.node.Generate()
	subscribe(t, userID, "growth")
	projectID := createProject(t, userID, "Audited")

	status, body := doJSON(t, http.MethodPatch, "/api/projects/"+projectID, userID, map[string]any{
		"expected_version": 0,
		"notes":            "bought below market",
	})
	if status != http.StatusOK {
		t.Fatalf("update: status %d, body %v", status, body)
	}

	status, body = doJSON(t, http.MethodGet,
		"/api/audit_logs?target_type=project&target_id="+projectID, userID, nil)
	if status != http.StatusOK {
		t.Fatalf("list audit logs: status %d, body %v", status, body)
	}

	logs, ok := body["data"].([]any)
	if !ok {
		t.Fatalf("audit log data missing: %v", body)
	}
	if len(logs) != 2 {
		t.Fatalf("expected create and update records, got %d", len(logs))
	}
}

func TestTaxFeatureGatedByPlan(t *testing.T) {
	starterUser := env.node.Generate()
	subscribe(t, starterUser, "starter")

	status, body := doJSON(t, http.MethodPost, "/api/taxes", starterUser, map[string]any{
		"name":           "property tax",
		"rate_basis_pts": 350,
		"applies_to":     "REVENUE",
	})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for starter tax access, got %d: %v", status, body)
	}
	if typ := errorType(t, body); typ != "feature_not_included" {
		t.Fatalf("expected feature_not_included, got %q", typ)
	}

	growthUser := env.node.Generate()
	subscribe(t, growthUser, "growth")

	status, body = doJSON(t, http.MethodPost, "/api/taxes", growthUser, map[string]any{
		"name":           "property tax",
		"rate_basis_pts": 350,
		"applies_to":     "REVENUE",
	})
	if status != http.StatusOK {
		t.Fatalf("growth plan tax create: status %d, body %v", status, body)
	}
}
