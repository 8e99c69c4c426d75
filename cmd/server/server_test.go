//go:build integration
// +build integration

package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/nurulabs/roiprojector/internal/config"
)

// setupTestDB creates a PostgreSQL testcontainer and runs migrations.
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "roi_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := postgresContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	connStr := fmt.Sprintf("host=%s port=%s user=test password=test dbname=roi_test sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	migrationSQL, err := os.ReadFile("../../migrations/000001_initial_schema.up.sql")
	if err != nil {
		t.Fatalf("Failed to read migration file: %v", err)
	}
	if _, err := db.Exec(string(migrationSQL)); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		db.Close()
		postgresContainer.Terminate(ctx)
	}
	return db, cleanup
}

func testConfig() *config.Config {
	return &config.Config{
		Port:               "8080",
		LogLevel:           "INFO",
		SessionTTLHours:    24,
		CORSAllowedOrigins: []string{"*"},
	}
}

func postCalculate(t *testing.T, baseURL string, body map[string]any) (*http.Response, map[string]any) {
	t.Helper()
	payload, _ := json.Marshal(body)
	resp, err := http.Post(baseURL+"/api/calculate", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST /api/calculate failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp, decoded
}

func TestEndToEnd_CalculateSessionStatsReport(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	server, err := NewServerWithDB(db, testConfig())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	ts := httptest.NewServer(server)
	defer ts.Close()

	// Step 1: calculate a projection.
	resp, body := postCalculate(t, ts.URL, map[string]any{
		"company_name":   "Acme Corp",
		"industry":       "SaaS",
		"process_name":   "Invoice Processing",
		"hours_per_week": 30,
		"people_count":   2,
		"hourly_cost":    40,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %v", resp.StatusCode, body)
	}

	savings := body["savings"].(map[string]any)
	if savings["annual_savings"].(float64) != 120000 {
		t.Errorf("annual_savings = %v, want 120000", savings["annual_savings"])
	}
	if savings["breakeven_months"].(float64) != 1 {
		t.Errorf("breakeven_months = %v, want 1", savings["breakeven_months"])
	}
	assessment := body["assessment"].(map[string]any)
	if assessment["risk_level"].(string) != "Low" {
		t.Errorf("risk_level = %v, want Low", assessment["risk_level"])
	}

	sessionID, ok := body["session_id"].(string)
	if !ok || sessionID == "" {
		t.Fatal("response missing session_id")
	}

	// Step 2: fetch the session context.
	resp2, err := http.Get(ts.URL + "/api/session/" + sessionID)
	if err != nil {
		t.Fatalf("GET session failed: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("session status = %d, want 200", resp2.StatusCode)
	}
	var sessionCtx map[string]any
	if err := json.NewDecoder(resp2.Body).Decode(&sessionCtx); err != nil {
		t.Fatalf("Failed to decode session: %v", err)
	}
	if sessionCtx["company_name"] != "Acme Corp" {
		t.Errorf("session company_name = %v", sessionCtx["company_name"])
	}
	if sessionCtx["annual_savings"].(float64) != 120000 {
		t.Errorf("session annual_savings = %v", sessionCtx["annual_savings"])
	}

	// Session reads are counted.
	var accessed int
	if err := db.QueryRow(`SELECT accessed_count FROM sessions WHERE session_id = $1`, sessionID).Scan(&accessed); err != nil {
		t.Fatalf("Failed to read accessed_count: %v", err)
	}
	if accessed != 1 {
		t.Errorf("accessed_count = %d, want 1", accessed)
	}

	// Step 3: stats reflect the stored projection.
	resp3, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatalf("GET stats failed: %v", err)
	}
	defer resp3.Body.Close()
	var stats map[string]any
	if err := json.NewDecoder(resp3.Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if stats["total_projections"].(float64) != 1 {
		t.Errorf("total_projections = %v, want 1", stats["total_projections"])
	}

	// Step 4: the report endpoint returns a well-formed report.
	resp4, err := http.Get(ts.URL + "/api/report")
	if err != nil {
		t.Fatalf("GET report failed: %v", err)
	}
	defer resp4.Body.Close()
	var report map[string]any
	if err := json.NewDecoder(resp4.Body).Decode(&report); err != nil {
		t.Fatalf("Failed to decode report: %v", err)
	}
	if report["period"] != "Last 30 days" {
		t.Errorf("period = %v", report["period"])
	}
	if _, ok := report["top_processes"].([]any); !ok {
		t.Errorf("top_processes is not an array: %v", report["top_processes"])
	}
}

func TestEndToEnd_InvalidInput(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	server, err := NewServerWithDB(db, testConfig())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	ts := httptest.NewServer(server)
	defer ts.Close()

	testCases := []map[string]any{
		{"process_name": "", "hours_per_week": 10, "hourly_cost": 40},
		{"process_name": "Invoicing", "hours_per_week": 0, "hourly_cost": 40},
		{"process_name": "Invoicing", "hours_per_week": 10, "hourly_cost": 0},
	}
	for i, tc := range testCases {
		resp, body := postCalculate(t, ts.URL, tc)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("case %d: status = %d, want 400 (%v)", i, resp.StatusCode, body)
		}
	}

	// Nothing invalid gets stored.
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM roi_projections`).Scan(&count); err != nil {
		t.Fatalf("Failed to count projections: %v", err)
	}
	if count != 0 {
		t.Errorf("projection count = %d, want 0", count)
	}
}

func TestEndToEnd_SessionNotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	server, err := NewServerWithDB(db, testConfig())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	ts := httptest.NewServer(server)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/session/nonexistent")
	if err != nil {
		t.Fatalf("GET session failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestEndToEnd_ExpiredSession(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	server, err := NewServerWithDB(db, testConfig())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	ts := httptest.NewServer(server)
	defer ts.Close()

	resp, body := postCalculate(t, ts.URL, map[string]any{
		"process_name":   "Invoice Processing",
		"hours_per_week": 30,
		"people_count":   2,
		"hourly_cost":    40,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %v", resp.StatusCode, body)
	}
	sessionID := body["session_id"].(string)

	// Force the session past its TTL.
	if _, err := db.Exec(`UPDATE sessions SET expires_at = NOW() - INTERVAL '1 hour' WHERE session_id = $1`, sessionID); err != nil {
		t.Fatalf("Failed to expire session: %v", err)
	}

	resp2, err := http.Get(ts.URL + "/api/session/" + sessionID)
	if err != nil {
		t.Fatalf("GET session failed: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for expired session", resp2.StatusCode)
	}
}

func TestEndToEnd_AnonymousCompanyDefault(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	server, err := NewServerWithDB(db, testConfig())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	ts := httptest.NewServer(server)
	defer ts.Close()

	resp, _ := postCalculate(t, ts.URL, map[string]any{
		"process_name":   "Data Entry",
		"hours_per_week": 10,
		"hourly_cost":    40,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var companyName string
	if err := db.QueryRow(`SELECT company_name FROM roi_projections LIMIT 1`).Scan(&companyName); err != nil {
		t.Fatalf("Failed to read projection: %v", err)
	}
	if companyName != "Anonymous" {
		t.Errorf("company_name = %q, want Anonymous", companyName)
	}
}

func TestHealthEndpoint(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	server, err := NewServerWithDB(db, testConfig())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	ts := httptest.NewServer(server)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %q, want healthy", body["status"])
	}
}
