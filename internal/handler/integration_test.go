//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/salgadospro/api/internal/config"
	"github.com/salgadospro/api/internal/database"
	"github.com/salgadospro/api/internal/router"
)

// TestIntegrationFlow exercises the full order lifecycle against a real
// PostgreSQL database: stock in, composition, order, payment with deduction,
// and the CMV report.
func TestIntegrationFlow(t *testing.T) {
	ctx := context.Background()

	pgContainer, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	runMigrations(t, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		Port:           "8081",
		DatabaseURL:    connStr,
		AllowedOrigins: []string{"http://localhost:5173"},
	}
	queries := database.New(pool)
	r := router.New(cfg, queries, pool)

	server := httptest.NewServer(r)
	defer server.Close()

	// --- 1. Stock an ingredient: 100 kg of flour at 1.50/kg ---
	flourResp := httpPostJSON(t, server, "/ingredients", map[string]interface{}{
		"name":                "Wheat flour",
		"quantity_on_hand":    "100",
		"unit_cost":           "1.50",
		"unit":                "kg",
		"low_stock_threshold": "5",
	})
	flourID := uuid.MustParse(flourResp["id"].(string))

	// --- 2. Create a product and give it a composition of 2 kg per unit ---
	productResp := httpPostJSON(t, server, "/products", map[string]interface{}{
		"name":       "Coxinha de frango",
		"sale_price": "10.00",
	})
	productID := uuid.MustParse(productResp["id"].(string))

	httpPutJSON(t, server, fmt.Sprintf("/products/%s/composition", productID), map[string]interface{}{
		"entries": []map[string]string{
			{"ingredient_id": flourID.String(), "quantity_per_unit": "2"},
		},
	})

	// --- 3. Create a customer and an order of 5 units at 10.00 each ---
	customerResp := httpPostJSON(t, server, "/customers", map[string]interface{}{
		"name":     "Dona Marta",
		"whatsapp": "+5511999990000",
	})
	customerID := uuid.MustParse(customerResp["id"].(string))

	orderResp := httpPostJSON(t, server, "/orders", map[string]interface{}{
		"customer_id": customerID.String(),
		"items": []map[string]interface{}{
			{"product_id": productID.String(), "quantity": 5, "unit_price": "10.00"},
		},
	})
	orderID := uuid.MustParse(orderResp["id"].(string))

	if got := orderResp["total_amount"].(string); got != "50.00" {
		t.Fatalf("order total_amount: got %s, want 50.00", got)
	}
	if got := orderResp["status"].(string); got != "PENDING" {
		t.Fatalf("order status: got %s, want PENDING", got)
	}

	// --- 4. Pay: stock drops 5 x 2 = 10 kg, one DEDUCTION is recorded ---
	payResp := httpPostJSON(t, server, fmt.Sprintf("/orders/%s/pay", orderID), nil)
	if payResp["already_paid"].(bool) {
		t.Fatalf("first payment reported already_paid")
	}
	deductions := payResp["deductions"].([]interface{})
	if len(deductions) != 1 {
		t.Fatalf("deductions: got %d, want 1", len(deductions))
	}
	deduction := deductions[0].(map[string]interface{})
	if deduction["ingredient_id"].(string) != flourID.String() {
		t.Fatalf("deduction ingredient: got %v, want %s", deduction["ingredient_id"], flourID)
	}
	if deduction["quantity"].(string) != "10" {
		t.Fatalf("deduction quantity: got %v, want 10", deduction["quantity"])
	}

	flourAfter := httpGetJSON(t, server, fmt.Sprintf("/ingredients/%s", flourID))
	if got := flourAfter["quantity_on_hand"].(string); got != "90" {
		t.Fatalf("flour stock after payment: got %s, want 90", got)
	}

	// --- 5. Paying again is a no-op ---
	payAgain := httpPostJSON(t, server, fmt.Sprintf("/orders/%s/pay", orderID), nil)
	if !payAgain["already_paid"].(bool) {
		t.Fatalf("second payment did not report already_paid")
	}
	flourAfterRetry := httpGetJSON(t, server, fmt.Sprintf("/ingredients/%s", flourID))
	if got := flourAfterRetry["quantity_on_hand"].(string); got != "90" {
		t.Fatalf("flour stock after retry: got %s, want 90 (retry must not deduct)", got)
	}

	// --- 6. The movement log shows the deduction tied to the order ---
	movements := httpGetJSONSlice(t, server, "/stock-movements")
	if len(movements) != 1 {
		t.Fatalf("stock movements: got %d, want 1", len(movements))
	}
	movement := movements[0].(map[string]interface{})
	if movement["kind"].(string) != "DEDUCTION" {
		t.Fatalf("movement kind: got %v, want DEDUCTION", movement["kind"])
	}
	if movement["reference"].(string) != orderID.String() {
		t.Fatalf("movement reference: got %v, want %s", movement["reference"], orderID)
	}

	// --- 7. The CMV report uses composition costs: 10 kg x 1.50 = 15.00 ---
	cmvResp := httpGetJSON(t, server, "/reports/cmv")
	if got := cmvResp["revenue"].(string); got != "50.00" {
		t.Fatalf("revenue: got %s, want 50.00", got)
	}
	if got := cmvResp["cmv"].(string); got != "15.00" {
		t.Fatalf("cmv: got %s, want 15.00", got)
	}
	if got := cmvResp["profit"].(string); got != "35.00" {
		t.Fatalf("profit: got %s, want 35.00", got)
	}

	// --- 8. PAID -> DELIVERED through the status endpoint ---
	delivered := httpPatchJSON(t, server, fmt.Sprintf("/orders/%s/status", orderID), map[string]string{
		"status": "DELIVERED",
	})
	if got := delivered["status"].(string); got != "DELIVERED" {
		t.Fatalf("order status: got %s, want DELIVERED", got)
	}

	// --- 9. Over-deduction clamps stock at zero, never negative ---
	// 90 kg remain; 50 units x 2 kg = 100 kg requested.
	bigOrderResp := httpPostJSON(t, server, "/orders", map[string]interface{}{
		"customer_id": customerID.String(),
		"items": []map[string]interface{}{
			{"product_id": productID.String(), "quantity": 50, "unit_price": "10.00"},
		},
	})
	bigOrderID := uuid.MustParse(bigOrderResp["id"].(string))

	httpPostJSON(t, server, fmt.Sprintf("/orders/%s/pay", bigOrderID), nil)

	flourFloor := httpGetJSON(t, server, fmt.Sprintf("/ingredients/%s", flourID))
	if got := flourFloor["quantity_on_hand"].(string); got != "0" {
		t.Fatalf("flour stock after over-deduction: got %s, want 0 (clamped)", got)
	}

	t.Logf("integration flow passed: container=%s, order=%s", pgContainer.GetContainerID(), orderID)
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("salgados_test"),
		tcpostgres.WithUsername("salgados"),
		tcpostgres.WithPassword("salgados"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

func runMigrations(t *testing.T, connStr string) {
	t.Helper()

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db for migrations: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		t.Fatalf("create migrate driver: %v", err)
	}

	// Path relative to this package directory; go test sets cwd there.
	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"postgres", driver)
	if err != nil {
		t.Fatalf("create migrate instance: %v", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("run migrations: %v", err)
	}
}

// --- HTTP helpers ---

func httpDoJSON(t *testing.T, server *httptest.Server, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		resp.Body.Close()
		t.Fatalf("%s %s: status %d, body: %v", method, path, resp.StatusCode, errResp)
	}
	return resp
}

func httpPostJSON(t *testing.T, server *httptest.Server, path string, body interface{}) map[string]interface{} {
	t.Helper()
	resp := httpDoJSON(t, server, "POST", path, body)
	defer resp.Body.Close()

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return result
}

func httpPutJSON(t *testing.T, server *httptest.Server, path string, body interface{}) {
	t.Helper()
	resp := httpDoJSON(t, server, "PUT", path, body)
	resp.Body.Close()
}

func httpPatchJSON(t *testing.T, server *httptest.Server, path string, body interface{}) map[string]interface{} {
	t.Helper()
	resp := httpDoJSON(t, server, "PATCH", path, body)
	defer resp.Body.Close()

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return result
}

func httpGetJSON(t *testing.T, server *httptest.Server, path string) map[string]interface{} {
	t.Helper()
	resp := httpDoJSON(t, server, "GET", path, nil)
	defer resp.Body.Close()

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return result
}

func httpGetJSONSlice(t *testing.T, server *httptest.Server, path string) []interface{} {
	t.Helper()
	resp := httpDoJSON(t, server, "GET", path, nil)
	defer resp.Body.Close()

	var result []interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return result
}
