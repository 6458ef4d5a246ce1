package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restokasa/backend/internal/cache"
	"restokasa/backend/internal/domain"
	"restokasa/backend/internal/service"
	"restokasa/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, cache.NoopStatisticsCache{}, 0)
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, "*")
}

func loginToken(t *testing.T, handler http.Handler, username string, password string) string {
	t.Helper()

	payload, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	var resp domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.AccessToken
}

func doJSON(t *testing.T, handler http.Handler, method string, path string, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "wrongpassword",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleLogin_RateLimit(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	// The loginLimiter allows 5 attempts per minute from one address.
	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "badpass",
	})

	var last int
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "203.0.113.7:4000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		last = rec.Code
	}

	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", last)
	}
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/shifts/open", "", domain.ShiftOpenRequest{EmployeeID: "emp-olha"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestShiftLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginToken(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/shifts/open", token, domain.ShiftOpenRequest{
		EmployeeID:     "emp-olha",
		StartCashCents: 50000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open shift: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var opened domain.ShiftResponse
	if err := json.NewDecoder(rec.Body).Decode(&opened); err != nil {
		t.Fatalf("decode open response: %v", err)
	}
	shiftID := opened.Shift.ID
	if shiftID == "" {
		t.Fatalf("expected shift id in response")
	}

	// Opening again for the same employee conflicts.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/shifts/open", token, domain.ShiftOpenRequest{EmployeeID: "emp-olha"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("double open: expected 409, got %d", rec.Code)
	}

	// Complete a courier cash order and hand the cash over.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/orders/ord-1001/completed", token, domain.OrderCompletedRequest{})
	if rec.Code != http.StatusOK {
		t.Fatalf("order completed: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var completed domain.OrderCompletedResult
	if err := json.NewDecoder(rec.Body).Decode(&completed); err != nil {
		t.Fatalf("decode completed response: %v", err)
	}
	if !completed.Linked || completed.DebtEmployeeID != "emp-taras" {
		t.Fatalf("unexpected completion result: %+v", completed)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/employees/emp-taras/outstanding-orders", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("outstanding orders: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/handovers", token, domain.HandoverRequest{
		CashierShiftID: shiftID,
		EmployeeID:     "emp-taras",
		OrderIDs:       []string{"ord-1001"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("handover: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var handover domain.HandoverResult
	if err := json.NewDecoder(rec.Body).Decode(&handover); err != nil {
		t.Fatalf("decode handover response: %v", err)
	}
	if handover.AmountCents != 15000 {
		t.Fatalf("expected handover 15000, got %d", handover.AmountCents)
	}

	rec = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/v1/shifts/%s/statistics", shiftID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("statistics: expected 200, got %d", rec.Code)
	}
	var stats domain.ShiftStatistics
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode statistics: %v", err)
	}
	if stats.TheoreticalCashCents != 65000 {
		t.Fatalf("expected theoretical 65000, got %d", stats.TheoreticalCashCents)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/shifts/close", token, domain.ShiftCloseRequest{
		ShiftID:      shiftID,
		EndCashCents: 65000,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("close: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/shifts/close", token, domain.ShiftCloseRequest{ShiftID: shiftID})
	if rec.Code != http.StatusConflict {
		t.Fatalf("double close: expected 409, got %d", rec.Code)
	}
}

func TestTransactionValidationOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginToken(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/shifts/open", token, domain.ShiftOpenRequest{EmployeeID: "emp-olha"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open shift failed: %d", rec.Code)
	}
	var opened domain.ShiftResponse
	if err := json.NewDecoder(rec.Body).Decode(&opened); err != nil {
		t.Fatalf("decode open response: %v", err)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/transactions", token, domain.TransactionRequest{
		ShiftID:     opened.Shift.ID,
		AmountCents: -100,
		Kind:        domain.KindManualIn,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("negative amount: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/transactions", token, domain.TransactionRequest{
		ShiftID:     opened.Shift.ID,
		AmountCents: 100,
		Kind:        domain.KindHandoverIn,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("manual handover kind: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/transactions", token, domain.TransactionRequest{
		ShiftID:     "shift-missing",
		AmountCents: 100,
		Kind:        domain.KindManualIn,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown shift: expected 404, got %d", rec.Code)
	}
}

func TestShiftReportDownloads(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginToken(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/shifts/open", token, domain.ShiftOpenRequest{EmployeeID: "emp-olha", StartCashCents: 1000})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open shift failed: %d", rec.Code)
	}
	var opened domain.ShiftResponse
	if err := json.NewDecoder(rec.Body).Decode(&opened); err != nil {
		t.Fatalf("decode open response: %v", err)
	}

	rec = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/v1/shifts/%s/report.xlsx", opened.Shift.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("xlsx report: expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("unexpected xlsx content type %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("expected non-empty xlsx payload")
	}

	rec = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/v1/shifts/%s/report.pdf", opened.Shift.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pdf report: expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected pdf content type %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected PDF magic bytes")
	}
}

func TestStatisticsUnknownShiftIs404(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginToken(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/shifts/shift-missing/statistics", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
