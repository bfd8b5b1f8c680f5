package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"anwarfarm/internal/auth"
	"anwarfarm/internal/core"
	"anwarfarm/internal/ledger"
	"anwarfarm/internal/remote/memory"
	"anwarfarm/internal/services"
	"anwarfarm/internal/storage"
)

const testPassphrase = "kandang-ayam"

var testNow = time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	srv    *Server
	store  *ledger.Store
	remote *memory.Store
	sync   *services.SyncCoordinator
}

func newTestEnv(t *testing.T, opts ...ServerOption) testEnv {
	t.Helper()
	store := ledger.NewStore(storage.NewBlob(storage.NewMemoryKV(), "ledger"),
		ledger.WithClock(func() time.Time { return testNow }))
	rs := memory.New()
	coord := services.NewSyncCoordinator(store, rs, nil)
	svc := services.NewLedgerService(store, coord, nil, nil, nil)
	gate, err := auth.NewGate(testPassphrase, "", time.Hour, auth.WithCost(bcrypt.MinCost))
	if err != nil {
		t.Fatalf("gate: %v", err)
	}

	opts = append([]ServerOption{WithServerClock(func() time.Time { return testNow })}, opts...)
	srv := NewServer(":0", svc, gate, nil, opts...)
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = coord.Wait(ctx)
	})
	return testEnv{srv: srv, store: store, remote: rs, sync: coord}
}

func (e testEnv) do(t *testing.T, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		if strings.HasPrefix(body, "{") {
			req.Header.Set("Content-Type", "application/json")
		} else {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (e testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/session", `{"passphrase":"`+testPassphrase+`"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login status=%d body=%s", rr.Code, rr.Body.String())
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := env.do(t, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s missing security headers", path)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s missing request id", path)
		}
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("disk I/O error") }

func TestReadyReportsStorageFailure(t *testing.T) {
	env := newTestEnv(t, WithReadiness(failingPinger{}))
	rr := env.do(t, http.MethodGet, "/readyz", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/session", `{"passphrase":"salah"}`, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong passphrase: expected 401, got %d", rr.Code)
	}

	cookie := env.login(t)
	got := decode[sessionBody](t, env.do(t, http.MethodGet, "/api/session", "", cookie))
	if got.Role != core.Admin {
		t.Fatalf("expected admin, got %q", got.Role)
	}

	rr = env.do(t, http.MethodDelete, "/api/session", "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("logout status=%d", rr.Code)
	}
	got = decode[sessionBody](t, env.do(t, http.MethodGet, "/api/session", "", cookie))
	if got.Role != core.Guest {
		t.Fatalf("expected guest after logout, got %q", got.Role)
	}
}

func TestCreateTransactionValidationAndSuccess(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"description":`, http.StatusBadRequest},
		{"missing description", `{"date":"2024-01-05","income":"1.500"}`, http.StatusUnprocessableEntity},
		{"invalid amount", `{"date":"2024-01-05","description":"x","income":"1.5"}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"date":"2024-01-05","description":"x","outcome":"-5"}`, http.StatusUnprocessableEntity},
		{"no amount", `{"date":"2024-01-05","description":"x"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"date":"05/01/2024","description":"x","income":1}`, http.StatusUnprocessableEntity},
		{"json numbers", `{"date":"2024-01-05","description":"Jual telur","income":1500}`, http.StatusCreated},
		{"form", "date=2024-01-05&description=Pakan&outcome=1.200", http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/transactions", tt.body, cookie)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rr.Code, rr.Body.String())
			}
		})
	}

	if env.store.Len() != 2 {
		t.Fatalf("expected 2 transactions, got %d", env.store.Len())
	}

	list := decode[listBody](t, env.do(t, http.MethodGet, "/api/transactions", "", nil))
	if list.Count != 2 || list.Filtered {
		t.Fatalf("unexpected list: %+v", list)
	}
	// Newest first; the form entry was created last.
	if list.Rows[0].Description != "Pakan" || list.Rows[0].Balance != 300 {
		t.Errorf("unexpected first row: %+v", list.Rows[0])
	}
	if list.Rows[0].BalanceLabel != "Rp. 300.000" || list.Rows[1].IncomeLabel != "Rp. 1.500.000" {
		t.Errorf("unexpected labels: %+v", list.Rows)
	}
	if list.Totals.Net != 300 {
		t.Errorf("expected net 300, got %d", list.Totals.Net)
	}
}

func TestGuestMutationsAreIgnored(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	rr := env.do(t, http.MethodPost, "/api/transactions", `{"date":"2024-01-05","description":"a","income":10}`, cookie)
	created := decode[mutationBody](t, rr)
	id := created.Transaction.ID

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodPost, "/api/transactions", `{"date":"2024-01-05","description":"b","income":10}`},
		{http.MethodPut, "/api/transactions/" + id, `{"date":"2024-01-05","description":"c","income":10}`},
		{http.MethodDelete, "/api/transactions/" + id, ""},
		{http.MethodPost, "/api/sync/pull", ""},
	} {
		rr := env.do(t, tc.method, tc.path, tc.body, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s %s: expected 200, got %d", tc.method, tc.path, rr.Code)
		}
		if decode[mutationBody](t, rr).Applied {
			t.Fatalf("%s %s: guest mutation applied", tc.method, tc.path)
		}
	}

	got, ok := env.store.Get(id)
	if !ok || got.Description != "a" {
		t.Fatalf("ledger changed by guest: %+v", got)
	}
}

func TestUpdateAndDeleteTransaction(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	created := decode[mutationBody](t, env.do(t, http.MethodPost, "/api/transactions",
		`{"date":"2024-01-05","description":"a","income":10}`, cookie))
	id := created.Transaction.ID

	rr := env.do(t, http.MethodPut, "/api/transactions/"+id, `{"date":"2024-01-06","description":"b","outcome":"2.000"}`, cookie)
	updated := decode[mutationBody](t, rr)
	if !updated.Applied || updated.Transaction.ID != id || updated.Transaction.Outcome != 2000 {
		t.Fatalf("unexpected update: %s", rr.Body.String())
	}
	if updated.Transaction.CreatedAt != created.Transaction.CreatedAt {
		t.Errorf("createdAt changed on update")
	}

	rr = env.do(t, http.MethodPut, "/api/transactions/missing", `{"date":"2024-01-06","description":"b","income":1}`, cookie)
	if decode[mutationBody](t, rr).Applied {
		t.Errorf("update of unknown id applied")
	}

	if !decode[mutationBody](t, env.do(t, http.MethodDelete, "/api/transactions/"+id, "", cookie)).Applied {
		t.Fatalf("delete not applied")
	}
	if decode[mutationBody](t, env.do(t, http.MethodDelete, "/api/transactions/"+id, "", cookie)).Applied {
		t.Fatalf("second delete applied")
	}
}

func TestFilterSummaryTrendAndExport(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	for _, body := range []string{
		`{"date":"2024-01-01","description":"Jual telur","income":100}`,
		`{"date":"2024-01-02","description":"Beli pakan","outcome":40}`,
	} {
		if rr := env.do(t, http.MethodPost, "/api/transactions", body, cookie); rr.Code != http.StatusCreated {
			t.Fatalf("seed status=%d", rr.Code)
		}
	}

	list := decode[listBody](t, env.do(t, http.MethodGet, "/api/transactions?type=outcome", "", nil))
	if !list.Filtered || list.Count != 1 || list.Rows[0].Balance != 60 {
		t.Fatalf("unexpected filtered list: %+v", list)
	}

	list = decode[listBody](t, env.do(t, http.MethodGet, "/api/transactions?search=TELUR&start=2024-01-01&end=2024-01-01", "", nil))
	if list.Count != 1 || list.Rows[0].Description != "Jual telur" {
		t.Fatalf("unexpected search result: %+v", list)
	}

	sum := decode[summaryBody](t, env.do(t, http.MethodGet, "/api/summary", "", nil))
	if sum.Totals.Net != 60 || sum.Split.IncomePercent != 71 || sum.Split.OutcomePercent != 29 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	rr := env.do(t, http.MethodGet, "/api/trend", "", nil)
	if !strings.Contains(rr.Body.String(), `"label":"01 Januari 2024"`) {
		t.Errorf("trend missing label: %s", rr.Body.String())
	}

	rr = env.do(t, http.MethodGet, "/api/export.csv", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("export status=%d", rr.Code)
	}
	if got := rr.Header().Get("Content-Disposition"); got != `attachment; filename="Laporan_Keuangan_2024-01-05.csv"` {
		t.Errorf("unexpected disposition %q", got)
	}
	want := "Tanggal,Keterangan,Uang Masuk,Uang Keluar,Saldo\n2024-01-01,\"Jual telur\",100,0,100\n2024-01-02,\"Beli pakan\",0,40,60"
	if rr.Body.String() != want {
		t.Errorf("unexpected csv:\n%s", rr.Body.String())
	}

	rr = env.do(t, http.MethodGet, "/api/export.xlsx", "", nil)
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Body.String(), "PK") {
		t.Errorf("xlsx export failed: status=%d", rr.Code)
	}
}

func TestSyncEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.remote.SetDocument([]byte(`[{"id":"r1","date":"2024-02-01","description":"remote","income":5,"outcome":0,"createdAt":1}]`))

	status := decode[services.SyncStatus](t, env.do(t, http.MethodGet, "/api/sync", "", nil))
	if !status.Enabled || status.State != services.SyncIdle {
		t.Fatalf("unexpected status: %+v", status)
	}

	cookie := env.login(t)
	body := decode[pullBody](t, env.do(t, http.MethodPost, "/api/sync/pull", "", cookie))
	if !body.Applied || body.Status.LastOperation != "pull" {
		t.Fatalf("unexpected pull: %+v", body)
	}
	if env.store.Len() != 1 {
		t.Fatalf("expected remote ledger locally, got %d records", env.store.Len())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodPatch, "/api/transactions", "", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	env := newTestEnv(t, WithRateLimit(2))
	for i := 0; i < 2; i++ {
		if rr := env.do(t, http.MethodDelete, "/api/session", "", nil); rr.Code != http.StatusOK {
			t.Fatalf("request %d: status=%d", i, rr.Code)
		}
	}
	rr := env.do(t, http.MethodDelete, "/api/session", "", nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Errorf("missing Retry-After")
	}
	// Reads are never limited.
	if rr := env.do(t, http.MethodGet, "/api/summary", "", nil); rr.Code != http.StatusOK {
		t.Fatalf("read limited: %d", rr.Code)
	}
}
